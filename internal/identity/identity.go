package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidJoinSecret indicates that the presented cluster join secret is wrong
var ErrInvalidJoinSecret = errors.New("invalid join secret")

// NodeClaims представляет JWT claims узла
type NodeClaims struct {
	NodeID string `json:"node_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service выпускает и проверяет учетные данные узлов.
// Узлы проходят регистрацию по общему секрету кластера и дальше
// аутентифицируются выданным JWT токеном.
type Service struct {
	secret         []byte
	joinSecretHash []byte
	tokenTTL       time.Duration
}

// NewService создает сервис учетных данных.
// joinSecret - общий секрет кластера; хранится только bcrypt хеш.
func NewService(signingSecret, joinSecret string, tokenTTL time.Duration) (*Service, error) {
	if signingSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(joinSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash join secret: %w", err)
	}

	return &Service{
		secret:         []byte(signingSecret),
		joinSecretHash: hash,
		tokenTTL:       tokenTTL,
	}, nil
}

// VerifyJoinSecret проверяет предъявленный секрет кластера.
func (s *Service) VerifyJoinSecret(joinSecret string) error {
	if err := bcrypt.CompareHashAndPassword(s.joinSecretHash, []byte(joinSecret)); err != nil {
		return ErrInvalidJoinSecret
	}
	return nil
}

// IssueNodeToken создает JWT токен для зарегистрированного узла.
func (s *Service) IssueNodeToken(nodeID, role string) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := NodeClaims{
		NodeID: nodeID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "meshsync",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, int64(s.tokenTTL.Seconds()), nil
}

// VerifyNodeToken валидирует и парсит JWT токен узла.
func (s *Service) VerifyNodeToken(tokenString string) (*NodeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &NodeClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*NodeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
