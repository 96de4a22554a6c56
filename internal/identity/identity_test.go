package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService("test-signing-secret", "test-join-secret", time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name          string
		signingSecret string
		joinSecret    string
		wantErr       bool
	}{
		{
			name:          "valid secrets",
			signingSecret: "signing",
			joinSecret:    "join",
			wantErr:       false,
		},
		{
			name:          "empty signing secret",
			signingSecret: "",
			joinSecret:    "join",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.signingSecret, tt.joinSecret, time.Hour)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestService_VerifyJoinSecret(t *testing.T) {
	svc := newTestService(t)

	assert.NoError(t, svc.VerifyJoinSecret("test-join-secret"))
	assert.ErrorIs(t, svc.VerifyJoinSecret("wrong-secret"), ErrInvalidJoinSecret)
	assert.ErrorIs(t, svc.VerifyJoinSecret(""), ErrInvalidJoinSecret)
}

func TestService_IssueAndVerifyNodeToken(t *testing.T) {
	svc := newTestService(t)

	token, expiresIn, err := svc.IssueNodeToken("edge-1", "edge")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := svc.VerifyNodeToken(token)
	require.NoError(t, err)

	assert.Equal(t, "edge-1", claims.NodeID)
	assert.Equal(t, "edge", claims.Role)
	assert.Equal(t, "meshsync", claims.Issuer)
}

func TestService_VerifyNodeToken_Invalid(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "garbage token",
			token: "not-a-jwt",
		},
		{
			name:  "empty token",
			token: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.VerifyNodeToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestService_VerifyNodeToken_WrongSecret(t *testing.T) {
	svc := newTestService(t)

	other, err := NewService("another-signing-secret", "test-join-secret", time.Hour)
	require.NoError(t, err)

	token, _, err := other.IssueNodeToken("edge-1", "edge")
	require.NoError(t, err)

	// Токен подписан чужим ключом
	claims, err := svc.VerifyNodeToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestService_VerifyNodeToken_Expired(t *testing.T) {
	svc, err := NewService("test-signing-secret", "test-join-secret", -time.Minute)
	require.NoError(t, err)

	token, _, err := svc.IssueNodeToken("edge-1", "edge")
	require.NoError(t, err)

	claims, err := svc.VerifyNodeToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}
