package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/meshsync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// NodeIDKey ключ для хранения node_id в контексте
	NodeIDKey contextKey = "node_id"
	// NodeRoleKey ключ для хранения роли узла в контексте
	NodeRoleKey contextKey = "node_role"
)

// GetNodeID извлекает node_id из контекста запроса
func GetNodeID(ctx context.Context) (string, bool) {
	nodeID, ok := ctx.Value(NodeIDKey).(string)
	return nodeID, ok
}

// GetNodeRole извлекает роль узла из контекста запроса
func GetNodeRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(NodeRoleKey).(string)
	return role, ok
}

// writeJSON сериализует ответ с заданным статусом
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError возвращает ошибку в формате api.ErrorResponse
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, api.ErrorResponse{Error: message})
}
