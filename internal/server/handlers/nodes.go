package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/meshsync/internal/identity"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/registry"
	"github.com/iudanet/meshsync/pkg/api"
)

// Registrar определяет операции реестра, нужные node handlers.
type Registrar interface {
	Register(node models.Node) error
	Heartbeat(id string, load models.LoadMetrics) error
	Snapshot() []registry.NodeView
}

// CredentialIssuer выпускает учетные данные узлов. Реализуется identity.Service.
type CredentialIssuer interface {
	VerifyJoinSecret(joinSecret string) error
	IssueNodeToken(nodeID, role string) (string, int64, error)
}

// NodesHandler обрабатывает регистрацию, heartbeat и снимок здоровья узлов.
type NodesHandler struct {
	logger   *slog.Logger
	registry Registrar
	issuer   CredentialIssuer
}

// NewNodesHandler создает handler реестра узлов.
func NewNodesHandler(logger *slog.Logger, reg Registrar, issuer CredentialIssuer) *NodesHandler {
	return &NodesHandler{
		logger:   logger,
		registry: reg,
		issuer:   issuer,
	}
}

// Register обрабатывает POST /api/v1/nodes/register
// Регистрирует узел по общему секрету кластера и выдает токен узла.
func (h *NodesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.issuer.VerifyJoinSecret(req.JoinSecret); err != nil {
		h.logger.Warn("join secret rejected", "node_id", req.Node.ID)
		writeError(w, h.logger, http.StatusUnauthorized, "invalid join secret")
		return
	}

	node := models.Node{
		ID:             req.Node.ID,
		Role:           models.NodeRole(req.Node.Role),
		Addr:           req.Node.Addr,
		Capabilities:   req.Node.Capabilities,
		MaxConcurrency: req.Node.MaxConcurrency,
	}

	if err := h.registry.Register(node); err != nil {
		if errors.Is(err, registry.ErrDuplicateNode) {
			writeError(w, h.logger, http.StatusConflict, "node already registered")
			return
		}
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresIn, err := h.issuer.IssueNodeToken(req.Node.ID, req.Node.Role)
	if err != nil {
		h.logger.Error("failed to issue node token", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, api.RegisterNodeResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Heartbeat обрабатывает POST /api/v1/nodes/heartbeat
// Узел определяется по токену (AuthMiddleware).
func (h *NodesHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := GetNodeID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "node identity missing")
		return
	}

	var req api.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.registry.Heartbeat(nodeID, models.LoadMetrics{
		ActiveTasks: req.ActiveTasks,
		CPUPercent:  req.CPUPercent,
		MemPercent:  req.MemPercent,
	})
	if err != nil {
		if errors.Is(err, registry.ErrNodeNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "node not registered")
			return
		}
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Snapshot обрабатывает GET /api/v1/health/nodes
// Возвращает снимок статусов всех узлов для observability.
func (h *NodesHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	views := h.registry.Snapshot()

	resp := api.HealthSnapshotResponse{
		Nodes: make([]api.NodeHealth, 0, len(views)),
	}
	for _, v := range views {
		resp.Nodes = append(resp.Nodes, api.NodeHealth{
			NodeID:      v.Node.ID,
			Role:        string(v.Node.Role),
			Status:      string(v.Node.Status),
			LatencyMS:   v.Health.LatencyMS,
			SuccessRate: v.Health.SuccessRate,
			MissCount:   v.Node.MissCount,
			Active:      v.Active,
		})
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// ensure identity.Service satisfies the issuer contract
var _ CredentialIssuer = (*identity.Service)(nil)
