package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/router"
	"github.com/iudanet/meshsync/internal/validation"
	"github.com/iudanet/meshsync/pkg/api"
)

// EndpointResolver определяет операции роутера, нужные route handlers.
type EndpointResolver interface {
	Resolve(service string, tag models.PolicyTag) ([]models.Candidate, error)
}

// RouteHandler обрабатывает резолв логических сервисов в кандидатов.
type RouteHandler struct {
	logger *slog.Logger
	router EndpointResolver
}

// NewRouteHandler создает handler маршрутизации.
func NewRouteHandler(logger *slog.Logger, r EndpointResolver) *RouteHandler {
	return &RouteHandler{
		logger: logger,
		router: r,
	}
}

// Resolve обрабатывает GET /api/v1/route/{service}?policy=...
// Возвращает упорядоченный список кандидатов с учетом живого здоровья.
func (h *RouteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	if err := validation.ValidateServiceName(service); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	policy := models.PolicyTag(r.URL.Query().Get("policy"))

	candidates, err := h.router.Resolve(service, policy)
	if err != nil {
		switch {
		case errors.Is(err, router.ErrUnknownService):
			writeError(w, h.logger, http.StatusNotFound, "unknown service")
		case errors.Is(err, router.ErrUnknownPolicy):
			writeError(w, h.logger, http.StatusBadRequest, "unknown policy")
		case errors.Is(err, router.ErrNoCandidates):
			writeError(w, h.logger, http.StatusServiceUnavailable, "no eligible candidates")
		default:
			writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := api.ResolveResponse{
		Service:    service,
		Policy:     string(policy),
		Candidates: make([]api.Candidate, 0, len(candidates)),
	}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, api.Candidate{
			NodeID: c.NodeID,
			Addr:   c.Addr,
			Role:   string(c.Role),
		})
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
