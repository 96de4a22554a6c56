package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

// ReviewLister выборка сущностей, ожидающих ручного разбора конфликта.
type ReviewLister interface {
	ListPendingReview(ctx context.Context) ([]*models.Entity, error)
}

// ConflictsHandler отдает операторам очередь pending-review сущностей.
type ConflictsHandler struct {
	logger *slog.Logger
	store  ReviewLister
}

// NewConflictsHandler создает handler очереди конфликтов.
func NewConflictsHandler(logger *slog.Logger, store ReviewLister) *ConflictsHandler {
	return &ConflictsHandler{
		logger: logger,
		store:  store,
	}
}

// List обрабатывает GET /api/v1/conflicts
func (h *ConflictsHandler) List(w http.ResponseWriter, r *http.Request) {
	entities, err := h.store.ListPendingReview(r.Context())
	if err != nil {
		h.logger.Error("failed to list pending review entities", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list conflicts")
		return
	}

	out := make([]api.Entity, 0, len(entities))
	for _, e := range entities {
		out = append(out, entityToAPI(e))
	}

	writeJSON(w, h.logger, http.StatusOK, api.ConflictsResponse{Entities: out})
}

// entityToAPI конвертирует внутреннюю модель в wire формат.
func entityToAPI(e *models.Entity) api.Entity {
	fields := make(map[string]api.Field, len(e.Fields))
	for name, f := range e.Fields {
		fields[name] = api.Field{
			Kind:    string(f.Kind),
			Scalar:  f.Scalar,
			Stamp:   f.Stamp,
			Origin:  f.Origin,
			Set:     f.Set,
			Counter: f.Counter,
		}
	}

	clock := make(map[string]int64, len(e.Clock))
	for origin, seq := range e.Clock {
		clock[origin] = seq
	}

	return api.Entity{
		UpdatedAt:     e.UpdatedAt,
		ID:            e.ID,
		Fields:        fields,
		Clock:         clock,
		Version:       e.Version,
		Deleted:       e.Deleted,
		PendingReview: e.PendingReview,
	}
}
