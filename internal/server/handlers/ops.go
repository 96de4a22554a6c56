package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/syncer"
	"github.com/iudanet/meshsync/pkg/api"
)

// OpIngest определяет прием оффлайн-операций в durable журнал.
type OpIngest interface {
	Enqueue(ctx context.Context, op *models.OfflineOperation) (*models.OfflineOperation, error)
}

// DrainReporter наблюдаемое состояние sync engine. Реализуется syncer.Service.
type DrainReporter interface {
	Status(ctx context.Context) syncer.DrainStatus
	TriggerDrain(origin string)
}

// OpsHandler обрабатывает буферизацию оффлайн-операций и статус drain.
type OpsHandler struct {
	logger *slog.Logger
	queue  OpIngest
	syncer DrainReporter
}

// NewOpsHandler создает handler оффлайн-операций.
func NewOpsHandler(logger *slog.Logger, queue OpIngest, sync DrainReporter) *OpsHandler {
	return &OpsHandler{
		logger: logger,
		queue:  queue,
		syncer: sync,
	}
}

// Enqueue обрабатывает POST /api/v1/ops
// Операция дописывается в durable журнал своего origin; drain применит
// ее в порядке захвата.
func (h *OpsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := GetNodeID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "node identity missing")
		return
	}

	var req api.EnqueueOpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	op := opFromAPI(req.Operation)
	// Origin берется из токена, а не из тела запроса
	op.Origin = nodeID

	stored, err := h.queue.Enqueue(r.Context(), op)
	if err != nil {
		h.logger.Error("failed to enqueue operation", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to enqueue operation")
		return
	}

	h.syncer.TriggerDrain(nodeID)

	writeJSON(w, h.logger, http.StatusAccepted, api.EnqueueOpResponse{
		OperationID: stored.ID,
		Seq:         stored.Seq,
	})
}

// DrainStatus обрабатывает GET /api/v1/sync/status
func (h *OpsHandler) DrainStatus(w http.ResponseWriter, r *http.Request) {
	status := h.syncer.Status(r.Context())

	writeJSON(w, h.logger, http.StatusOK, api.DrainStatusResponse{
		LastDrain:  status.LastDrain,
		HaltReason: status.HaltReason,
		Pending:    status.Pending,
		Applied:    status.Applied,
		Merged:     status.Merged,
		Conflicted: status.Conflicted,
		Draining:   status.Draining,
		Halted:     status.Halted,
	})
}

// opFromAPI конвертирует wire формат во внутреннюю модель.
func opFromAPI(in api.OfflineOperation) *models.OfflineOperation {
	delta := make(map[string]crdt.Field, len(in.Delta))
	for name, f := range in.Delta {
		delta[name] = crdt.Field{
			Kind:    crdt.FieldKind(f.Kind),
			Scalar:  f.Scalar,
			Stamp:   f.Stamp,
			Origin:  f.Origin,
			Set:     f.Set,
			Counter: f.Counter,
		}
	}

	clock := crdt.NewVersionVector()
	for origin, seq := range in.Clock {
		clock[origin] = seq
	}

	return &models.OfflineOperation{
		ID:         in.ID,
		Origin:     in.Origin,
		EntityID:   in.EntityID,
		Kind:       models.OpKind(in.Kind),
		Delta:      delta,
		Clock:      clock,
		CapturedAt: in.CapturedAt,
	}
}
