package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/offline"
	"github.com/iudanet/meshsync/internal/store"
)

// ErrHalted sync engine остановлен из-за повреждения durable журнала
// и требует вмешательства оператора.
var ErrHalted = errors.New("sync engine halted")

// maxCASRetries ограничивает повторы цикла read-merge-write при гонке версий.
const maxCASRetries = 5

//go:generate moq -out queue_mock.go . OpQueue

// OpQueue определяет интерфейс durable журнала оффлайн-операций.
type OpQueue interface {
	// Pending возвращает непримененные операции origin в порядке захвата
	Pending(ctx context.Context, origin string) ([]*models.OfflineOperation, error)

	// MarkApplied продвигает watermark примененных операций origin
	MarkApplied(ctx context.Context, origin string, seq uint64) error

	// Origins возвращает все origin с записями в журнале
	Origins(ctx context.Context) ([]string, error)

	// PendingCount возвращает суммарное число непримененных операций
	PendingCount(ctx context.Context) (int, error)
}

// DrainResult итоги одного прохода drain.
type DrainResult struct {
	Applied    int // применено, включая автоматические слияния
	Merged     int // из них прошло через слияние конкурентных правок
	Conflicted int // эскалировано в pending-review
}

// DrainStatus наблюдаемое состояние sync engine.
type DrainStatus struct {
	LastDrain  time.Time `json:"last_drain,omitzero"`
	HaltReason string    `json:"halt_reason,omitempty"`
	Pending    int       `json:"pending"`
	Applied    int       `json:"applied"`
	Merged     int       `json:"merged"`
	Conflicted int       `json:"conflicted"`
	Draining   bool      `json:"draining"`
	Halted     bool      `json:"halted"`
}

// Service drains оффлайн-журнал в каноническое состояние через
// разрешение конфликтов.
type Service struct {
	queue  OpQueue
	store  store.EntityStore
	logger *slog.Logger
	notify func() // будит планировщик для catch-up задач

	drainC chan string
	nodeID string

	mu         sync.Mutex
	status     DrainStatus
	haltReason string
	halted     bool
}

// New создает sync engine.
// nodeID - идентификатор разрешающего узла (учитывается в version vector
// при слияниях). notify вызывается после успешного drain; nil отключает.
func New(queue OpQueue, entityStore store.EntityStore, nodeID string, notify func(), logger *slog.Logger) *Service {
	return &Service{
		queue:  queue,
		store:  entityStore,
		nodeID: nodeID,
		notify: notify,
		logger: logger,
		drainC: make(chan string, 64),
	}
}

// OnNodeTransition коллбек реестра: возвращение origin в online
// запускает drain его журнала.
func (s *Service) OnNodeTransition(nodeID string, from, to models.NodeStatus) {
	if from == models.NodeOffline && to == models.NodeOnline {
		s.TriggerDrain(nodeID)
	}
}

// TriggerDrain ставит origin в очередь на drain. Неблокирующий: при
// переполненном канале заявка будет подобрана периодическим проходом.
func (s *Service) TriggerDrain(origin string) {
	select {
	case s.drainC <- origin:
	default:
	}
}

// Run запускает drain loop. Блокируется до отмены контекста.
// Периодический проход подбирает журналы, не покрытые событиями реестра.
func (s *Service) Run(ctx context.Context, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	s.logger.Info("sync engine started", "node_id", s.nodeID)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync engine stopped")
			return
		case origin := <-s.drainC:
			if _, err := s.DrainOrigin(ctx, origin); err != nil {
				s.logger.Error("drain failed", "origin", origin, "error", err)
			}
		case <-ticker.C:
			s.drainAll(ctx)
		}
	}
}

func (s *Service) drainAll(ctx context.Context) {
	origins, err := s.queue.Origins(ctx)
	if err != nil {
		s.logger.Error("failed to list origins", "error", err)
		return
	}
	for _, origin := range origins {
		if _, err := s.DrainOrigin(ctx, origin); err != nil {
			s.logger.Error("drain failed", "origin", origin, "error", err)
		}
	}
}

// DrainOrigin применяет непримененные операции origin строго в порядке
// захвата. Watermark продвигается после каждой операции, поэтому drain,
// прерванный рестартом, продолжается с того же места.
func (s *Service) DrainOrigin(ctx context.Context, origin string) (*DrainResult, error) {
	if err := s.checkHalted(); err != nil {
		return nil, err
	}

	s.setDraining(true)
	defer s.setDraining(false)

	ops, err := s.queue.Pending(ctx, origin)
	if err != nil {
		if errors.Is(err, offline.ErrCorruptLog) {
			s.halt(err.Error())
		}
		return nil, fmt.Errorf("failed to read pending operations: %w", err)
	}

	result := &DrainResult{}
	for _, op := range ops {
		op.State = models.OpReplaying

		state, merged, err := s.Apply(ctx, op)
		if err != nil {
			// Хранилище недоступно: drain прервется и повторится позже
			return result, fmt.Errorf("failed to apply operation %s: %w", op.ID, err)
		}

		if err := s.queue.MarkApplied(ctx, origin, op.Seq); err != nil {
			return result, fmt.Errorf("failed to advance cursor: %w", err)
		}

		switch state {
		case models.OpConflicted:
			result.Conflicted++
		default:
			result.Applied++
			if merged {
				result.Merged++
			}
		}
	}

	s.recordResult(result)

	if result.Applied > 0 && s.notify != nil {
		s.notify()
	}

	s.logger.Info("drain finished",
		"origin", origin,
		"applied", result.Applied,
		"merged", result.Merged,
		"conflicted", result.Conflicted,
	)

	return result, nil
}

// Apply выполняет оптимистичную запись операции в каноническое состояние.
// Возвращает итоговое состояние операции и признак автоматического слияния.
//
// Если вектор сущности уже отражает изменения, причинно не предшествующие
// вектору операции, вместо безусловной перезаписи поднимается конфликт:
// независимые поля сливаются детерминированными функциями, а пары без
// безопасного автослияния (delete против конкурентного update) эскалируются
// в pending-review.
func (s *Service) Apply(ctx context.Context, op *models.OfflineOperation) (models.OpState, bool, error) {
	if err := s.checkHalted(); err != nil {
		return op.State, false, err
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		state, merged, err := s.applyOnce(ctx, op)
		if errors.Is(err, store.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return op.State, false, err
		}
		op.State = state
		return state, merged, nil
	}

	return op.State, false, fmt.Errorf("%w after %d attempts", store.ErrVersionMismatch, maxCASRetries)
}

func (s *Service) applyOnce(ctx context.Context, op *models.OfflineOperation) (models.OpState, bool, error) {
	entity, err := s.store.GetEntity(ctx, op.EntityID)
	if errors.Is(err, store.ErrEntityNotFound) {
		return s.applyToNew(ctx, op)
	}
	if err != nil {
		return op.State, false, fmt.Errorf("failed to read entity: %w", err)
	}

	// Идемпотентность реплея: вектор сущности уже включает этот seq
	if entity.Clock.Get(op.Origin) >= int64(op.Seq) {
		return models.OpApplied, false, nil
	}

	if op.Clock.Dominates(entity.Clock) {
		// Причинно упорядоченная запись: применяем без слияния
		updated := entity.Clone()
		applyDelta(updated, op)
		updated.Clock = entity.Clock.Merge(op.Clock)
		updated.Clock[op.Origin] = maxSeq(updated.Clock[op.Origin], int64(op.Seq))

		if err := s.store.PutEntity(ctx, updated, entity.Version); err != nil {
			return op.State, false, err
		}
		return models.OpApplied, false, nil
	}

	// Конкурентные правки
	if op.Kind == models.OpDelete || entity.Deleted {
		return s.escalate(ctx, entity, op)
	}

	return s.mergeConcurrent(ctx, entity, op)
}

// applyToNew применяет операцию к отсутствующей сущности.
// Delete без сущности записывает tombstone, чтобы отсечь более поздние
// конкурентные правки.
func (s *Service) applyToNew(ctx context.Context, op *models.OfflineOperation) (models.OpState, bool, error) {
	entity := &models.Entity{
		ID:      op.EntityID,
		Fields:  make(map[string]crdt.Field, len(op.Delta)),
		Clock:   op.Clock.Clone(),
		Deleted: op.Kind == models.OpDelete,
	}
	for name, f := range op.Delta {
		entity.Fields[name] = f
	}
	entity.Clock[op.Origin] = maxSeq(entity.Clock[op.Origin], int64(op.Seq))

	if err := s.store.PutEntity(ctx, entity, 0); err != nil {
		return op.State, false, err
	}
	return models.OpApplied, false, nil
}

// mergeConcurrent сливает конкурентную правку пополево: независимые поля
// по LWW, аддитивные коллекции объединением, счетчики максимумом.
// Порядок реплея не влияет на сошедшийся результат.
func (s *Service) mergeConcurrent(ctx context.Context, entity *models.Entity, op *models.OfflineOperation) (models.OpState, bool, error) {
	merged := entity.Clone()
	strategies := make(map[string]crdt.MergeStrategy, len(op.Delta))

	for name, incoming := range op.Delta {
		existing, present := merged.Fields[name]
		if !present {
			merged.Fields[name] = incoming
			continue
		}

		out, strategy, err := crdt.MergeField(existing, incoming)
		if err != nil {
			// Несовместимые типы поля - безопасного автослияния нет
			return s.escalate(ctx, entity, op)
		}
		merged.Fields[name] = out
		strategies[name] = strategy
	}

	// Новый вектор: поточечный максимум входов плюс инкремент разрешающего узла
	merged.Clock = entity.Clock.Merge(op.Clock)
	merged.Clock[op.Origin] = maxSeq(merged.Clock[op.Origin], int64(op.Seq))
	merged.Clock.Observe(s.nodeID)

	if err := s.store.PutEntity(ctx, merged, entity.Version); err != nil {
		return op.State, false, err
	}

	record := &models.ConflictResolution{
		ID:          uuid.New().String(),
		EntityID:    entity.ID,
		OperationID: op.ID,
		ResolvedBy:  s.nodeID,
		Strategies:  strategies,
		ResultClock: merged.Clock.Clone(),
		ResolvedAt:  time.Now(),
	}
	if err := s.store.SaveConflict(ctx, record); err != nil {
		return op.State, false, fmt.Errorf("failed to record conflict resolution: %w", err)
	}

	s.logger.Info("concurrent edit merged",
		"entity_id", entity.ID,
		"operation_id", op.ID,
		"fields", len(strategies),
	)

	return models.OpApplied, true, nil
}

// escalate помечает сущность pending-review вместо тихого разрешения.
func (s *Service) escalate(ctx context.Context, entity *models.Entity, op *models.OfflineOperation) (models.OpState, bool, error) {
	updated := entity.Clone()
	updated.PendingReview = true
	updated.Clock = entity.Clock.Merge(op.Clock)
	updated.Clock[op.Origin] = maxSeq(updated.Clock[op.Origin], int64(op.Seq))

	if err := s.store.PutEntity(ctx, updated, entity.Version); err != nil {
		return op.State, false, err
	}

	record := &models.ConflictResolution{
		ID:          uuid.New().String(),
		EntityID:    entity.ID,
		OperationID: op.ID,
		ResolvedBy:  s.nodeID,
		Strategies:  map[string]crdt.MergeStrategy{},
		ResultClock: updated.Clock.Clone(),
		Escalated:   true,
		ResolvedAt:  time.Now(),
	}
	if err := s.store.SaveConflict(ctx, record); err != nil {
		return op.State, false, fmt.Errorf("failed to record escalation: %w", err)
	}

	s.logger.Warn("conflict escalated to pending review",
		"entity_id", entity.ID,
		"operation_id", op.ID,
		"kind", op.Kind,
	)

	return models.OpConflicted, false, nil
}

// Status возвращает наблюдаемое состояние drain.
func (s *Service) Status(ctx context.Context) DrainStatus {
	pending, err := s.queue.PendingCount(ctx)
	if err != nil {
		s.logger.Error("failed to count pending operations", "error", err)
		pending = -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.status
	status.Pending = pending
	status.Halted = s.halted
	status.HaltReason = s.haltReason
	return status
}

func (s *Service) setDraining(v bool) {
	s.mu.Lock()
	s.status.Draining = v
	s.mu.Unlock()
}

func (s *Service) recordResult(r *DrainResult) {
	s.mu.Lock()
	s.status.Applied += r.Applied
	s.status.Merged += r.Merged
	s.status.Conflicted += r.Conflicted
	s.status.LastDrain = time.Now()
	s.mu.Unlock()
}

// halt останавливает sync engine до вмешательства оператора.
func (s *Service) halt(reason string) {
	s.mu.Lock()
	s.halted = true
	s.haltReason = reason
	s.mu.Unlock()

	s.logger.Error("sync engine halted", "reason", reason)
}

func (s *Service) checkHalted() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return fmt.Errorf("%w: %s", ErrHalted, s.haltReason)
	}
	return nil
}

// applyDelta применяет поля операции к сущности без слияния.
func applyDelta(entity *models.Entity, op *models.OfflineOperation) {
	if op.Kind == models.OpDelete {
		entity.Deleted = true
		return
	}
	for name, f := range op.Delta {
		entity.Fields[name] = f
	}
}

func maxSeq(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
