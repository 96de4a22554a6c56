package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/validation"
)

// Common registry errors
var (
	// ErrDuplicateNode indicates that a node with this id is already registered
	ErrDuplicateNode = errors.New("node already registered")

	// ErrNodeNotFound indicates that node was not found in the registry
	ErrNodeNotFound = errors.New("node not found")
)

// Config пороги и интервалы наблюдения за узлами.
type Config struct {
	MissDegraded  int           // подряд пропусков до online -> degraded
	MissOffline   int           // подряд пропусков до degraded -> offline
	OfflineTTL    time.Duration // offline дольше TTL -> дерегистрация
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// TransitionFunc вызывается при смене статуса узла.
// Коллбеки выполняются вне per-node блокировки.
type TransitionFunc func(nodeID string, from, to models.NodeStatus)

// NodeView снимок узла вместе с данными здоровья и текущей нагрузкой.
type NodeView struct {
	Node   models.Node
	Health models.HealthRecord
	Active int // назначения, закоммиченные планировщиком
}

// nodeEntry запись арены узлов. Каждая запись защищена собственным
// мьютексом: переходы статуса одного узла линеаризуемы, узлы не
// конкурируют за общую блокировку.
type nodeEntry struct {
	offlineSince time.Time
	node         models.Node
	health       models.HealthRecord
	active       int
	mu           sync.Mutex
}

// Registry реестр исполнительных узлов.
// Внешний RWMutex защищает только форму map, состояние узла - его собственный lock.
type Registry struct {
	nodes        map[string]*nodeEntry
	logger       *slog.Logger
	onTransition []TransitionFunc
	cfg          Config
	mu           sync.RWMutex
}

// New создает реестр узлов.
func New(cfg Config, logger *slog.Logger) *Registry {
	return &Registry{
		nodes:  make(map[string]*nodeEntry),
		cfg:    cfg,
		logger: logger,
	}
}

// OnTransition регистрирует коллбек смены статуса.
// Вызывается до запуска фоновых циклов.
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onTransition = append(r.onTransition, fn)
}

// Register регистрирует новый узел со статусом online.
// Повторная регистрация того же id отклоняется.
func (r *Registry) Register(node models.Node) error {
	if err := validation.ValidateNodeID(node.ID); err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID]; exists {
		return ErrDuplicateNode
	}

	now := time.Now()
	node.Status = models.NodeOnline
	node.MissCount = 0
	node.RegisteredAt = now
	node.LastHeartbeat = now

	r.nodes[node.ID] = &nodeEntry{
		node: node,
		health: models.HealthRecord{
			NodeID:      node.ID,
			SuccessRate: 1.0,
			LastCheck:   now,
		},
	}

	r.logger.Info("node registered",
		"node_id", node.ID,
		"role", node.Role,
		"capabilities", node.Capabilities,
	)

	return nil
}

// Deregister удаляет узел из реестра.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; !exists {
		return ErrNodeNotFound
	}
	delete(r.nodes, id)

	r.logger.Info("node deregistered", "node_id", id)
	return nil
}

// Heartbeat фиксирует периодический сигнал живости от узла.
// Сбрасывает счетчик пропусков и обновляет нагрузку; успешный heartbeat
// всегда возвращает узел в online.
func (r *Registry) Heartbeat(id string, load models.LoadMetrics) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.node.LastHeartbeat = time.Now()
	e.node.Load = load
	from, to := r.restoreLocked(e)
	e.mu.Unlock()

	r.notify(id, from, to)
	return nil
}

// RecordSuccess фиксирует успешную активную проверку узла.
func (r *Registry) RecordSuccess(id string, latency time.Duration) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	now := time.Now()

	e.mu.Lock()
	e.health.LatencyMS = float64(latency.Milliseconds())
	e.health.SuccessRate = ewma(e.health.SuccessRate, 1.0)
	e.health.LastCheck = now
	from, to := r.restoreLocked(e)
	e.mu.Unlock()

	r.notify(id, from, to)
	return nil
}

// RecordMiss фиксирует пропущенный heartbeat или probe.
// Переходы строго монотонны: online -> degraded по MissDegraded,
// degraded -> offline по MissOffline.
func (r *Registry) RecordMiss(id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	now := time.Now()

	e.mu.Lock()
	e.node.MissCount++
	e.health.SuccessRate = ewma(e.health.SuccessRate, 0.0)
	e.health.LastCheck = now

	from := e.node.Status
	to := from
	switch {
	case e.node.Status == models.NodeOnline && e.node.MissCount >= r.cfg.MissDegraded:
		to = models.NodeDegraded
	case e.node.Status == models.NodeDegraded && e.node.MissCount >= r.cfg.MissOffline:
		to = models.NodeOffline
	}
	if to != from {
		e.node.Status = to
		if to == models.NodeOffline {
			e.offlineSince = now
		}
	}
	e.mu.Unlock()

	r.notify(id, from, to)
	return nil
}

// MarkDegraded переводит online узел в degraded в обход счетчика пропусков.
// Используется роутером при неудачной попытке в окне запроса.
func (r *Registry) MarkDegraded(id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	from := e.node.Status
	to := from
	if from == models.NodeOnline {
		to = models.NodeDegraded
		e.node.Status = to
		e.node.MissCount = r.cfg.MissDegraded
	}
	e.mu.Unlock()

	r.notify(id, from, to)
	return nil
}

// MarkOffline явный сигнал жесткого отключения: единственный случай,
// когда ступень degraded пропускается.
func (r *Registry) MarkOffline(id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	from := e.node.Status
	to := models.NodeOffline
	e.node.Status = to
	e.offlineSince = time.Now()
	e.mu.Unlock()

	r.notify(id, from, to)
	return nil
}

// Get возвращает копию узла по id.
func (r *Registry) Get(id string) (*models.Node, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.node.Clone(), nil
}

// Snapshot возвращает снимок всех узлов с данными здоровья.
// Снимок может слегка отставать; для маршрутизации это приемлемо.
func (r *Registry) Snapshot() []NodeView {
	r.mu.RLock()
	entries := make([]*nodeEntry, 0, len(r.nodes))
	for _, e := range r.nodes {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	views := make([]NodeView, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		views = append(views, NodeView{
			Node:   *e.node.Clone(),
			Health: e.health,
			Active: e.active,
		})
		e.mu.Unlock()
	}
	return views
}

// Candidates возвращает online узлы, чьи способности покрывают required
// и у которых есть запас по параллелизму.
func (r *Registry) Candidates(required []string) []NodeView {
	views := r.Snapshot()

	out := make([]NodeView, 0, len(views))
	for _, v := range views {
		if v.Node.Status != models.NodeOnline {
			continue
		}
		if !v.Node.HasCapabilities(required) {
			continue
		}
		if v.Active >= v.Node.MaxConcurrency {
			continue
		}
		out = append(out, v)
	}
	return out
}

// TryAcquire перепроверяет статус и емкость по актуальному состоянию
// и резервирует слот назначения. Возвращает false, если узел больше не годится.
func (r *Registry) TryAcquire(id string) bool {
	e, err := r.entry(id)
	if err != nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.node.Status != models.NodeOnline {
		return false
	}
	if e.active >= e.node.MaxConcurrency {
		return false
	}
	e.active++
	return true
}

// Release освобождает слот назначения.
func (r *Registry) Release(id string) {
	e, err := r.entry(id)
	if err != nil {
		return
	}

	e.mu.Lock()
	if e.active > 0 {
		e.active--
	}
	e.mu.Unlock()
}

// reapExpired дерегистрирует узлы, находящиеся offline дольше TTL.
// Это lifecycle событие, не ошибка.
func (r *Registry) reapExpired(now time.Time) {
	for _, v := range r.Snapshot() {
		if v.Node.Status != models.NodeOffline {
			continue
		}

		e, err := r.entry(v.Node.ID)
		if err != nil {
			continue
		}

		e.mu.Lock()
		expired := e.node.Status == models.NodeOffline &&
			!e.offlineSince.IsZero() &&
			now.Sub(e.offlineSince) > r.cfg.OfflineTTL
		e.mu.Unlock()

		if expired {
			r.logger.Info("node ttl expired", "node_id", v.Node.ID)
			_ = r.Deregister(v.Node.ID)
		}
	}
}

// restoreLocked сбрасывает счетчик пропусков и возвращает узел в online.
// Вызывается под блокировкой записи; возвращает переход (from, to).
func (r *Registry) restoreLocked(e *nodeEntry) (models.NodeStatus, models.NodeStatus) {
	from := e.node.Status
	e.node.MissCount = 0
	e.node.Status = models.NodeOnline
	e.offlineSince = time.Time{}
	return from, models.NodeOnline
}

func (r *Registry) entry(id string) (*nodeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.nodes[id]
	if !exists {
		return nil, ErrNodeNotFound
	}
	return e, nil
}

// notify вызывает коллбеки смены статуса вне per-node блокировки.
func (r *Registry) notify(id string, from, to models.NodeStatus) {
	if from == to {
		return
	}

	r.logger.Info("node status changed", "node_id", id, "from", from, "to", to)

	r.mu.RLock()
	callbacks := r.onTransition
	r.mu.RUnlock()

	for _, fn := range callbacks {
		fn(id, from, to)
	}
}

// ewma экспоненциальное скользящее среднее для success rate.
func ewma(prev, sample float64) float64 {
	const alpha = 0.2
	return prev*(1-alpha) + sample*alpha
}
