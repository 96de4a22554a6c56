package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/registry"
)

// Common scheduler errors
var (
	// ErrQueueFull indicates backpressure: the submit queue is at capacity
	ErrQueueFull = errors.New("task queue is full")

	// ErrTaskNotFound indicates that task id is unknown
	ErrTaskNotFound = errors.New("task not found")

	// ErrPermanent marks a worker-reported unrecoverable failure.
	// Задача с такой ошибкой не ретраится.
	ErrPermanent = errors.New("permanent task failure")
)

//go:generate moq -out dispatcher_mock.go . Dispatcher

// Dispatcher доставляет задачу на выбранный узел и дожидается результата.
// Реализация обязана уважать deadline контекста.
type Dispatcher interface {
	Dispatch(ctx context.Context, node models.Node, task *models.Task) ([]byte, error)
}

// NodePool источник кандидатов и учет емкости. Реализуется реестром.
type NodePool interface {
	Candidates(required []string) []registry.NodeView
	TryAcquire(id string) bool
	Release(id string)
}

// Config параметры планировщика.
type Config struct {
	QueueSize       int           // емкость очереди, дальше backpressure
	MaxRetries      int
	BackoffBase     time.Duration // база экспоненциального backoff
	BackoffCap      time.Duration // потолок backoff
	MaxWait         time.Duration // шаг эскалации эффективного приоритета
	DispatchTimeout time.Duration
}

// Scheduler принимает задачи, подбирает подходящие узлы и ретраит сбои.
type Scheduler struct {
	pool       NodePool
	dispatcher Dispatcher
	logger     *slog.Logger
	queue      *taskQueue
	tasks      map[string]*models.Task
	byKey      map[string]string // idempotency key -> task id
	cancels    map[string]context.CancelFunc
	wake       chan struct{}
	cfg        Config
	seq        uint64
	mu         sync.Mutex
	inflight   sync.WaitGroup
}

// New создает планировщик.
func New(cfg Config, pool NodePool, dispatcher Dispatcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		pool:       pool,
		dispatcher: dispatcher,
		logger:     logger,
		queue:      newTaskQueue(),
		tasks:      make(map[string]*models.Task),
		byKey:      make(map[string]string),
		cancels:    make(map[string]context.CancelFunc),
		wake:       make(chan struct{}, 1),
	}
}

// Submit ставит задачу в очередь по приоритету.
// Повторная подача с уже виденным idempotency key возвращает прежнюю задачу
// без повторного выполнения. Переполнение очереди - backpressure, не сбой.
func (s *Scheduler) Submit(task *models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.IdempotencyKey != "" {
		if id, seen := s.byKey[task.IdempotencyKey]; seen {
			return s.tasks[id].Clone(), nil
		}
	}

	if s.queue.Len() >= s.cfg.QueueSize {
		return nil, ErrQueueFull
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	s.seq++
	task.Seq = s.seq
	task.Status = models.TaskQueued
	task.CreatedAt = time.Now()

	s.tasks[task.ID] = task
	if task.IdempotencyKey != "" {
		s.byKey[task.IdempotencyKey] = task.ID
	}
	s.queue.push(task, task.CreatedAt, s.cfg.MaxWait)

	s.logger.Info("task submitted",
		"task_id", task.ID,
		"priority", task.Priority,
		"capabilities", task.RequiredCapabilities,
	)

	s.kick()
	return task.Clone(), nil
}

// Status возвращает текущее состояние задачи.
func (s *Scheduler) Status(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Cancel кооперативная отмена: сигнализирует abort выполняющейся задаче
// и помечает статус. Прерывание посреди выполнения не гарантируется.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return nil
	}

	if cancel, running := s.cancels[id]; running {
		cancel()
	}
	task.Status = models.TaskFailed
	task.LastError = "canceled"

	s.logger.Info("task canceled", "task_id", id)
	return nil
}

// Kick будит цикл назначения (например, после drain оффлайн-очереди).
func (s *Scheduler) Kick() { s.kick() }

func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run запускает цикл назначения. Блокируется до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.BackoffBase)
	defer ticker.Stop()

	s.logger.Info("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.logger.Info("scheduler stopped")
			return
		case <-s.wake:
		case <-ticker.C:
		}
		s.assignReady(ctx)
	}
}

// assignReady назначает задачи, пока есть и готовые задачи, и подходящие узлы.
// Отсутствие подходящего узла оставляет задачу в очереди (backpressure).
func (s *Scheduler) assignReady(ctx context.Context) {
	for {
		task, node, ok := s.next()
		if !ok {
			return
		}
		s.launch(ctx, task, node)
	}
}

// next снимает задачу с наивысшим эффективным приоритетом и резервирует
// для нее узел. Емкость перепроверяется по актуальному состоянию реестра
// в момент коммита назначения (TryAcquire).
func (s *Scheduler) next() (*models.Task, models.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.queue.refresh(now, s.cfg.MaxWait)

	for {
		task := s.queue.pop()
		if task == nil {
			return nil, models.Node{}, false
		}
		if task.Status != models.TaskQueued {
			// Отменена, пока ждала в очереди
			continue
		}

		candidates := s.pool.Candidates(task.RequiredCapabilities)
		for {
			view, found := pickLeastLoaded(candidates)
			if !found {
				// Нет подходящего узла - возвращаем в очередь и ждем емкости
				s.queue.push(task, now, s.cfg.MaxWait)
				return nil, models.Node{}, false
			}
			if s.pool.TryAcquire(view.Node.ID) {
				task.Status = models.TaskAssigned
				task.AssignedNode = view.Node.ID
				return task, view.Node, true
			}
			candidates = without(candidates, view.Node.ID)
		}
	}
}

// launch выполняет доставку задачи в отдельной goroutine.
func (s *Scheduler) launch(ctx context.Context, task *models.Task, node models.Node) {
	var (
		dispatchCtx context.Context
		cancel      context.CancelFunc
	)
	if task.Deadline.IsZero() {
		dispatchCtx, cancel = context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	} else {
		dispatchCtx, cancel = context.WithDeadline(ctx, task.Deadline)
	}

	s.mu.Lock()
	task.Status = models.TaskRunning
	s.cancels[task.ID] = cancel
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		result, err := s.dispatcher.Dispatch(dispatchCtx, node, task.Clone())
		s.pool.Release(node.ID)

		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.cancels, task.ID)

		if task.Status.Terminal() {
			// Отменена во время выполнения
			return
		}

		if err != nil {
			s.handleFailureLocked(task, err)
			return
		}

		task.Status = models.TaskSucceeded
		task.Result = result
		s.logger.Info("task succeeded", "task_id", task.ID, "node_id", node.ID)
	}()
}

// handleFailureLocked разбирает сбой доставки: permanent ошибки терминальны,
// transient уходят в backoff и повторную постановку, исчерпание ретраев -
// в dead-letter. Вызывается под s.mu.
func (s *Scheduler) handleFailureLocked(task *models.Task, err error) {
	task.AssignedNode = ""
	task.LastError = err.Error()

	if errors.Is(err, ErrPermanent) {
		task.Status = models.TaskFailed
		s.logger.Warn("task failed permanently", "task_id", task.ID, "error", err)
		return
	}

	task.RetryCount++
	if task.RetryCount > s.cfg.MaxRetries {
		task.Status = models.TaskDeadLettered
		task.DeadLetteredAt = time.Now()
		task.DeadLetterReason = fmt.Sprintf("retries exhausted (%d): %s", s.cfg.MaxRetries, err)
		s.logger.Warn("task dead-lettered", "task_id", task.ID, "retries", task.RetryCount-1)
		return
	}

	task.Status = models.TaskQueued
	delay := backoff(s.cfg.BackoffBase, s.cfg.BackoffCap, task.RetryCount)
	s.logger.Info("task requeued",
		"task_id", task.ID,
		"retry", task.RetryCount,
		"backoff", delay,
	)

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		if task.Status == models.TaskQueued {
			s.queue.push(task, time.Now(), s.cfg.MaxWait)
		}
		s.mu.Unlock()
		s.kick()
	})
}

// backoff экспоненциальная задержка с потолком.
func backoff(base, limit time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// pickLeastLoaded выбирает наименее загруженный узел:
// минимальная доля занятых слотов, при равенстве - меньше активных назначений.
func pickLeastLoaded(candidates []registry.NodeView) (registry.NodeView, bool) {
	var best registry.NodeView
	found := false

	for _, v := range candidates {
		if !found || lessLoaded(v, best) {
			best = v
			found = true
		}
	}
	return best, found
}

func lessLoaded(a, b registry.NodeView) bool {
	au := utilization(a)
	bu := utilization(b)
	if au != bu {
		return au < bu
	}
	return a.Active < b.Active
}

func utilization(v registry.NodeView) float64 {
	if v.Node.MaxConcurrency <= 0 {
		return 1.0
	}
	return float64(v.Active) / float64(v.Node.MaxConcurrency)
}

func without(views []registry.NodeView, id string) []registry.NodeView {
	out := views[:0]
	for _, v := range views {
		if v.Node.ID != id {
			out = append(out, v)
		}
	}
	return out
}
