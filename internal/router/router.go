package router

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/registry"
)

// Common router errors
var (
	// ErrUnknownService indicates that no route template exists for the service
	ErrUnknownService = errors.New("unknown service")

	// ErrNoCandidates indicates that every candidate is currently excluded
	ErrNoCandidates = errors.New("no eligible candidates")

	// ErrUnknownPolicy indicates an unrecognized policy tag
	ErrUnknownPolicy = errors.New("unknown routing policy")
)

// HealthSource живые данные здоровья узлов. Реализуется реестром.
type HealthSource interface {
	Snapshot() []registry.NodeView
}

// Config параметры роутера.
type Config struct {
	HealthThreshold  float64 // минимальный success rate здорового кандидата
	BreakerThreshold int     // неудач подряд до открытия breaker
	BreakerCooldown  time.Duration
}

// Router выбирает упорядоченный список кандидатов для логического сервиса.
type Router struct {
	routes   map[string]models.Route
	policies map[models.PolicyTag]Policy
	breakers map[string]*breaker
	health   HealthSource
	degrade  func(nodeID string)
	logger   *slog.Logger
	cfg      Config
	mu       sync.Mutex
}

// New создает роутер поверх статических шаблонов маршрутов.
// degrade вызывается для узла, не ответившего в окне запроса (обычно
// Registry.MarkDegraded); nil отключает обратную связь в реестр.
func New(cfg Config, routes []models.Route, health HealthSource, degrade func(nodeID string), logger *slog.Logger) *Router {
	byService := make(map[string]models.Route, len(routes))
	for _, rt := range routes {
		byService[rt.Service] = rt
	}

	return &Router{
		cfg:      cfg,
		routes:   byService,
		health:   health,
		degrade:  degrade,
		logger:   logger,
		breakers: make(map[string]*breaker),
		policies: map[models.PolicyTag]Policy{
			models.PolicyLocalFirst:  localFirst{healthThreshold: cfg.HealthThreshold},
			models.PolicyPerformance: performance{healthThreshold: cfg.HealthThreshold},
			models.PolicyCost:        costOptimized{healthThreshold: cfg.HealthThreshold},
		},
	}
}

// Resolve строит упорядоченный список кандидатов для сервиса.
// Пустой тег политики означает политику из шаблона маршрута.
// Кандидаты с открытым breaker исключаются до истечения cooldown.
func (r *Router) Resolve(service string, tag models.PolicyTag) ([]models.Candidate, error) {
	route, ok := r.routes[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	if tag == "" {
		tag = route.Policy
	}
	policy, ok := r.policies[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, tag)
	}

	now := time.Now()
	admitted := make([]models.Candidate, 0, len(route.Candidates))
	for _, c := range route.Candidates {
		if r.breakerFor(c.NodeID).allow(now) {
			admitted = append(admitted, c)
		}
	}
	if len(admitted) == 0 {
		return nil, ErrNoCandidates
	}

	views := indexViews(r.health.Snapshot())
	ordered := policy.Order(admitted, views)

	r.logger.Debug("route resolved",
		"service", service,
		"policy", tag,
		"candidates", len(ordered),
	)

	return ordered, nil
}

// ReportFailure фиксирует неудачную попытку против выбранного кандидата:
// узел помечается degraded, breaker учитывает сбой. Продвижение к
// следующему кандидату выполняет вызывающая сторона по уже выданному
// списку, что ограничивает число попыток его длиной.
func (r *Router) ReportFailure(nodeID string) {
	if r.degrade != nil {
		r.degrade(nodeID)
	}

	if opened := r.breakerFor(nodeID).recordFailure(time.Now()); opened {
		r.logger.Warn("circuit breaker opened",
			"node_id", nodeID,
			"cooldown", r.cfg.BreakerCooldown,
		)
	}
}

// ReportSuccess закрывает breaker кандидата.
func (r *Router) ReportSuccess(nodeID string) {
	r.breakerFor(nodeID).recordSuccess()
}

func (r *Router) breakerFor(nodeID string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[nodeID]
	if !ok {
		b = newBreaker(r.cfg.BreakerThreshold, r.cfg.BreakerCooldown)
		r.breakers[nodeID] = b
	}
	return b
}

func indexViews(views []registry.NodeView) map[string]registry.NodeView {
	out := make(map[string]registry.NodeView, len(views))
	for _, v := range views {
		out[v.Node.ID] = v
	}
	return out
}
