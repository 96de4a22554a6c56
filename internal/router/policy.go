package router

import (
	"sort"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/registry"
)

// Policy упорядочивает кандидатов маршрута по живым данным здоровья.
// Каждая политика - одна операция Order, выбираемая по тегу конфигурации.
type Policy interface {
	Name() models.PolicyTag
	Order(candidates []models.Candidate, views map[string]registry.NodeView) []models.Candidate
}

// roleRank ранг яруса: локальные ярусы дешевле и ближе.
func roleRank(role models.NodeRole) int {
	switch role {
	case models.RoleClient:
		return 0
	case models.RoleEdge:
		return 1
	case models.RoleCloud:
		return 2
	default:
		return 3
	}
}

// localFirst предпочитает ближайший здоровый ярус: клиент, затем edge,
// затем cloud. Кандидаты ниже порога здоровья уходят в хвост цепочки
// фолбэка, сохраняя порядок шаблона.
type localFirst struct {
	healthThreshold float64
}

func (p localFirst) Name() models.PolicyTag { return models.PolicyLocalFirst }

func (p localFirst) Order(candidates []models.Candidate, views map[string]registry.NodeView) []models.Candidate {
	healthy := make([]models.Candidate, 0, len(candidates))
	fallback := make([]models.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if isHealthy(c, views, p.healthThreshold) {
			healthy = append(healthy, c)
		} else {
			fallback = append(fallback, c)
		}
	}

	sort.SliceStable(healthy, func(i, j int) bool {
		return roleRank(healthy[i].Role) < roleRank(healthy[j].Role)
	})

	return append(healthy, fallback...)
}

// performance упорядочивает по возрастанию латентности, затем по убыванию
// success rate. Нездоровые кандидаты уходят в хвост.
type performance struct {
	healthThreshold float64
}

func (p performance) Name() models.PolicyTag { return models.PolicyPerformance }

func (p performance) Order(candidates []models.Candidate, views map[string]registry.NodeView) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		hi := isHealthy(out[i], views, p.healthThreshold)
		hj := isHealthy(out[j], views, p.healthThreshold)
		if hi != hj {
			return hi
		}

		ri := views[out[i].NodeID].Health
		rj := views[out[j].NodeID].Health
		if ri.LatencyMS != rj.LatencyMS {
			return ri.LatencyMS < rj.LatencyMS
		}
		return ri.SuccessRate > rj.SuccessRate
	})

	return out
}

// costOptimized минимизирует стоимость исполнения: дешевые ярусы раньше
// дорогих, внутри яруса - по латентности. У модели стоимости нет явных
// тарифов, ранг яруса служит прокси.
type costOptimized struct {
	healthThreshold float64
}

func (p costOptimized) Name() models.PolicyTag { return models.PolicyCost }

func (p costOptimized) Order(candidates []models.Candidate, views map[string]registry.NodeView) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		hi := isHealthy(out[i], views, p.healthThreshold)
		hj := isHealthy(out[j], views, p.healthThreshold)
		if hi != hj {
			return hi
		}

		if roleRank(out[i].Role) != roleRank(out[j].Role) {
			return roleRank(out[i].Role) < roleRank(out[j].Role)
		}
		return views[out[i].NodeID].Health.LatencyMS < views[out[j].NodeID].Health.LatencyMS
	})

	return out
}

// isHealthy кандидат считается здоровым, если узел известен реестру,
// находится online и его success rate не ниже порога.
func isHealthy(c models.Candidate, views map[string]registry.NodeView, threshold float64) bool {
	v, known := views[c.NodeID]
	if !known {
		return false
	}
	return v.Node.Status == models.NodeOnline && v.Health.SuccessRate >= threshold
}
