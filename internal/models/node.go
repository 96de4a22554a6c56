package models

import "time"

// NodeRole определяет ярус, к которому принадлежит узел.
type NodeRole string

const (
	RoleCloud  NodeRole = "cloud"
	RoleEdge   NodeRole = "edge"
	RoleClient NodeRole = "client"
)

// NodeStatus текущее состояние узла в реестре.
// Переходы монотонны: online -> degraded -> offline, ступень degraded
// пропускается только по явному сигналу жесткого отключения.
type NodeStatus string

const (
	NodeOnline   NodeStatus = "online"
	NodeDegraded NodeStatus = "degraded"
	NodeOffline  NodeStatus = "offline"
)

// LoadMetrics нагрузка, сообщаемая узлом в heartbeat.
type LoadMetrics struct {
	ActiveTasks int     `json:"active_tasks"` // число выполняемых назначений
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
}

// Node представляет исполнительный узел, известный реестру.
type Node struct {
	LastHeartbeat  time.Time   `json:"last_heartbeat"`
	RegisteredAt   time.Time   `json:"registered_at"`
	ID             string      `json:"id"`
	Role           NodeRole    `json:"role"`
	Addr           string      `json:"addr"`
	Status         NodeStatus  `json:"status"`
	Capabilities   []string    `json:"capabilities"`
	Load           LoadMetrics `json:"load"`
	MaxConcurrency int         `json:"max_concurrency"`
	MissCount      int         `json:"miss_count"` // подряд пропущенные heartbeat/probe
}

// HasCapabilities проверяет, что набор способностей узла является
// надмножеством требуемого набора.
func (n *Node) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(n.Capabilities))
	for _, c := range n.Capabilities {
		have[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := have[c]; !ok {
			return false
		}
	}
	return true
}

// Clone создает глубокую копию узла.
func (n *Node) Clone() *Node {
	caps := make([]string, len(n.Capabilities))
	copy(caps, n.Capabilities)

	out := *n
	out.Capabilities = caps
	return &out
}

// HealthRecord результат последней проверки здоровья узла.
// Питает и переходы статусов в реестре, и упорядочивание кандидатов в роутере.
type HealthRecord struct {
	LastCheck   time.Time `json:"last_check"`
	NodeID      string    `json:"node_id"`
	LatencyMS   float64   `json:"latency_ms"`
	SuccessRate float64   `json:"success_rate"` // скользящая доля успешных проверок [0..1]
}
