package api

// NodeInfo описание узла при регистрации
type NodeInfo struct {
	ID             string   `json:"id"`              // идентификатор узла
	Role           string   `json:"role"`            // cloud | edge | client
	Addr           string   `json:"addr"`            // адрес для обратных вызовов
	Capabilities   []string `json:"capabilities"`    // публикуемые capability теги
	MaxConcurrency int      `json:"max_concurrency"` // лимит параллельных назначений
}

// RegisterNodeRequest представляет запрос на регистрацию узла
type RegisterNodeRequest struct {
	Node       NodeInfo `json:"node"`
	JoinSecret string   `json:"join_secret"` // общий секрет кластера
}

// RegisterNodeResponse представляет ответ на успешную регистрацию
type RegisterNodeResponse struct {
	Token     string `json:"token"`      // JWT токен узла
	ExpiresIn int64  `json:"expires_in"` // время жизни токена в секундах
}

// HeartbeatRequest периодический сигнал живости от узла
type HeartbeatRequest struct {
	ActiveTasks int     `json:"active_tasks"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
}

// NodeHealth один узел в снимке здоровья
type NodeHealth struct {
	NodeID      string  `json:"node_id"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	LatencyMS   float64 `json:"latency_ms"`
	SuccessRate float64 `json:"success_rate"`
	MissCount   int     `json:"miss_count"`
	Active      int     `json:"active"`
}

// HealthSnapshotResponse снимок статусов всех узлов для observability
type HealthSnapshotResponse struct {
	Nodes []NodeHealth `json:"nodes"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
