package models

// PolicyTag выбирает стратегию упорядочивания кандидатов маршрута.
type PolicyTag string

const (
	PolicyLocalFirst  PolicyTag = "local_first"
	PolicyPerformance PolicyTag = "performance"
	PolicyCost        PolicyTag = "cost"
)

// Candidate один кандидат-endpoint логического сервиса.
type Candidate struct {
	NodeID string   `json:"node_id"`
	Addr   string   `json:"addr"`
	Role   NodeRole `json:"role"`
}

// Route статический шаблон маршрута для логического сервиса:
// упорядоченный список кандидатов плюс политика по умолчанию.
// Шаблоны поставляются конфигурационным сервисом и не изменяются в рантайме.
type Route struct {
	Service    string      `json:"service"`
	Policy     PolicyTag   `json:"policy"`
	Candidates []Candidate `json:"candidates"`
}
