package models

import (
	"time"

	"github.com/iudanet/meshsync/internal/crdt"
)

// OpKind тип оффлайн-операции над сущностью.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// OpState состояние оффлайн-операции.
// Машина состояний: captured -> queued -> replaying -> {applied | conflicted} -> resolved.
// Терминальные состояния: applied и resolved.
type OpState string

const (
	OpCaptured   OpState = "captured"
	OpQueued     OpState = "queued"
	OpReplaying  OpState = "replaying"
	OpApplied    OpState = "applied"
	OpConflicted OpState = "conflicted"
	OpResolved   OpState = "resolved"
)

// OfflineOperation локальная операция записи, захваченная во время
// отсутствия связи с авторитетным endpoint. Append-only до применения.
type OfflineOperation struct {
	CapturedAt time.Time             `json:"captured_at"`
	ID         string                `json:"id"`
	Origin     string                `json:"origin"` // узел, захвативший операцию
	EntityID   string                `json:"entity_id"`
	Kind       OpKind                `json:"kind"`
	State      OpState               `json:"state"`
	Delta      map[string]crdt.Field `json:"delta,omitempty"` // изменяемые поля
	Clock      crdt.VersionVector    `json:"clock"`           // вектор версий на момент захвата
	Seq        uint64                `json:"seq"`             // строго возрастающий в пределах origin
}

// Entity каноническая сущность в авторитетном хранилище.
// Вектор версий — поточечный максимум sequence номеров всех внесших origin.
type Entity struct {
	UpdatedAt     time.Time             `json:"updated_at"`
	ID            string                `json:"id"`
	Fields        map[string]crdt.Field `json:"fields"`
	Clock         crdt.VersionVector    `json:"clock"`
	Version       int64                 `json:"version"` // счетчик для optimistic locking в хранилище
	Deleted       bool                  `json:"deleted"`
	PendingReview bool                  `json:"pending_review"` // конфликт ждет ручного разбора
}

// Clone создает глубокую копию сущности.
func (e *Entity) Clone() *Entity {
	fields := make(map[string]crdt.Field, len(e.Fields))
	for name, f := range e.Fields {
		set := make([]string, len(f.Set))
		copy(set, f.Set)
		f.Set = set
		fields[name] = f
	}

	out := *e
	out.Fields = fields
	out.Clock = e.Clock.Clone()
	return &out
}

// ConflictResolution запись о слиянии конкурентных правок одной сущности.
type ConflictResolution struct {
	ResolvedAt  time.Time                     `json:"resolved_at"`
	ID          string                        `json:"id"`
	EntityID    string                        `json:"entity_id"`
	OperationID string                        `json:"operation_id"`
	ResolvedBy  string                        `json:"resolved_by"` // узел, выполнивший слияние
	Strategies  map[string]crdt.MergeStrategy `json:"strategies"`  // поле -> примененная стратегия
	ResultClock crdt.VersionVector            `json:"result_clock"`
	Escalated   bool                          `json:"escalated"` // true = безопасного автослияния нет
}
