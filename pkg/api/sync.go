package api

import "time"

// OfflineOperation одна оффлайн-операция для передачи в координатор
type OfflineOperation struct {
	CapturedAt time.Time        `json:"captured_at"`
	ID         string           `json:"id"`
	Origin     string           `json:"origin"`
	EntityID   string           `json:"entity_id"`
	Kind       string           `json:"kind"` // create | update | delete
	Delta      map[string]Field `json:"delta,omitempty"`
	Clock      map[string]int64 `json:"clock"`
	Seq        uint64           `json:"seq"`
}

// Field одно поле сущности вместе с merge-метаданными
type Field struct {
	Kind    string   `json:"kind"` // lww | set | counter
	Scalar  string   `json:"scalar,omitempty"`
	Stamp   int64    `json:"stamp,omitempty"`
	Origin  string   `json:"origin,omitempty"`
	Set     []string `json:"set,omitempty"`
	Counter int64    `json:"counter,omitempty"`
}

// EnqueueOpRequest представляет запрос на буферизацию оффлайн-операции
type EnqueueOpRequest struct {
	Operation OfflineOperation `json:"operation"`
}

// EnqueueOpResponse подтверждение постановки операции в журнал
type EnqueueOpResponse struct {
	OperationID string `json:"operation_id"`
	Seq         uint64 `json:"seq"`
}

// Entity каноническая сущность в ответах координатора
type Entity struct {
	UpdatedAt     time.Time        `json:"updated_at"`
	ID            string           `json:"id"`
	Fields        map[string]Field `json:"fields"`
	Clock         map[string]int64 `json:"clock"`
	Version       int64            `json:"version"`
	Deleted       bool             `json:"deleted"`
	PendingReview bool             `json:"pending_review"`
}

// ConflictsResponse сущности, ожидающие ручного разбора конфликта
type ConflictsResponse struct {
	Entities []Entity `json:"entities"`
}

// DrainStatusResponse наблюдаемое состояние sync engine
type DrainStatusResponse struct {
	LastDrain  time.Time `json:"last_drain,omitzero"`
	HaltReason string    `json:"halt_reason,omitempty"`
	Pending    int       `json:"pending"`
	Applied    int       `json:"applied"`
	Merged     int       `json:"merged"`
	Conflicted int       `json:"conflicted"`
	Draining   bool      `json:"draining"`
	Halted     bool      `json:"halted"`
}
