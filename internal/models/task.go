package models

import "time"

// TaskStatus состояние задачи в планировщике.
type TaskStatus string

const (
	TaskQueued       TaskStatus = "queued"
	TaskAssigned     TaskStatus = "assigned"
	TaskRunning      TaskStatus = "running"
	TaskSucceeded    TaskStatus = "succeeded"
	TaskFailed       TaskStatus = "failed"
	TaskDeadLettered TaskStatus = "dead_lettered"
)

// Terminal возвращает true для конечных состояний.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskDeadLettered:
		return true
	}
	return false
}

// Task единица работы, поданная в планировщик.
// Инвариант: у задачи не более одного активного назначения одновременно.
type Task struct {
	CreatedAt            time.Time  `json:"created_at"`
	Deadline             time.Time  `json:"deadline,omitzero"`
	DeadLetteredAt       time.Time  `json:"dead_lettered_at,omitzero"`
	ID                   string     `json:"id"`
	IdempotencyKey       string     `json:"idempotency_key"`
	AssignedNode         string     `json:"assigned_node,omitempty"`
	Status               TaskStatus `json:"status"`
	LastError            string     `json:"last_error,omitempty"`
	DeadLetterReason     string     `json:"dead_letter_reason,omitempty"`
	Payload              []byte     `json:"payload"`
	Result               []byte     `json:"result,omitempty"`
	RequiredCapabilities []string   `json:"required_capabilities"`
	Priority             int        `json:"priority"` // больше - важнее
	RetryCount           int        `json:"retry_count"`
	Seq                  uint64     `json:"seq"` // порядок поступления, tie-break при равном приоритете
}

// Clone создает глубокую копию задачи.
func (t *Task) Clone() *Task {
	payload := make([]byte, len(t.Payload))
	copy(payload, t.Payload)

	result := make([]byte, len(t.Result))
	copy(result, t.Result)

	caps := make([]string, len(t.RequiredCapabilities))
	copy(caps, t.RequiredCapabilities)

	out := *t
	out.Payload = payload
	out.Result = result
	out.RequiredCapabilities = caps
	return &out
}
