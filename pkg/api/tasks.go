package api

// SubmitTaskRequest представляет запрос на постановку задачи
type SubmitTaskRequest struct {
	IdempotencyKey       string   `json:"idempotency_key"`
	Payload              []byte   `json:"payload"`
	RequiredCapabilities []string `json:"required_capabilities"`
	Priority             int      `json:"priority"`
	DeadlineSeconds      int      `json:"deadline_seconds,omitempty"`
}

// SubmitTaskResponse представляет ответ на постановку задачи
type SubmitTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskStatusResponse текущее состояние задачи
type TaskStatusResponse struct {
	TaskID           string `json:"task_id"`
	Status           string `json:"status"`
	AssignedNode     string `json:"assigned_node,omitempty"`
	RetryCount       int    `json:"retry_count"`
	LastError        string `json:"last_error,omitempty"`
	DeadLetterReason string `json:"dead_letter_reason,omitempty"`
	Result           []byte `json:"result,omitempty"`
}

// DispatchRequest доставка задачи на исполнительный узел
type DispatchRequest struct {
	TaskID  string `json:"task_id"`
	Payload []byte `json:"payload"`
}

// DispatchResponse результат выполнения задачи узлом
type DispatchResponse struct {
	TaskID    string `json:"task_id"`
	Result    []byte `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Permanent bool   `json:"permanent,omitempty"` // true = невосстановимая ошибка, не ретраить
}

// ResolveResponse упорядоченный список кандидатов для логического сервиса
type ResolveResponse struct {
	Service    string      `json:"service"`
	Policy     string      `json:"policy"`
	Candidates []Candidate `json:"candidates"`
}

// Candidate один кандидат-endpoint в выдаче роутера
type Candidate struct {
	NodeID string `json:"node_id"`
	Addr   string `json:"addr"`
	Role   string `json:"role"`
}
