package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/scheduler"
	"github.com/iudanet/meshsync/pkg/api"
)

// mockScheduler is a mock implementation of TaskSubmitter for testing
type mockScheduler struct {
	tasks     map[string]*models.Task
	submitErr error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{tasks: make(map[string]*models.Task)}
}

func (m *mockScheduler) Submit(task *models.Task) (*models.Task, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	task.ID = "task-1"
	task.Status = models.TaskQueued
	m.tasks[task.ID] = task
	return task, nil
}

func (m *mockScheduler) Status(id string) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, scheduler.ErrTaskNotFound
	}
	return task, nil
}

func (m *mockScheduler) Cancel(id string) error {
	task, ok := m.tasks[id]
	if !ok {
		return scheduler.ErrTaskNotFound
	}
	task.Status = models.TaskFailed
	task.LastError = "canceled"
	return nil
}

func submitBody(t *testing.T) *bytes.Buffer {
	t.Helper()

	body, err := json.Marshal(api.SubmitTaskRequest{
		IdempotencyKey:       "key-1",
		Payload:              []byte(`{"op":"resize"}`),
		RequiredCapabilities: []string{"transform"},
		Priority:             5,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestTasksHandler_Submit_Success(t *testing.T) {
	sched := newMockScheduler()
	h := NewTasksHandler(testLogger(), sched)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", submitBody(t))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp api.SubmitTaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "queued", resp.Status)

	task := sched.tasks["task-1"]
	require.NotNil(t, task)
	assert.Equal(t, "key-1", task.IdempotencyKey)
	assert.Equal(t, 5, task.Priority)
}

func TestTasksHandler_Submit_QueueFull(t *testing.T) {
	sched := newMockScheduler()
	sched.submitErr = scheduler.ErrQueueFull
	h := NewTasksHandler(testLogger(), sched)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", submitBody(t))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	// Переполнение очереди - это backpressure, а не сбой сервера
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "queue is full")
}

func TestTasksHandler_Submit_InvalidBody(t *testing.T) {
	h := NewTasksHandler(testLogger(), newMockScheduler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString("{broken"))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTasksHandler_Submit_InternalError(t *testing.T) {
	sched := newMockScheduler()
	sched.submitErr = errors.New("boom")
	h := NewTasksHandler(testLogger(), sched)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", submitBody(t))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTasksHandler_Status(t *testing.T) {
	sched := newMockScheduler()
	sched.tasks["task-1"] = &models.Task{
		ID:           "task-1",
		Status:       models.TaskDeadLettered,
		AssignedNode: "edge-1",
		RetryCount:   3,
		LastError:    "connection refused",
	}
	h := NewTasksHandler(testLogger(), sched)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task-1", nil)
	req.SetPathValue("id", "task-1")
	w := httptest.NewRecorder()

	h.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.TaskStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "dead_lettered", resp.Status)
	assert.Equal(t, "edge-1", resp.AssignedNode)
	assert.Equal(t, 3, resp.RetryCount)
	assert.Equal(t, "connection refused", resp.LastError)
}

func TestTasksHandler_Status_NotFound(t *testing.T) {
	h := NewTasksHandler(testLogger(), newMockScheduler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/ghost", nil)
	req.SetPathValue("id", "ghost")
	w := httptest.NewRecorder()

	h.Status(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasksHandler_Status_MissingID(t *testing.T) {
	h := NewTasksHandler(testLogger(), newMockScheduler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/", nil)
	w := httptest.NewRecorder()

	h.Status(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTasksHandler_Cancel(t *testing.T) {
	sched := newMockScheduler()
	sched.tasks["task-1"] = &models.Task{ID: "task-1", Status: models.TaskQueued}
	h := NewTasksHandler(testLogger(), sched)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/task-1", nil)
	req.SetPathValue("id", "task-1")
	w := httptest.NewRecorder()

	h.Cancel(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.TaskFailed, sched.tasks["task-1"].Status)
}

func TestTasksHandler_Cancel_NotFound(t *testing.T) {
	h := NewTasksHandler(testLogger(), newMockScheduler())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/ghost", nil)
	req.SetPathValue("id", "ghost")
	w := httptest.NewRecorder()

	h.Cancel(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
