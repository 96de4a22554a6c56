package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/scheduler"
	"github.com/iudanet/meshsync/pkg/api"
)

// TaskSubmitter определяет операции планировщика, нужные task handlers.
type TaskSubmitter interface {
	Submit(task *models.Task) (*models.Task, error)
	Status(id string) (*models.Task, error)
	Cancel(id string) error
}

// TasksHandler обрабатывает постановку задач и запросы статуса.
type TasksHandler struct {
	logger    *slog.Logger
	scheduler TaskSubmitter
}

// NewTasksHandler создает handler задач.
func NewTasksHandler(logger *slog.Logger, sched TaskSubmitter) *TasksHandler {
	return &TasksHandler{
		logger:    logger,
		scheduler: sched,
	}
}

// Submit обрабатывает POST /api/v1/tasks
// Подача идемпотентна по idempotency key: повтор возвращает прежнюю задачу.
// Переполнение очереди возвращает 429 (backpressure, не сбой).
func (h *TasksHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	task := &models.Task{
		IdempotencyKey:       req.IdempotencyKey,
		Payload:              req.Payload,
		RequiredCapabilities: req.RequiredCapabilities,
		Priority:             req.Priority,
	}
	if req.DeadlineSeconds > 0 {
		task.Deadline = time.Now().Add(time.Duration(req.DeadlineSeconds) * time.Second)
	}

	submitted, err := h.scheduler.Submit(task)
	if err != nil {
		if errors.Is(err, scheduler.ErrQueueFull) {
			writeError(w, h.logger, http.StatusTooManyRequests, "task queue is full")
			return
		}
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, api.SubmitTaskResponse{
		TaskID: submitted.ID,
		Status: string(submitted.Status),
	})
}

// Status обрабатывает GET /api/v1/tasks/{id}
func (h *TasksHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, h.logger, http.StatusBadRequest, "task id is required")
		return
	}

	task, err := h.scheduler.Status(id)
	if err != nil {
		if errors.Is(err, scheduler.ErrTaskNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.TaskStatusResponse{
		TaskID:           task.ID,
		Status:           string(task.Status),
		AssignedNode:     task.AssignedNode,
		RetryCount:       task.RetryCount,
		LastError:        task.LastError,
		DeadLetterReason: task.DeadLetterReason,
		Result:           task.Result,
	})
}

// Cancel обрабатывает DELETE /api/v1/tasks/{id}
// Отмена кооперативная: прерывание посреди выполнения не гарантируется.
func (h *TasksHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, h.logger, http.StatusBadRequest, "task id is required")
		return
	}

	if err := h.scheduler.Cancel(id); err != nil {
		if errors.Is(err, scheduler.ErrTaskNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
