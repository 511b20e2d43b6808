package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/go-inspect/internal/api/dto"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/internal/tasks"
	"github.com/hugh/go-inspect/pkg/queue"
)

type SchedulerHandler struct {
	scheduler *scheduler.Service
	queue     queue.Enqueuer
	logger    *slog.Logger
	now       func() time.Time
}

// NewSchedulerHandler creates the manual tick handler. With a nil queue the
// tick runs inside the request.
func NewSchedulerHandler(svc *scheduler.Service, q queue.Enqueuer, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{scheduler: svc, queue: q, logger: logger, now: time.Now}
}

type TickEnqueuedResponse struct {
	Enqueued bool   `json:"enqueued"`
	TaskID   string `json:"task_id"`
	Queue    string `json:"queue"`
}

// Tick handles POST /api/v1/scheduler/tick
func (h *SchedulerHandler) Tick(w http.ResponseWriter, r *http.Request) {
	if h.queue != nil {
		info, err := h.queue.Enqueue(tasks.NewSchedulerTickTask())
		if err != nil {
			h.logger.Error("failed to enqueue scheduler tick", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Failed to enqueue scheduler tick"})
			return
		}
		writeJSON(w, http.StatusAccepted, TickEnqueuedResponse{Enqueued: true, TaskID: info.ID, Queue: info.Queue})
		return
	}

	result, err := h.scheduler.Tick(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
