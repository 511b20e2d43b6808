package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/api/dto"
	"github.com/hugh/go-inspect/internal/api/middleware"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/scheduler"
)

type ReminderHandler struct {
	scheduler     *scheduler.Service
	logger        *slog.Logger
	retentionDays int
}

func NewReminderHandler(svc *scheduler.Service, logger *slog.Logger, retentionDays int) *ReminderHandler {
	if retentionDays < 1 {
		retentionDays = 90
	}
	return &ReminderHandler{scheduler: svc, logger: logger, retentionDays: retentionDays}
}

// ReminderResponse represents a reminder task in API responses
type ReminderResponse struct {
	ID            string  `json:"id"`
	ControlPlanID string  `json:"control_plan_id"`
	MachineID     *string `json:"machine_id,omitempty"`
	Title         string  `json:"title"`
	DueDate       string  `json:"due_date"`
	Period        string  `json:"period"`
	PeriodDays    *int    `json:"period_days,omitempty"`
	Status        string  `json:"status"`
	CompletedAt   *string `json:"completed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toReminderResponse(t *models.ReminderTask) ReminderResponse {
	resp := ReminderResponse{
		ID:            t.ID.String(),
		ControlPlanID: t.ControlPlanID.String(),
		Title:         t.Title,
		DueDate:       t.DueDate.UTC().Format(time.DateOnly),
		Period:        t.Period,
		PeriodDays:    t.PeriodDays,
		Status:        string(t.Status),
		CompletedAt:   dto.FormatTime(t.CompletedAt),
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.MachineID != nil {
		s := t.MachineID.String()
		resp.MachineID = &s
	}
	return resp
}

type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
	Days    int   `json:"days"`
}

// List handles GET /api/v1/reminders
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	p := pagination(r)
	q := newQueryFilters(r)
	filter := scheduler.ReminderFilter{
		OrgID:         orgID,
		Status:        models.ReminderStatus(r.URL.Query().Get("status")),
		ControlPlanID: q.id("control_plan_id"),
		MachineID:     q.id("machine_id"),
		DueFrom:       q.date("due_from"),
		DueTo:         q.date("due_to"),
		Offset:        p.Offset(),
		Limit:         p.PerPage,
	}
	if q.failed(w) {
		return
	}

	reminders, total, err := h.scheduler.ListReminders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response := make([]ReminderResponse, len(reminders))
	for i := range reminders {
		response[i] = toReminderResponse(&reminders[i])
	}
	writeJSON(w, http.StatusOK, p.Paginate(response, total))
}

// Complete handles POST /api/v1/reminders/{id}/complete
func (h *ReminderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.scheduler.CompleteReminder)
}

// Skip handles POST /api/v1/reminders/{id}/skip
func (h *ReminderHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.scheduler.SkipReminder)
}

// PurgeOld handles DELETE /api/v1/reminders/purge-old?days=N for the
// caller's organization.
func (h *ReminderHandler) PurgeOld(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	q := newQueryFilters(r)
	days := q.number("days", h.retentionDays)
	if q.failed(w) {
		return
	}

	deleted, err := h.scheduler.PurgeOldReminders(r.Context(), orgID, days)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Deleted: deleted, Days: days})
}

type closeFunc func(ctx context.Context, orgID, id uuid.UUID) (*models.ReminderTask, error)

func (h *ReminderHandler) close(w http.ResponseWriter, r *http.Request, fn closeFunc) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "reminder")
	if !ok {
		return
	}

	reminder, err := fn(r.Context(), orgID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponse(reminder))
}
