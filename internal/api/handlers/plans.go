package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/api/dto"
	"github.com/hugh/go-inspect/internal/api/middleware"
	"github.com/hugh/go-inspect/internal/api/validation"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/scheduler"
)

type PlanHandler struct {
	scheduler *scheduler.Service
	logger    *slog.Logger
}

func NewPlanHandler(svc *scheduler.Service, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{scheduler: svc, logger: logger}
}

// PlanRequest is the body of plan create and update. Dates use YYYY-MM-DD.
type PlanRequest struct {
	Name             string      `json:"name"`
	TemplateID       uuid.UUID   `json:"template_id"`
	Mode             string      `json:"mode,omitempty"`
	Period           string      `json:"period"`
	IntervalValue    int         `json:"interval_value,omitempty"`
	WeekDays         []string    `json:"week_days,omitempty"`
	DayOfMonth       *int        `json:"day_of_month,omitempty"`
	PeriodDays       *int        `json:"period_days,omitempty"`
	StartRule        string      `json:"start_rule,omitempty"`
	StartDate        string      `json:"start_date,omitempty"`
	EndDate          string      `json:"end_date,omitempty"`
	TargetMachineIDs []uuid.UUID `json:"target_machine_ids,omitempty"`
}

func (r PlanRequest) toInput() (scheduler.PlanInput, map[string]string) {
	errors := make(map[string]string)
	in := scheduler.PlanInput{
		Name:             validation.CleanName(r.Name),
		TemplateID:       r.TemplateID,
		Mode:             models.PlanMode(r.Mode),
		Period:           r.Period,
		IntervalValue:    r.IntervalValue,
		WeekDays:         r.WeekDays,
		DayOfMonth:       r.DayOfMonth,
		PeriodDays:       r.PeriodDays,
		StartRule:        r.StartRule,
		TargetMachineIDs: r.TargetMachineIDs,
	}
	if r.Period == "" {
		errors["period"] = "Period is required"
	}
	parse := func(field, v string) *time.Time {
		if v == "" {
			return nil
		}
		d, err := dto.ParseDate(v)
		if err != nil {
			errors[field] = "Must be a YYYY-MM-DD date"
			return nil
		}
		return &d
	}
	in.StartDate = parse("start_date", r.StartDate)
	in.EndDate = parse("end_date", r.EndDate)
	return in, errors
}

// PlanResponse represents a control plan in API responses
type PlanResponse struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	TemplateID       string      `json:"template_id"`
	Mode             string      `json:"mode"`
	Period           string      `json:"period"`
	IntervalValue    int         `json:"interval_value"`
	WeekDays         []string    `json:"week_days,omitempty"`
	DayOfMonth       *int        `json:"day_of_month,omitempty"`
	PeriodDays       *int        `json:"period_days,omitempty"`
	StartRule        string      `json:"start_rule"`
	StartDate        *string     `json:"start_date,omitempty"`
	EndDate          *string     `json:"end_date,omitempty"`
	TargetMachineIDs []uuid.UUID `json:"target_machine_ids,omitempty"`
	NextRunDate      *string     `json:"next_run_date"`
	LastRunDate      *string     `json:"last_run_date,omitempty"`
	ActivatedAt      *string     `json:"activated_at,omitempty"`
	IsActive         bool        `json:"is_active"`
	Version          int         `json:"version"`
	CreatedAt        string      `json:"created_at"`
	UpdatedAt        string      `json:"updated_at"`
}

func toPlanResponse(p *models.ControlPlan) PlanResponse {
	return PlanResponse{
		ID:               p.ID.String(),
		Name:             p.Name,
		TemplateID:       p.TemplateID.String(),
		Mode:             string(p.Mode),
		Period:           p.Period,
		IntervalValue:    p.IntervalValue,
		WeekDays:         p.WeekDays,
		DayOfMonth:       p.DayOfMonth,
		PeriodDays:       p.PeriodDays,
		StartRule:        p.StartRule,
		StartDate:        dto.FormatDate(p.StartDate),
		EndDate:          dto.FormatDate(p.EndDate),
		TargetMachineIDs: p.TargetMachineIDs,
		NextRunDate:      dto.FormatDate(p.NextRunDate),
		LastRunDate:      dto.FormatDate(p.LastRunDate),
		ActivatedAt:      dto.FormatTime(p.ActivatedAt),
		IsActive:         p.IsActive,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type PreviewResponse struct {
	Dates []string `json:"dates"`
}

func (h *PlanHandler) decode(w http.ResponseWriter, r *http.Request) (scheduler.PlanInput, bool) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return scheduler.PlanInput{}, false
	}
	in, errors := req.toInput()
	if len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return scheduler.PlanInput{}, false
	}
	return in, true
}

// Create handles POST /api/v1/plans. New plans start inactive.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	plan, err := h.scheduler.CreatePlan(r.Context(), orgID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(plan))
}

// List handles GET /api/v1/plans
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	p := pagination(r)
	q := newQueryFilters(r)
	isActive := q.flag("is_active")
	if q.failed(w) {
		return
	}

	plans, total, err := h.scheduler.ListPlans(r.Context(), scheduler.PlanFilter{
		OrgID:    orgID,
		IsActive: isActive,
		Offset:   p.Offset(),
		Limit:    p.PerPage,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response := make([]PlanResponse, len(plans))
	for i := range plans {
		response[i] = toPlanResponse(&plans[i])
	}
	writeJSON(w, http.StatusOK, p.Paginate(response, total))
}

// Get handles GET /api/v1/plans/{id}
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(orgID, id uuid.UUID) (*models.ControlPlan, error) {
		return h.scheduler.GetPlan(r.Context(), orgID, id)
	})
}

// Update handles PUT /api/v1/plans/{id}
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "plan")
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	plan, err := h.scheduler.UpdatePlan(r.Context(), orgID, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

// Activate handles POST /api/v1/plans/{id}/activate
func (h *PlanHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(orgID, id uuid.UUID) (*models.ControlPlan, error) {
		return h.scheduler.ActivatePlan(r.Context(), orgID, id)
	})
}

// Deactivate handles POST /api/v1/plans/{id}/deactivate
func (h *PlanHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.withPlan(w, r, func(orgID, id uuid.UUID) (*models.ControlPlan, error) {
		return h.scheduler.DeactivatePlan(r.Context(), orgID, id)
	})
}

// Preview handles GET /api/v1/plans/{id}/preview?count=N
func (h *PlanHandler) Preview(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "plan")
	if !ok {
		return
	}
	q := newQueryFilters(r)
	count := q.number("count", 5)
	if q.failed(w) {
		return
	}

	dates, err := h.scheduler.PreviewPlan(r.Context(), orgID, id, count)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := PreviewResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = d.Format(time.DateOnly)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/plans/{id}
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "plan")
	if !ok {
		return
	}

	if err := h.scheduler.DeletePlan(r.Context(), orgID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Plan deleted"})
}

func (h *PlanHandler) withPlan(w http.ResponseWriter, r *http.Request, fn func(orgID, id uuid.UUID) (*models.ControlPlan, error)) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "plan")
	if !ok {
		return
	}

	plan, err := fn(orgID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}
