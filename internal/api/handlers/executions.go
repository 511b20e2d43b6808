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
	"github.com/hugh/go-inspect/internal/checklist"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/inspection"
)

type ExecutionHandler struct {
	executions *inspection.Service
	logger     *slog.Logger
}

func NewExecutionHandler(executions *inspection.Service, logger *slog.Logger) *ExecutionHandler {
	return &ExecutionHandler{executions: executions, logger: logger}
}

// CreateExecutionRequest represents the request to start an execution
type CreateExecutionRequest struct {
	TemplateID           uuid.UUID  `json:"template_id"`
	MachineID            *uuid.UUID `json:"machine_id,omitempty"`
	ExecutedByPersonName string     `json:"executed_by_person_name,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	Location             string     `json:"location,omitempty"`
	ScheduledFor         string     `json:"scheduled_for,omitempty"` // YYYY-MM-DD
}

func (r CreateExecutionRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.TemplateID == uuid.Nil {
		errors["template_id"] = "Template ID is required"
	}
	if r.ScheduledFor != "" {
		if _, err := dto.ParseDate(r.ScheduledFor); err != nil {
			errors["scheduled_for"] = "Must be a YYYY-MM-DD date"
		}
	}
	return errors
}

func (r CreateExecutionRequest) overrides(executedBy string) inspection.Overrides {
	o := inspection.Overrides{
		ExecutedByPersonName: validation.CleanName(r.ExecutedByPersonName),
		Notes:                validation.CleanNotes(r.Notes),
		Location:             validation.CleanName(r.Location),
	}
	if o.ExecutedByPersonName == "" {
		o.ExecutedByPersonName = executedBy
	}
	if r.ScheduledFor != "" {
		d, _ := dto.ParseDate(r.ScheduledFor)
		o.ScheduledFor = &d
	}
	return o
}

// BulkCreateExecutionRequest starts one execution per machine
type BulkCreateExecutionRequest struct {
	CreateExecutionRequest
	MachineIDs []uuid.UUID `json:"machine_ids"`
}

func (r BulkCreateExecutionRequest) Validate() map[string]string {
	errors := r.CreateExecutionRequest.Validate()
	if len(r.MachineIDs) == 0 {
		errors["machine_ids"] = "At least one machine is required"
	}
	return errors
}

// UpdateExecutionRequest saves answers. Status Completed or Cancelled also
// moves the execution; an empty status or InProgress only saves.
type UpdateExecutionRequest struct {
	Status             string              `json:"status,omitempty"`
	ChecklistResponses []dto.ResponseInput `json:"checklist_responses"`
	Notes              *string             `json:"notes,omitempty"`
}

// ExecutionResponse represents an execution in API responses
type ExecutionResponse struct {
	ID                   string              `json:"id"`
	ExecutionNumber      string              `json:"execution_number"`
	TemplateID           string              `json:"template_id"`
	TemplateName         string              `json:"template_name"`
	MachineID            *string             `json:"machine_id,omitempty"`
	MachineName          string              `json:"machine_name,omitempty"`
	MachineModel         string              `json:"machine_model,omitempty"`
	MachineSerialNumber  string              `json:"machine_serial_number,omitempty"`
	MachineLocation      string              `json:"machine_location,omitempty"`
	MachineType          string              `json:"machine_type,omitempty"`
	ControlPlanID        *string             `json:"control_plan_id,omitempty"`
	ScheduledFor         *string             `json:"scheduled_for,omitempty"`
	Status               string              `json:"status"`
	ChecklistResponses   checklist.Responses `json:"checklist_responses"`
	TotalScore           float64             `json:"total_score"`
	MaxScore             float64             `json:"max_score"`
	SuccessPercentage    *int                `json:"success_percentage"`
	CompletionRate       int                 `json:"completion_rate"`
	HasCriticalIssues    bool                `json:"has_critical_issues"`
	ExecutedByPersonName string              `json:"executed_by_person_name,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	CompletedAt          *string             `json:"completed_at,omitempty"`
	CancelledAt          *string             `json:"cancelled_at,omitempty"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            string              `json:"updated_at"`
}

func toExecutionResponse(e *models.Execution) ExecutionResponse {
	resp := ExecutionResponse{
		ID:                   e.ID.String(),
		ExecutionNumber:      e.ExecutionNumber,
		TemplateID:           e.TemplateID.String(),
		TemplateName:         e.TemplateName,
		MachineName:          e.MachineName,
		MachineModel:         e.MachineModel,
		MachineSerialNumber:  e.MachineSerialNumber,
		MachineLocation:      e.MachineLocation,
		MachineType:          e.MachineType,
		ScheduledFor:         dto.FormatDate(e.ScheduledFor),
		Status:               string(e.Status),
		ChecklistResponses:   e.ChecklistResponses,
		TotalScore:           e.TotalScore,
		MaxScore:             e.MaxScore,
		SuccessPercentage:    e.SuccessPercentage,
		CompletionRate:       e.CompletionRate,
		HasCriticalIssues:    e.HasCriticalIssues,
		ExecutedByPersonName: e.ExecutedByPersonName,
		Notes:                e.Notes,
		CompletedAt:          dto.FormatTime(e.CompletedAt),
		CancelledAt:          dto.FormatTime(e.CancelledAt),
		CreatedAt:            e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if resp.ChecklistResponses == nil {
		resp.ChecklistResponses = checklist.Responses{}
	}
	if e.MachineID != nil {
		s := e.MachineID.String()
		resp.MachineID = &s
	}
	if e.ControlPlanID != nil {
		s := e.ControlPlanID.String()
		resp.ControlPlanID = &s
	}
	return resp
}

// BulkFailure reports a machine whose execution could not be created
type BulkFailure struct {
	MachineID string `json:"machine_id"`
	Error     string `json:"error"`
}

type BulkCreateResponse struct {
	Created []ExecutionResponse `json:"created"`
	Failed  []BulkFailure       `json:"failed"`
}

// Create handles POST /api/v1/executions
func (h *ExecutionHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req CreateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	exec, err := h.executions.Create(r.Context(), inspection.CreateInput{
		OrgID:      orgID,
		TemplateID: req.TemplateID,
		MachineID:  req.MachineID,
		Overrides:  req.overrides(middleware.GetUserName(r.Context())),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExecutionResponse(exec))
}

// BulkCreate handles POST /api/v1/executions/bulk. Machines that fail are
// reported next to the ones that succeeded.
func (h *ExecutionHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req BulkCreateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	results, err := h.executions.BulkCreate(r.Context(), inspection.BulkCreateInput{
		OrgID:      orgID,
		TemplateID: req.TemplateID,
		MachineIDs: req.MachineIDs,
		Overrides:  req.overrides(middleware.GetUserName(r.Context())),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := BulkCreateResponse{Created: []ExecutionResponse{}, Failed: []BulkFailure{}}
	for _, res := range results {
		if res.Err != nil {
			resp.Failed = append(resp.Failed, BulkFailure{MachineID: res.MachineID.String(), Error: res.Err.Error()})
			continue
		}
		resp.Created = append(resp.Created, toExecutionResponse(res.Execution))
	}

	status := http.StatusCreated
	if len(resp.Created) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

// List handles GET /api/v1/executions
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	p := pagination(r)
	q := newQueryFilters(r)
	filter := inspection.ListFilter{
		OrgID:             orgID,
		Status:            models.ExecutionStatus(r.URL.Query().Get("status")),
		TemplateID:        q.id("template_id"),
		MachineID:         q.id("machine_id"),
		ControlPlanID:     q.id("control_plan_id"),
		HasCriticalIssues: q.flag("has_critical_issues"),
		CreatedFrom:       q.date("created_from"),
		Offset:            p.Offset(),
		Limit:             p.PerPage,
	}
	// created_to is inclusive of the whole day
	if to := q.date("created_to"); to != nil {
		end := to.AddDate(0, 0, 1)
		filter.CreatedTo = &end
	}
	if q.failed(w) {
		return
	}

	execs, total, err := h.executions.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response := make([]ExecutionResponse, len(execs))
	for i := range execs {
		response[i] = toExecutionResponse(&execs[i])
	}
	writeJSON(w, http.StatusOK, p.Paginate(response, total))
}

// Get handles GET /api/v1/executions/{id}
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "execution")
	if !ok {
		return
	}

	exec, err := h.executions.Get(r.Context(), orgID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toExecutionResponse(exec))
}

// Update handles PUT /api/v1/executions/{id}
func (h *ExecutionHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "execution")
	if !ok {
		return
	}

	var req UpdateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	responses, errors := dto.ToResponses(req.ChecklistResponses)
	if len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}
	req.Notes = validation.CleanNotesPtr(req.Notes)

	var (
		exec *models.Execution
		err  error
	)
	switch models.ExecutionStatus(req.Status) {
	case "", models.ExecutionInProgress:
		exec, err = h.executions.SaveResponses(r.Context(), orgID, id, responses, req.Notes)
	case models.ExecutionCompleted:
		exec, err = h.executions.Complete(r.Context(), orgID, id, responses, req.Notes)
	case models.ExecutionCancelled:
		if responses != nil || req.Notes != nil {
			if _, err = h.executions.SaveResponses(r.Context(), orgID, id, responses, req.Notes); err != nil {
				break
			}
		}
		exec, err = h.executions.Cancel(r.Context(), orgID, id)
	default:
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"status": "Must be InProgress, Completed or Cancelled"},
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toExecutionResponse(exec))
}

// Delete handles DELETE /api/v1/executions/{id}
func (h *ExecutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	if orgID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, ok := urlID(w, r, "execution")
	if !ok {
		return
	}

	if err := h.executions.Delete(r.Context(), orgID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Execution deleted"})
}
