package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/checklist"
)

type ExecutionStatus string

const (
	ExecutionInProgress ExecutionStatus = "InProgress"
	ExecutionCompleted  ExecutionStatus = "Completed"
	ExecutionCancelled  ExecutionStatus = "Cancelled"
)

// Terminal reports whether no further edits are allowed.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionCancelled
}

// Execution is one performed (or in progress) inspection. Template and
// machine data are snapshots taken at creation.
type Execution struct {
	Base
	OrganizationID  uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	ExecutionNumber string    `gorm:"size:32;uniqueIndex;not null" json:"execution_number"`

	// Template snapshot
	TemplateID   uuid.UUID `gorm:"type:uuid;index;not null" json:"template_id"`
	TemplateName string    `gorm:"size:255" json:"template_name"`

	// Machine snapshot
	MachineID           *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_execution_occurrence" json:"machine_id,omitempty"`
	MachineName         string     `gorm:"size:255" json:"machine_name,omitempty"`
	MachineModel        string     `gorm:"size:255" json:"machine_model,omitempty"`
	MachineSerialNumber string     `gorm:"size:255" json:"machine_serial_number,omitempty"`
	MachineLocation     string     `gorm:"size:255" json:"machine_location,omitempty"`
	MachineType         string     `gorm:"size:100" json:"machine_type,omitempty"`

	// Set for scheduler generated executions
	ControlPlanID *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_execution_occurrence" json:"control_plan_id,omitempty"`
	ScheduledFor  *time.Time `gorm:"uniqueIndex:idx_execution_occurrence" json:"scheduled_for,omitempty"`

	Status             ExecutionStatus     `gorm:"size:20;not null;index" json:"status"`
	ChecklistResponses checklist.Responses `gorm:"type:jsonb" json:"checklist_responses"`

	// Derived from the responses
	TotalScore        float64 `json:"total_score"`
	MaxScore          float64 `json:"max_score"`
	SuccessPercentage *int    `json:"success_percentage"`
	CompletionRate    int     `json:"completion_rate"`
	HasCriticalIssues bool    `gorm:"index" json:"has_critical_issues"`

	ExecutedByPersonName string     `gorm:"size:255" json:"executed_by_person_name,omitempty"`
	Notes                string     `gorm:"type:text" json:"notes,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
}

func (Execution) TableName() string {
	return "control_form_executions"
}

// ApplyMetrics copies derived fields from m.
func (e *Execution) ApplyMetrics(m checklist.Metrics) {
	e.TotalScore = m.TotalScore
	e.MaxScore = m.MaxScore
	e.SuccessPercentage = m.SuccessPercentage
	e.CompletionRate = m.CompletionRate
	e.HasCriticalIssues = m.HasCriticalIssues
}
