package models

import (
	"time"

	"github.com/google/uuid"
)

type PlanMode string

const (
	PlanModeExecution PlanMode = "execution" // creates control form executions
	PlanModeReminder  PlanMode = "reminder"  // creates reminder tasks only
)

func (m PlanMode) Valid() bool {
	return m == PlanModeExecution || m == PlanModeReminder
}

// ControlPlan is a recurring inspection schedule. NextRunDate is the
// watermark: the next calendar date (UTC midnight) an occurrence is due.
type ControlPlan struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	TemplateID     uuid.UUID `gorm:"type:uuid;index;not null" json:"template_id"`
	Mode           PlanMode  `gorm:"size:20;not null" json:"mode"`

	// Recurrence
	Period        string   `gorm:"size:20;not null" json:"period"`
	IntervalValue int      `gorm:"not null" json:"interval_value"`
	WeekDays      []string `gorm:"type:jsonb;serializer:json" json:"week_days,omitempty"` // Mon..Sun
	DayOfMonth    *int     `json:"day_of_month,omitempty"`
	PeriodDays    *int     `json:"period_days,omitempty"`

	// Start and end
	StartRule string     `gorm:"size:20;not null" json:"start_rule"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Scope
	TargetMachineIDs []uuid.UUID `gorm:"type:jsonb;serializer:json" json:"target_machine_ids,omitempty"`

	// Timing
	NextRunDate *time.Time `gorm:"index" json:"next_run_date,omitempty"`
	LastRunDate *time.Time `json:"last_run_date,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	IsActive    bool       `gorm:"index;not null" json:"is_active"`

	// Bumped by every claim and edit
	Version int `gorm:"not null" json:"version"`

	// Relationships
	Template *FormTemplate `gorm:"foreignKey:TemplateID" json:"-"`
}

func (ControlPlan) TableName() string {
	return "control_plans"
}
