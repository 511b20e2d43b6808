package models

import (
	"time"

	"github.com/google/uuid"
)

type ReminderStatus string

const (
	ReminderOpen      ReminderStatus = "Open"
	ReminderCompleted ReminderStatus = "Completed"
	ReminderSkipped   ReminderStatus = "Skipped"
)

type ReminderTask struct {
	Base
	OrganizationID uuid.UUID      `gorm:"type:uuid;index;not null" json:"organization_id"`
	ControlPlanID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"control_plan_id"`
	MachineID      *uuid.UUID     `gorm:"type:uuid;index" json:"machine_id,omitempty"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	DueDate        time.Time      `gorm:"index;not null" json:"due_date"`
	Period         string         `gorm:"size:20" json:"period"`
	PeriodDays     *int           `json:"period_days,omitempty"`
	Status         ReminderStatus `gorm:"size:20;not null;index" json:"status"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

func (ReminderTask) TableName() string {
	return "reminder_tasks"
}
