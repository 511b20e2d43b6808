package models

import (
	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/checklist"
)

// FormTemplate is a checklist definition. Read only for the inspection core.
type FormTemplate struct {
	Base
	OrganizationID uuid.UUID       `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	MachineType    string          `gorm:"size:100" json:"machine_type,omitempty"`
	Items          checklist.Items `gorm:"type:jsonb" json:"items"`
	IsActive       bool            `gorm:"index" json:"is_active"`
}

func (FormTemplate) TableName() string {
	return "form_templates"
}

type Machine struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Model          string    `gorm:"size:255" json:"model,omitempty"`
	SerialNumber   string    `gorm:"size:255" json:"serial_number,omitempty"`
	Location       string    `gorm:"size:255" json:"location,omitempty"`
	MachineType    string    `gorm:"size:100" json:"machine_type,omitempty"`
	IsActive       bool      `gorm:"index" json:"is_active"`
}

func (Machine) TableName() string {
	return "machines"
}
