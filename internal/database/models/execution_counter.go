package models

import "time"

// ExecutionCounter holds the last execution number handed out for a UTC day.
type ExecutionCounter struct {
	Day       string `gorm:"primaryKey;size:8"` // YYYYMMDD
	LastValue int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (ExecutionCounter) TableName() string {
	return "execution_counters"
}
