package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeSchedulerTick = "scheduler:tick"
	TypeReminderPurge = "reminders:purge"
)

// SchedulerTickPayload is empty - the tick covers all organizations
type SchedulerTickPayload struct{}

func NewSchedulerTickTask() *asynq.Task {
	return asynq.NewTask(TypeSchedulerTick, nil, asynq.Queue("critical"), asynq.MaxRetry(3))
}

// ReminderPurgePayload selects what a purge removes. A zero OrganizationID
// purges every organization and a zero Days uses the configured retention.
type ReminderPurgePayload struct {
	OrganizationID uuid.UUID `json:"organization_id,omitempty"`
	Days           int       `json:"days,omitempty"`
}

func NewReminderPurgeTask(payload ReminderPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReminderPurge, data, asynq.Queue("low")), nil
}
