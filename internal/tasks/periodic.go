package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/hugh/go-inspect/pkg/config"
)

// Registrar is the part of *asynq.Scheduler used to register cron tasks.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterPeriodic schedules the tick (unless disabled) and the reminder
// purge on their configured crons.
func RegisterPeriodic(r Registrar, cfg *config.Config) error {
	if cfg.Scheduler.Enabled {
		if _, err := r.Register(cfg.Scheduler.TickCron, NewSchedulerTickTask()); err != nil {
			return fmt.Errorf("register scheduler tick: %w", err)
		}
	}

	purge, err := NewReminderPurgeTask(ReminderPurgePayload{Days: cfg.Reminders.RetentionDays})
	if err != nil {
		return err
	}
	if _, err := r.Register(cfg.Reminders.PurgeCron, purge); err != nil {
		return fmt.Errorf("register reminder purge: %w", err)
	}
	return nil
}
