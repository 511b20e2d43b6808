package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/scheduler"
)

type Handler struct {
	scheduler     *scheduler.Service
	logger        *slog.Logger
	retentionDays int
	now           func() time.Time
}

func NewHandler(svc *scheduler.Service, logger *slog.Logger, retentionDays int) *Handler {
	return &Handler{
		scheduler:     svc,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSchedulerTick, h.HandleSchedulerTick)
	mux.HandleFunc(TypeReminderPurge, h.HandleReminderPurge)
}

// HandleSchedulerTick generates every due plan occurrence. Per plan failures
// are only logged; the next tick picks those plans up again.
func (h *Handler) HandleSchedulerTick(ctx context.Context, t *asynq.Task) error {
	start := h.now()
	result, err := h.scheduler.Tick(ctx, start)
	if err != nil {
		h.logger.Error("scheduler tick failed", "error", err)
		return err
	}

	h.logger.Debug("scheduler tick done",
		"due", result.Due,
		"claimed", result.Claimed,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	return nil
}

func (h *Handler) HandleReminderPurge(ctx context.Context, t *asynq.Task) error {
	var payload ReminderPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	days := payload.Days
	if days == 0 {
		days = h.retentionDays
	}

	deleted, err := h.scheduler.PurgeOldReminders(ctx, payload.OrganizationID, days)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return fmt.Errorf("purge reminders: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Info("completed reminder purge",
		"org_id", payload.OrganizationID,
		"days", days,
		"deleted", deleted,
	)
	return nil
}
