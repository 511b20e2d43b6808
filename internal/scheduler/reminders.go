package scheduler

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/database/models"
)

type ReminderFilter struct {
	OrgID         uuid.UUID
	Status        models.ReminderStatus
	ControlPlanID *uuid.UUID
	MachineID     *uuid.UUID
	DueFrom       *time.Time
	DueTo         *time.Time
	Offset        int
	Limit         int
}

// ListReminders returns one page of reminders, earliest due first.
func (s *Service) ListReminders(ctx context.Context, f ReminderFilter) ([]models.ReminderTask, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ReminderTask{}).Where("organization_id = ?", f.OrgID)

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ControlPlanID != nil {
		query = query.Where("control_plan_id = ?", *f.ControlPlanID)
	}
	if f.MachineID != nil {
		query = query.Where("machine_id = ?", *f.MachineID)
	}
	if f.DueFrom != nil {
		query = query.Where("due_date >= ?", f.DueFrom.UTC())
	}
	if f.DueTo != nil {
		query = query.Where("due_date <= ?", f.DueTo.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.ExternalDependency(err, "counting reminders")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var reminders []models.ReminderTask
	if err := query.Order("due_date ASC").Order("created_at ASC").Offset(f.Offset).Limit(limit).Find(&reminders).Error; err != nil {
		return nil, 0, apperr.ExternalDependency(err, "listing reminders")
	}
	return reminders, total, nil
}

func (s *Service) GetReminder(ctx context.Context, orgID, id uuid.UUID) (*models.ReminderTask, error) {
	var r models.ReminderTask
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("reminder %s not found", id)
	}
	if err != nil {
		return nil, apperr.ExternalDependency(err, "loading reminder %s", id)
	}
	return &r, nil
}

// CompleteReminder marks an open reminder done. Completing it again is a
// no-op that returns the stored reminder.
func (s *Service) CompleteReminder(ctx context.Context, orgID, id uuid.UUID) (*models.ReminderTask, error) {
	now := s.now().UTC()
	return s.closeReminder(ctx, orgID, id, models.ReminderCompleted, map[string]interface{}{
		"status":       models.ReminderCompleted,
		"completed_at": now,
	})
}

// SkipReminder marks an open reminder skipped. Skipping again is a no-op.
func (s *Service) SkipReminder(ctx context.Context, orgID, id uuid.UUID) (*models.ReminderTask, error) {
	return s.closeReminder(ctx, orgID, id, models.ReminderSkipped, map[string]interface{}{
		"status": models.ReminderSkipped,
	})
}

func (s *Service) closeReminder(ctx context.Context, orgID, id uuid.UUID, target models.ReminderStatus, updates map[string]interface{}) (*models.ReminderTask, error) {
	r, err := s.GetReminder(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	switch r.Status {
	case target:
		return r, nil
	case models.ReminderOpen:
	default:
		return nil, apperr.Conflict("reminder %s is already %s", id, r.Status)
	}

	res := s.db.WithContext(ctx).Model(&models.ReminderTask{}).
		Where("id = ? AND organization_id = ? AND status = ?", id, orgID, models.ReminderOpen).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.ExternalDependency(res.Error, "updating reminder %s", id)
	}
	if res.RowsAffected == 0 {
		// Someone closed it in between; report whatever they left.
		return s.closeRaced(ctx, orgID, id, target)
	}

	s.logger.Info("reminder closed", "reminder_id", id, "status", target)
	return s.GetReminder(ctx, orgID, id)
}

func (s *Service) closeRaced(ctx context.Context, orgID, id uuid.UUID, target models.ReminderStatus) (*models.ReminderTask, error) {
	r, err := s.GetReminder(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != target {
		return nil, apperr.Conflict("reminder %s is already %s", id, r.Status)
	}
	return r, nil
}

// PurgeOldReminders hard deletes reminders created more than days days ago,
// whatever their status, and returns how many went. uuid.Nil purges every
// organization.
func (s *Service) PurgeOldReminders(ctx context.Context, orgID uuid.UUID, days int) (int64, error) {
	if days < 1 {
		return 0, apperr.Fields(apperr.FieldErrors{"days": "Days must be at least 1"})
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	query := s.db.WithContext(ctx).Unscoped().Where("created_at < ?", cutoff)
	if orgID != uuid.Nil {
		query = query.Where("organization_id = ?", orgID)
	}

	res := query.Delete(&models.ReminderTask{})
	if res.Error != nil {
		return 0, apperr.ExternalDependency(res.Error, "purging reminders")
	}

	s.logger.Info("old reminders purged", "days", days, "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}
