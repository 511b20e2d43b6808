package inspection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/database/models"
)

// ListFilter narrows List. Zero values do not filter.
type ListFilter struct {
	OrgID             uuid.UUID
	Status            models.ExecutionStatus
	TemplateID        *uuid.UUID
	MachineID         *uuid.UUID
	ControlPlanID     *uuid.UUID
	HasCriticalIssues *bool
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	Offset            int
	Limit             int
}

// List returns one page of executions, newest first, and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Execution, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Execution{}).Where("organization_id = ?", f.OrgID)

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.TemplateID != nil {
		query = query.Where("template_id = ?", *f.TemplateID)
	}
	if f.MachineID != nil {
		query = query.Where("machine_id = ?", *f.MachineID)
	}
	if f.ControlPlanID != nil {
		query = query.Where("control_plan_id = ?", *f.ControlPlanID)
	}
	if f.HasCriticalIssues != nil {
		query = query.Where("has_critical_issues = ?", *f.HasCriticalIssues)
	}
	if f.CreatedFrom != nil {
		query = query.Where("created_at >= ?", f.CreatedFrom.UTC())
	}
	if f.CreatedTo != nil {
		query = query.Where("created_at < ?", f.CreatedTo.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.ExternalDependency(err, "counting executions")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var execs []models.Execution
	if err := query.Order("created_at DESC").Offset(f.Offset).Limit(limit).Find(&execs).Error; err != nil {
		return nil, 0, apperr.ExternalDependency(err, "listing executions")
	}
	return execs, total, nil
}

// Delete soft deletes an execution. Its number stays reserved.
func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.Execution{})
	if res.Error != nil {
		return apperr.ExternalDependency(res.Error, "deleting execution %s", id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("execution %s not found", id)
	}
	s.logger.Info("execution deleted", "execution_id", id)
	return nil
}
