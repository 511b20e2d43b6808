package inspection

import (
	"context"

	"github.com/google/uuid"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/checklist"
	"github.com/hugh/go-inspect/internal/database/models"
)

// SaveResponses replaces the answers of an in progress execution. A nil
// submitted keeps the stored answers; an empty one clears them. A nil notes
// keeps the stored notes.
func (s *Service) SaveResponses(ctx context.Context, orgID, id uuid.UUID, submitted checklist.Responses, notes *string) (*models.Execution, error) {
	exec, err := s.editable(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	merged, err := s.merge(exec, submitted)
	if err != nil {
		return nil, err
	}

	updates := responseUpdates(merged)
	if notes != nil {
		updates["notes"] = *notes
	}
	if err := s.transition(ctx, exec, updates); err != nil {
		return nil, err
	}

	s.logger.Debug("execution responses saved",
		"execution_id", exec.ID,
		"completion_rate", updates["completion_rate"],
	)
	return s.Get(ctx, orgID, id)
}

// Complete applies the answers and moves the execution to Completed. When a
// required item is unanswered it returns a validation error wrapping
// *checklist.MissingItemsError and nothing is stored.
func (s *Service) Complete(ctx context.Context, orgID, id uuid.UUID, submitted checklist.Responses, notes *string) (*models.Execution, error) {
	exec, err := s.editable(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	merged, err := s.merge(exec, submitted)
	if err != nil {
		return nil, err
	}
	if err := checklist.ValidateForCompletion(merged); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := responseUpdates(merged)
	updates["status"] = models.ExecutionCompleted
	updates["completed_at"] = now
	if notes != nil {
		updates["notes"] = *notes
	}
	if err := s.transition(ctx, exec, updates); err != nil {
		return nil, err
	}

	s.logger.Info("execution completed",
		"execution_id", exec.ID,
		"execution_number", exec.ExecutionNumber,
		"has_critical_issues", updates["has_critical_issues"],
	)
	return s.Get(ctx, orgID, id)
}

func (s *Service) Cancel(ctx context.Context, orgID, id uuid.UUID) (*models.Execution, error) {
	exec, err := s.editable(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, exec, map[string]interface{}{
		"status":       models.ExecutionCancelled,
		"cancelled_at": s.now().UTC(),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("execution cancelled", "execution_id", exec.ID, "execution_number", exec.ExecutionNumber)
	return s.Get(ctx, orgID, id)
}

func (s *Service) editable(ctx context.Context, orgID, id uuid.UUID) (*models.Execution, error) {
	exec, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if exec.Status.Terminal() {
		return nil, apperr.Conflict("execution %s is %s", exec.ExecutionNumber, exec.Status)
	}
	return exec, nil
}

func (s *Service) merge(exec *models.Execution, submitted checklist.Responses) (checklist.Responses, error) {
	if submitted == nil {
		merged := append(checklist.Responses(nil), exec.ChecklistResponses...)
		checklist.Normalize(merged)
		return merged, nil
	}
	return checklist.Apply(exec.ChecklistResponses, submitted, s.now())
}

// transition writes updates only while the row is still InProgress, so a
// concurrent terminal transition surfaces as a conflict.
func (s *Service) transition(ctx context.Context, exec *models.Execution, updates map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Execution{}).
		Where("id = ? AND organization_id = ? AND status = ?", exec.ID, exec.OrganizationID, models.ExecutionInProgress).
		Updates(updates)
	if res.Error != nil {
		return apperr.ExternalDependency(res.Error, "updating execution %s", exec.ID)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("execution %s is no longer in progress", exec.ExecutionNumber)
	}
	return nil
}

func responseUpdates(rs checklist.Responses) map[string]interface{} {
	m := checklist.Evaluate(rs)
	return map[string]interface{}{
		"checklist_responses": rs,
		"total_score":         m.TotalScore,
		"max_score":           m.MaxScore,
		"success_percentage":  m.SuccessPercentage,
		"completion_rate":     m.CompletionRate,
		"has_critical_issues": m.HasCriticalIssues,
	}
}
