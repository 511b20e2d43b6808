package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/numbering"
	"github.com/hugh/go-inspect/internal/recurrence"
)

// TickResult counts what one tick did.
type TickResult struct {
	Due               int `json:"due"`
	Claimed           int `json:"claimed"`
	Skipped           int `json:"skipped"`
	Failed            int `json:"failed"`
	ExecutionsCreated int `json:"executions_created"`
	RemindersCreated  int `json:"reminders_created"`
	Deactivated       int `json:"deactivated"`
}

// errClaimLost means another tick already acted on this occurrence.
var errClaimLost = errors.New("plan claim lost")

// occurrence is everything one plan needs for one due date, gathered before
// the transaction opens.
type occurrence struct {
	plan       *models.ControlPlan
	due        time.Time
	next       time.Time
	hasNext    bool
	executions []*models.Execution
	reminders  []*models.ReminderTask
}

// Tick processes every active plan due on or before now. Per plan failures
// are logged and counted; only a failure to load the due plans is returned.
func (s *Service) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	var result TickResult
	today := recurrence.Date(now)

	var plans []models.ControlPlan
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_run_date IS NOT NULL AND next_run_date <= ?", true, today).
		Order("next_run_date ASC").
		Limit(s.batchSize).
		Find(&plans).Error
	if err != nil {
		return result, apperr.ExternalDependency(err, "loading due plans")
	}
	result.Due = len(plans)

	for i := range plans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.processPlan(ctx, &plans[i], &result)
	}

	if result.Due > 0 {
		s.logger.Info("scheduler tick finished",
			"due", result.Due,
			"claimed", result.Claimed,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"executions_created", result.ExecutionsCreated,
			"reminders_created", result.RemindersCreated,
			"deactivated", result.Deactivated,
		)
	}
	return result, nil
}

func (s *Service) processPlan(ctx context.Context, plan *models.ControlPlan, result *TickResult) {
	log := s.logger.With("plan_id", plan.ID, "due", plan.NextRunDate.Format(time.DateOnly))

	occ, err := s.prepare(ctx, plan)
	if err != nil {
		result.Failed++
		log.Error("failed to prepare plan occurrence", "error", err)
		return
	}

	created := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claim(tx, occ); err != nil {
			return err
		}
		n, err := s.materialize(tx, occ)
		created = n
		return err
	})
	switch {
	case errors.Is(err, errClaimLost):
		result.Skipped++
		log.Debug("plan occurrence already claimed")
		return
	case err != nil:
		result.Failed++
		log.Error("failed to generate plan occurrence", "error", err)
		return
	}

	result.Claimed++
	if plan.Mode == models.PlanModeReminder {
		result.RemindersCreated += created
	} else {
		result.ExecutionsCreated += created
	}
	if !occ.hasNext {
		result.Deactivated++
		log.Info("plan reached its end and was deactivated")
	}
	log.Info("plan occurrence generated", "mode", plan.Mode, "created", created)
}

// prepare computes the next watermark and snapshots the template and
// machines. Unknown or inactive machines are skipped; any other lookup
// failure aborts the plan for this tick.
func (s *Service) prepare(ctx context.Context, plan *models.ControlPlan) (*occurrence, error) {
	sched, err := ScheduleFor(plan)
	if err != nil {
		return nil, err
	}

	occ := &occurrence{plan: plan, due: recurrence.Date(*plan.NextRunDate)}
	occ.next, occ.hasNext = sched.Next(occ.due)

	machines, err := s.targetMachines(ctx, plan)
	if err != nil {
		return nil, err
	}

	switch plan.Mode {
	case models.PlanModeReminder:
		occ.reminders = s.buildReminders(plan, occ.due, machines)
	default:
		tpl, err := s.templates.Template(ctx, plan.OrganizationID, plan.TemplateID)
		if err != nil {
			return nil, err
		}
		occ.executions, err = buildExecutions(plan, tpl, occ.due, machines)
		if err != nil {
			return nil, err
		}
	}
	return occ, nil
}

// targetMachines resolves the plan targets. A nil slice with no error means
// the plan has no targets; an empty one means every target was skipped.
func (s *Service) targetMachines(ctx context.Context, plan *models.ControlPlan) ([]*models.Machine, error) {
	if len(plan.TargetMachineIDs) == 0 {
		return nil, nil
	}

	machines := make([]*models.Machine, 0, len(plan.TargetMachineIDs))
	for _, id := range plan.TargetMachineIDs {
		m, err := s.machines.Machine(ctx, plan.OrganizationID, id)
		if err == nil {
			machines = append(machines, m)
			continue
		}
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindValidation:
			s.logger.Warn("skipping plan target machine", "plan_id", plan.ID, "machine_id", id, "error", err)
		default:
			return nil, err
		}
	}
	return machines, nil
}

func buildExecutions(plan *models.ControlPlan, tpl *models.FormTemplate, due time.Time, machines []*models.Machine) ([]*models.Execution, error) {
	overrides := inspection.Overrides{ScheduledFor: &due, ControlPlanID: &plan.ID}

	if machines == nil {
		exec, err := inspection.Snapshot(plan.OrganizationID, tpl, nil, overrides)
		if err != nil {
			return nil, err
		}
		return []*models.Execution{exec}, nil
	}

	execs := make([]*models.Execution, 0, len(machines))
	for _, m := range machines {
		exec, err := inspection.Snapshot(plan.OrganizationID, tpl, m, overrides)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, nil
}

func (s *Service) buildReminders(plan *models.ControlPlan, due time.Time, machines []*models.Machine) []*models.ReminderTask {
	newReminder := func(machineID *uuid.UUID, title string) *models.ReminderTask {
		return &models.ReminderTask{
			OrganizationID: plan.OrganizationID,
			ControlPlanID:  plan.ID,
			MachineID:      machineID,
			Title:          title,
			DueDate:        due,
			Period:         plan.Period,
			PeriodDays:     plan.PeriodDays,
			Status:         models.ReminderOpen,
		}
	}

	if machines == nil {
		return []*models.ReminderTask{newReminder(nil, plan.Name)}
	}

	out := make([]*models.ReminderTask, 0, len(machines))
	for _, m := range machines {
		id := m.ID
		out = append(out, newReminder(&id, fmt.Sprintf("%s: %s", plan.Name, m.Name)))
	}
	return out
}

// claim advances the watermark only if the plan is still exactly as it was
// read. Losing the race returns errClaimLost.
func claim(tx *gorm.DB, occ *occurrence) error {
	var next interface{}
	if occ.hasNext {
		next = occ.next
	}

	res := tx.Model(&models.ControlPlan{}).
		Where("id = ? AND is_active = ? AND next_run_date = ? AND version = ?", occ.plan.ID, true, occ.due, occ.plan.Version).
		Updates(map[string]interface{}{
			"next_run_date": next,
			"is_active":     occ.hasNext,
			"last_run_date": occ.due,
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return apperr.ExternalDependency(res.Error, "claiming plan %s", occ.plan.ID)
	}
	if res.RowsAffected == 0 {
		return errClaimLost
	}
	return nil
}

// materialize stores the prepared executions or reminders and returns how
// many were created.
func (s *Service) materialize(tx *gorm.DB, occ *occurrence) (int, error) {
	if len(occ.reminders) > 0 {
		if err := tx.Create(&occ.reminders).Error; err != nil {
			return 0, apperr.ExternalDependency(err, "creating reminders for plan %s", occ.plan.ID)
		}
		return len(occ.reminders), nil
	}

	created := 0
	for _, exec := range occ.executions {
		err := s.executions.Insert(tx, exec)
		if errors.Is(err, numbering.ErrOccurrenceExists) {
			s.logger.Warn("execution for occurrence already exists",
				"plan_id", occ.plan.ID,
				"machine_id", exec.MachineID,
				"error", err,
			)
			continue
		}
		if err != nil {
			return 0, err
		}
		created++
	}
	return created, nil
}
