package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/recurrence"
)

const maxPreview = 100

// ScheduleFor builds the recurrence schedule stored on a plan.
func ScheduleFor(plan *models.ControlPlan) (recurrence.Schedule, error) {
	var anchor time.Time
	switch {
	case plan.StartDate != nil:
		anchor = *plan.StartDate
	case plan.ActivatedAt != nil:
		anchor = *plan.ActivatedAt
	}

	rule, err := recurrence.Definition{
		Period:     recurrence.Period(plan.Period),
		Interval:   plan.IntervalValue,
		Weekdays:   plan.WeekDays,
		DayOfMonth: plan.DayOfMonth,
		PeriodDays: plan.PeriodDays,
		Anchor:     anchor,
	}.Build()
	if err != nil {
		return recurrence.Schedule{}, err
	}

	sched := recurrence.Schedule{
		Rule:      rule,
		StartRule: recurrence.StartRule(plan.StartRule),
		StartDate: plan.StartDate,
		EndDate:   plan.EndDate,
	}
	if err := sched.Validate(); err != nil {
		return recurrence.Schedule{}, err
	}
	return sched, nil
}

// PlanInput is the editable part of a plan.
type PlanInput struct {
	Name             string
	TemplateID       uuid.UUID
	Mode             models.PlanMode
	Period           string
	IntervalValue    int
	WeekDays         []string
	DayOfMonth       *int
	PeriodDays       *int
	StartRule        string
	StartDate        *time.Time
	EndDate          *time.Time
	TargetMachineIDs []uuid.UUID
}

// apply validates in and copies it onto plan. Weekday tags are normalized to
// Mon..Sun and dates truncated to UTC midnight.
func (in PlanInput) apply(plan *models.ControlPlan, now time.Time) error {
	fields := apperr.FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if in.TemplateID == uuid.Nil {
		fields["template_id"] = "Template is required"
	}
	mode := in.Mode
	if mode == "" {
		mode = models.PlanModeExecution
	}
	if !mode.Valid() {
		fields["mode"] = "Mode must be execution or reminder"
	}
	startRule := in.StartRule
	if startRule == "" {
		startRule = string(recurrence.StartOnFirstApproval)
	}
	interval := in.IntervalValue
	if interval == 0 {
		interval = 1
	}
	if err := apperr.Fields(fields); err != nil {
		return err
	}

	var tags []string
	if len(in.WeekDays) > 0 {
		days, err := recurrence.ParseWeekdays(in.WeekDays)
		if err != nil {
			return err
		}
		tags = make([]string, len(days))
		for i, d := range days {
			tags[i] = recurrence.WeekdayTag(d)
		}
	}

	plan.Name = strings.TrimSpace(in.Name)
	plan.TemplateID = in.TemplateID
	plan.Mode = mode
	plan.Period = in.Period
	plan.IntervalValue = interval
	plan.WeekDays = tags
	plan.DayOfMonth = in.DayOfMonth
	plan.PeriodDays = in.PeriodDays
	plan.StartRule = startRule
	plan.StartDate = dateRef(in.StartDate)
	plan.EndDate = dateRef(in.EndDate)
	plan.TargetMachineIDs = in.TargetMachineIDs

	// Validate with the anchor the plan will have once activated.
	probe := *plan
	if probe.ActivatedAt == nil {
		probe.ActivatedAt = &now
	}
	_, err := ScheduleFor(&probe)
	return err
}

func (s *Service) CreatePlan(ctx context.Context, orgID uuid.UUID, in PlanInput) (*models.ControlPlan, error) {
	plan := &models.ControlPlan{OrganizationID: orgID, Version: 1}
	if err := in.apply(plan, s.now()); err != nil {
		return nil, err
	}
	if _, err := s.templates.Template(ctx, orgID, plan.TemplateID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, apperr.ExternalDependency(err, "creating plan")
	}

	s.logger.Info("plan created", "plan_id", plan.ID, "period", plan.Period, "mode", plan.Mode)
	return plan, nil
}

// UpdatePlan replaces the editable fields. An active plan gets its watermark
// recomputed from the new rule.
func (s *Service) UpdatePlan(ctx context.Context, orgID, id uuid.UUID, in PlanInput) (*models.ControlPlan, error) {
	plan, err := s.GetPlan(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := in.apply(plan, now); err != nil {
		return nil, err
	}
	if _, err := s.templates.Template(ctx, orgID, plan.TemplateID); err != nil {
		return nil, err
	}

	columns := []string{
		"name", "template_id", "mode", "period", "interval_value", "week_days",
		"day_of_month", "period_days", "start_rule", "start_date", "end_date",
		"target_machine_ids",
	}

	if plan.IsActive {
		sched, err := ScheduleFor(plan)
		if err != nil {
			return nil, err
		}
		next, ok := resume(sched, plan, now)
		if ok {
			plan.NextRunDate = &next
		} else {
			plan.NextRunDate = nil
			plan.IsActive = false
		}
		columns = append(columns, "next_run_date", "is_active")
	}

	if err := s.writePlan(ctx, plan, columns...); err != nil {
		return nil, err
	}
	s.logger.Info("plan updated", "plan_id", plan.ID)
	return s.GetPlan(ctx, orgID, id)
}

// resume picks the watermark for an edited active plan: the occurrence after
// the last generated one, else the first occurrence.
func resume(sched recurrence.Schedule, plan *models.ControlPlan, now time.Time) (time.Time, bool) {
	if plan.LastRunDate != nil {
		return sched.Next(*plan.LastRunDate)
	}
	activated := now
	if plan.ActivatedAt != nil {
		activated = *plan.ActivatedAt
	}
	return sched.First(activated, now)
}

// ActivatePlan validates the rule and sets the first due date. Activating an
// active plan returns it unchanged.
func (s *Service) ActivatePlan(ctx context.Context, orgID, id uuid.UUID) (*models.ControlPlan, error) {
	plan, err := s.GetPlan(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if plan.IsActive {
		return plan, nil
	}

	now := s.now().UTC()
	plan.ActivatedAt = &now
	sched, err := ScheduleFor(plan)
	if err != nil {
		return nil, err
	}
	first, ok := sched.First(now, now)
	if !ok {
		return nil, apperr.Validation("plan %s has no occurrence before its end date", plan.ID)
	}

	plan.NextRunDate = &first
	plan.IsActive = true
	if err := s.writePlan(ctx, plan, "activated_at", "next_run_date", "is_active"); err != nil {
		return nil, err
	}

	s.logger.Info("plan activated", "plan_id", plan.ID, "next_run_date", first.Format(time.DateOnly))
	return s.GetPlan(ctx, orgID, id)
}

func (s *Service) DeactivatePlan(ctx context.Context, orgID, id uuid.UUID) (*models.ControlPlan, error) {
	plan, err := s.GetPlan(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return plan, nil
	}

	plan.NextRunDate = nil
	plan.IsActive = false
	if err := s.writePlan(ctx, plan, "next_run_date", "is_active"); err != nil {
		return nil, err
	}

	s.logger.Info("plan deactivated", "plan_id", plan.ID)
	return s.GetPlan(ctx, orgID, id)
}

// PreviewPlan lists the next n due dates. Inactive plans are previewed as if
// activated now.
func (s *Service) PreviewPlan(ctx context.Context, orgID, id uuid.UUID, n int) ([]time.Time, error) {
	if n < 1 || n > maxPreview {
		return nil, apperr.Fields(apperr.FieldErrors{"count": "Count must be between 1 and 100"})
	}
	plan, err := s.GetPlan(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if plan.NextRunDate != nil {
		sched, err := ScheduleFor(plan)
		if err != nil {
			return nil, err
		}
		return sched.Upcoming(*plan.NextRunDate, n), nil
	}

	now := s.now().UTC()
	probe := *plan
	probe.ActivatedAt = &now
	sched, err := ScheduleFor(&probe)
	if err != nil {
		return nil, err
	}
	first, ok := sched.First(now, now)
	if !ok {
		return []time.Time{}, nil
	}
	return sched.Upcoming(first, n), nil
}

func (s *Service) GetPlan(ctx context.Context, orgID, id uuid.UUID) (*models.ControlPlan, error) {
	var plan models.ControlPlan
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("plan %s not found", id)
	}
	if err != nil {
		return nil, apperr.ExternalDependency(err, "loading plan %s", id)
	}
	return &plan, nil
}

type PlanFilter struct {
	OrgID    uuid.UUID
	IsActive *bool
	Offset   int
	Limit    int
}

func (s *Service) ListPlans(ctx context.Context, f PlanFilter) ([]models.ControlPlan, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ControlPlan{}).Where("organization_id = ?", f.OrgID)
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.ExternalDependency(err, "counting plans")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var plans []models.ControlPlan
	if err := query.Order("created_at DESC").Offset(f.Offset).Limit(limit).Find(&plans).Error; err != nil {
		return nil, 0, apperr.ExternalDependency(err, "listing plans")
	}
	return plans, total, nil
}

// DeletePlan soft deletes the plan. Generated executions and reminders stay.
func (s *Service) DeletePlan(ctx context.Context, orgID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.ControlPlan{})
	if res.Error != nil {
		return apperr.ExternalDependency(res.Error, "deleting plan %s", id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("plan %s not found", id)
	}
	s.logger.Info("plan deleted", "plan_id", id)
	return nil
}

// writePlan stores the given columns of plan if nobody changed it since it
// was read, bumping the version. A tick that claimed in between makes this a
// conflict.
func (s *Service) writePlan(ctx context.Context, plan *models.ControlPlan, columns ...string) error {
	read := plan.Version
	plan.Version = read + 1

	res := s.db.WithContext(ctx).Model(plan).
		Where("organization_id = ? AND version = ?", plan.OrganizationID, read).
		Select(append(columns, "version")).
		Updates(plan)
	if res.Error != nil {
		plan.Version = read
		return apperr.ExternalDependency(res.Error, "updating plan %s", plan.ID)
	}
	if res.RowsAffected == 0 {
		plan.Version = read
		return apperr.Conflict("plan %s was modified concurrently, reload and retry", plan.ID)
	}
	return nil
}

func dateRef(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := recurrence.Date(*t)
	return &d
}
