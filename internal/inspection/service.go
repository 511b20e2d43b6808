// Package inspection manages control form executions: creation from a
// template snapshot, answering, completion and cancellation.
package inspection

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/checklist"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/numbering"
)

type Service struct {
	db          *gorm.DB
	templates   catalog.TemplateSource
	machines    catalog.MachineRegistry
	numbers     *numbering.Allocator
	logger      *slog.Logger
	bulkWorkers int
	now         func() time.Time
}

type Options struct {
	BulkWorkers int
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewService(db *gorm.DB, templates catalog.TemplateSource, machines catalog.MachineRegistry, numbers *numbering.Allocator, logger *slog.Logger, opts Options) *Service {
	if opts.BulkWorkers < 1 {
		opts.BulkWorkers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		db:          db,
		templates:   templates,
		machines:    machines,
		numbers:     numbers,
		logger:      logger,
		bulkWorkers: opts.BulkWorkers,
		now:         opts.Now,
	}
}

// Overrides are caller supplied values layered over the snapshot.
type Overrides struct {
	ExecutedByPersonName string
	Notes                string
	Location             string     // replaces the machine location when set
	ScheduledFor         *time.Time // calendar date
	ControlPlanID        *uuid.UUID
}

type CreateInput struct {
	OrgID      uuid.UUID
	TemplateID uuid.UUID
	MachineID  *uuid.UUID
	Overrides
}

type BulkCreateInput struct {
	OrgID      uuid.UUID
	TemplateID uuid.UUID
	MachineIDs []uuid.UUID
	Overrides
}

// BulkResult is the outcome for one machine of a bulk creation.
type BulkResult struct {
	MachineID uuid.UUID
	Execution *models.Execution
	Err       error
}

// Snapshot builds an unsaved execution from a template and an optional
// machine. It performs no I/O.
func Snapshot(orgID uuid.UUID, tpl *models.FormTemplate, machine *models.Machine, o Overrides) (*models.Execution, error) {
	responses, err := checklist.FromItems(tpl.Items)
	if err != nil {
		return nil, errors.Wrapf(err, "template %s", tpl.ID)
	}

	exec := &models.Execution{
		OrganizationID:       orgID,
		TemplateID:           tpl.ID,
		TemplateName:         tpl.Name,
		ControlPlanID:        o.ControlPlanID,
		Status:               models.ExecutionInProgress,
		ChecklistResponses:   responses,
		ExecutedByPersonName: o.ExecutedByPersonName,
		Notes:                o.Notes,
	}
	if o.ScheduledFor != nil {
		d := dateOf(*o.ScheduledFor)
		exec.ScheduledFor = &d
	}
	if machine != nil {
		id := machine.ID
		exec.MachineID = &id
		exec.MachineName = machine.Name
		exec.MachineModel = machine.Model
		exec.MachineSerialNumber = machine.SerialNumber
		exec.MachineLocation = machine.Location
		exec.MachineType = machine.MachineType
	}
	if o.Location != "" {
		exec.MachineLocation = o.Location
	}
	exec.ApplyMetrics(checklist.Evaluate(responses))
	return exec, nil
}

// Prepare looks up the template and machine and returns the unsaved
// execution. Nothing is written.
func (s *Service) Prepare(ctx context.Context, in CreateInput) (*models.Execution, error) {
	tpl, err := s.templates.Template(ctx, in.OrgID, in.TemplateID)
	if err != nil {
		return nil, err
	}

	var machine *models.Machine
	if in.MachineID != nil {
		machine, err = s.machines.Machine(ctx, in.OrgID, *in.MachineID)
		if err != nil {
			return nil, err
		}
	}

	return Snapshot(in.OrgID, tpl, machine, in.Overrides)
}

// Insert numbers and stores exec inside tx.
func (s *Service) Insert(tx *gorm.DB, exec *models.Execution) error {
	return s.numbers.Insert(tx, exec, s.now())
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Execution, error) {
	exec, err := s.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Insert(tx, exec)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("execution created",
		"execution_id", exec.ID,
		"execution_number", exec.ExecutionNumber,
		"template_id", exec.TemplateID,
	)
	return exec, nil
}

// BulkCreate creates one execution per machine. Results are in input order
// and a failure for one machine never affects the others.
func (s *Service) BulkCreate(ctx context.Context, in BulkCreateInput) ([]BulkResult, error) {
	if len(in.MachineIDs) == 0 {
		return nil, apperr.Fields(apperr.FieldErrors{"machine_ids": "At least one machine is required"})
	}

	results := make([]BulkResult, len(in.MachineIDs))
	for i, id := range in.MachineIDs {
		results[i].MachineID = id
	}

	tpl, err := s.templates.Template(ctx, in.OrgID, in.TemplateID)
	if err != nil {
		for i := range results {
			results[i].Err = err
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(s.bulkWorkers)
	for i := range results {
		i := i
		g.Go(func() error {
			results[i].Execution, results[i].Err = s.createForMachine(ctx, in, tpl, results[i].MachineID)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("bulk executions created",
		"template_id", in.TemplateID,
		"requested", len(results),
		"failed", failed,
	)
	return results, nil
}

func (s *Service) createForMachine(ctx context.Context, in BulkCreateInput, tpl *models.FormTemplate, machineID uuid.UUID) (*models.Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.ExternalDependency(err, "bulk creation interrupted")
	}

	machine, err := s.machines.Machine(ctx, in.OrgID, machineID)
	if err != nil {
		return nil, err
	}

	exec, err := Snapshot(in.OrgID, tpl, machine, in.Overrides)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Insert(tx, exec)
	}); err != nil {
		return nil, err
	}
	return exec, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Execution, error) {
	var exec models.Execution
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("execution %s not found", id)
	}
	if err != nil {
		return nil, apperr.ExternalDependency(err, "loading execution %s", id)
	}
	return &exec, nil
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
