// Package scheduler turns due control plans into executions or reminder
// tasks, and owns plan activation and the reminder lifecycle.
package scheduler

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/inspection"
)

const defaultBatchSize = 100

type Service struct {
	db         *gorm.DB
	executions *inspection.Service
	templates  catalog.TemplateSource
	machines   catalog.MachineRegistry
	logger     *slog.Logger
	batchSize  int
	now        func() time.Time
}

type Options struct {
	// BatchSize caps the due plans handled by one tick.
	BatchSize int
	Now       func() time.Time
}

func NewService(db *gorm.DB, executions *inspection.Service, templates catalog.TemplateSource, machines catalog.MachineRegistry, logger *slog.Logger, opts Options) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		db:         db,
		executions: executions,
		templates:  templates,
		machines:   machines,
		logger:     logger,
		batchSize:  opts.BatchSize,
		now:        opts.Now,
	}
}
