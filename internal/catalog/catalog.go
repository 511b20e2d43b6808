// Package catalog reads form templates and machines, the two collaborators an
// inspection snapshots when it is created.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/database/models"
)

// TemplateSource resolves form templates.
type TemplateSource interface {
	Template(ctx context.Context, orgID, id uuid.UUID) (*models.FormTemplate, error)
}

// MachineRegistry resolves machines.
type MachineRegistry interface {
	Machine(ctx context.Context, orgID, id uuid.UUID) (*models.Machine, error)
}

// Store serves both lookups from the service database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Template(ctx context.Context, orgID, id uuid.UUID) (*models.FormTemplate, error) {
	var tpl models.FormTemplate
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&tpl).Error
	if err != nil {
		return nil, lookupError(err, "form template", id)
	}
	if !tpl.IsActive {
		return nil, apperr.Validation("form template %s is not active", id)
	}
	return &tpl, nil
}

func (s *Store) Machine(ctx context.Context, orgID, id uuid.UUID) (*models.Machine, error) {
	var m models.Machine
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&m).Error
	if err != nil {
		return nil, lookupError(err, "machine", id)
	}
	if !m.IsActive {
		return nil, apperr.Validation("machine %s is not active", id)
	}
	return &m, nil
}

func lookupError(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %s not found", what, id)
	}
	return apperr.ExternalDependency(err, "loading %s %s", what, id)
}
