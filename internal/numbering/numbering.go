// Package numbering hands out human readable execution numbers of the form
// <prefix>-YYYYMMDD-NNNN, counted per UTC day.
package numbering

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/hugh/go-inspect/internal/database/models"
)

const DefaultPrefix = "CF"

// ErrOccurrenceExists marks the conflict raised when a scheduled occurrence
// already has an execution for the same plan, machine and date.
var ErrOccurrenceExists = errors.New("execution for occurrence already exists")

type Allocator struct {
	prefix   string
	attempts int
}

func NewAllocator(prefix string, attempts int) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Allocator{prefix: prefix, attempts: attempts}
}

// Format renders the n-th number of day.
func (a *Allocator) Format(day time.Time, n int) string {
	return fmt.Sprintf("%s-%s-%04d", a.prefix, dayKey(day), n)
}

// Next increments the counter of day and returns the new number. tx should be
// a transaction; the row lock taken by the increment serializes concurrent
// allocators until it commits.
func (a *Allocator) Next(tx *gorm.DB, day time.Time) (string, error) {
	key := dayKey(day)

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ExecutionCounter{Day: key}).Error
	if err != nil {
		return "", fmt.Errorf("creating counter for %s: %w", key, err)
	}

	err = tx.Model(&models.ExecutionCounter{}).
		Where("day = ?", key).
		Update("last_value", gorm.Expr("last_value + 1")).Error
	if err != nil {
		return "", fmt.Errorf("incrementing counter for %s: %w", key, err)
	}

	var counter models.ExecutionCounter
	if err := tx.Where("day = ?", key).First(&counter).Error; err != nil {
		return "", fmt.Errorf("reading counter for %s: %w", key, err)
	}

	return a.Format(day, counter.LastValue), nil
}

// Insert numbers exec and inserts it. Each insert runs in a savepoint so a
// number collision only undoes that attempt; the counter keeps moving and the
// next attempt takes the following number.
func (a *Allocator) Insert(tx *gorm.DB, exec *models.Execution, now time.Time) error {
	for attempt := 1; attempt <= a.attempts; attempt++ {
		number, err := a.Next(tx, now)
		if err != nil {
			return apperr.ExternalDependency(err, "allocating execution number")
		}
		exec.ExecutionNumber = number

		err = tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(exec).Error
		})
		if err == nil {
			return nil
		}
		if !IsDuplicate(err) {
			return apperr.ExternalDependency(err, "inserting execution %s", number)
		}

		taken, lookupErr := a.numberTaken(tx, number)
		if lookupErr != nil {
			return apperr.ExternalDependency(lookupErr, "checking execution number %s", number)
		}
		if !taken {
			return errors.Mark(apperr.Conflict("execution for this occurrence already exists"), ErrOccurrenceExists)
		}
	}
	return apperr.Conflict("could not allocate a free execution number after %d attempts", a.attempts)
}

func (a *Allocator) numberTaken(tx *gorm.DB, number string) (bool, error) {
	var n int64
	err := tx.Unscoped().Model(&models.Execution{}).
		Where("execution_number = ?", number).
		Count(&n).Error
	return n > 0, err
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func dayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}
