package recurrence

import (
	"time"

	"github.com/hugh/go-inspect/internal/apperr"
)

type StartRule string

const (
	// StartOnFirstApproval anchors the first occurrence on the activation moment.
	StartOnFirstApproval StartRule = "OnFirstApproval"
	// StartFixedDate makes StartDate the first occurrence.
	StartFixedDate StartRule = "FixedStartDate"
)

// maxCatchUp bounds the occurrence walk for fixed start dates far in the past.
const maxCatchUp = 100_000

// Schedule is a rule with its start and end bounds.
type Schedule struct {
	Rule      Rule
	StartRule StartRule
	StartDate *time.Time
	EndDate   *time.Time
}

func (s Schedule) Validate() error {
	if s.Rule == nil {
		return apperr.Validation("schedule has no recurrence rule")
	}
	if err := s.Rule.Validate(); err != nil {
		return err
	}
	switch s.StartRule {
	case StartOnFirstApproval:
	case StartFixedDate:
		if s.StartDate == nil {
			return apperr.Validation("start rule %s requires a start date", StartFixedDate)
		}
	default:
		return apperr.Validation("invalid start rule %q", s.StartRule)
	}
	if s.StartDate != nil && s.EndDate != nil && Date(*s.EndDate).Before(Date(*s.StartDate)) {
		return apperr.Validation("end date is before start date")
	}
	return nil
}

// Next returns the occurrence after ref. ok is false when that occurrence
// falls after EndDate.
func (s Schedule) Next(ref time.Time) (time.Time, bool) {
	return s.bound(s.Rule.Next(ref))
}

// First returns the first occurrence for a plan activated at activatedAt.
//
// For a fixed start date in the past the rule is walked one occurrence at a
// time until it reaches today, so interval and weekday alignment are kept.
func (s Schedule) First(activatedAt, today time.Time) (time.Time, bool) {
	if s.StartRule != StartFixedDate || s.StartDate == nil {
		return s.Next(activatedAt)
	}

	today = Date(today)
	occ := Date(*s.StartDate)
	for i := 0; occ.Before(today); i++ {
		if i >= maxCatchUp {
			return time.Time{}, false
		}
		if s.EndDate != nil && occ.After(Date(*s.EndDate)) {
			return time.Time{}, false
		}
		occ = s.Rule.Next(occ)
	}
	return s.bound(occ)
}

// Upcoming lists up to n occurrences starting with from itself.
func (s Schedule) Upcoming(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	occ, ok := s.bound(Date(from))
	for ok && len(out) < n {
		out = append(out, occ)
		occ, ok = s.Next(occ)
	}
	return out
}

func (s Schedule) bound(t time.Time) (time.Time, bool) {
	if s.EndDate != nil && t.After(Date(*s.EndDate)) {
		return time.Time{}, false
	}
	return t, true
}
