// Package recurrence computes due dates for periodic control plans.
//
// A rule is one of Daily, Weekly, Monthly, Yearly or Custom. Rules work on
// calendar dates: every input is reduced to midnight UTC and every output is
// midnight UTC. Nothing here touches storage or the clock.
package recurrence

import (
	"time"

	"github.com/hugh/go-inspect/internal/apperr"
)

type Period string

const (
	PeriodDaily   Period = "Daily"
	PeriodWeekly  Period = "Weekly"
	PeriodMonthly Period = "Monthly"
	PeriodYearly  Period = "Yearly"
	PeriodCustom  Period = "Custom"
)

// Rule yields the occurrence that follows a reference date.
type Rule interface {
	Period() Period
	// Next returns the first occurrence strictly after ref.
	Next(ref time.Time) time.Time
	Validate() error
}

// Compile-time interface satisfaction checks
var (
	_ Rule = Daily{}
	_ Rule = Weekly{}
	_ Rule = Monthly{}
	_ Rule = Yearly{}
	_ Rule = Custom{}
)

// Daily repeats every Interval days.
type Daily struct {
	Interval int
}

func (Daily) Period() Period { return PeriodDaily }

func (r Daily) Next(ref time.Time) time.Time {
	return Date(ref).AddDate(0, 0, r.Interval)
}

func (r Daily) Validate() error {
	if r.Interval < 1 {
		return apperr.Validation("daily interval must be at least 1, got %d", r.Interval)
	}
	return nil
}

// Weekly repeats on a set of weekdays every Interval weeks.
//
// With no weekdays the rule keeps the reference's weekday and jumps Interval
// weeks. With weekdays and Interval > 1 a candidate day only counts when the
// number of Monday-start weeks between Anchor's week and the candidate's week
// is a multiple of Interval. A zero Anchor falls back to the reference date.
type Weekly struct {
	Interval int
	Weekdays []time.Weekday
	Anchor   time.Time
}

func (Weekly) Period() Period { return PeriodWeekly }

func (r Weekly) Next(ref time.Time) time.Time {
	ref = Date(ref)
	if len(r.Weekdays) == 0 {
		return ref.AddDate(0, 0, 7*r.Interval)
	}

	days := make(map[time.Weekday]bool, len(r.Weekdays))
	for _, d := range r.Weekdays {
		days[d] = true
	}

	anchor := ref
	if !r.Anchor.IsZero() {
		anchor = Date(r.Anchor)
	}
	interval := max(r.Interval, 1)
	refWeek := weekStart(ref)
	offset := mod(weeksBetween(weekStart(anchor), refWeek), interval)

	// Rest of the reference week, when that week is aligned.
	if offset == 0 {
		for c := ref.AddDate(0, 0, 1); c.Before(refWeek.AddDate(0, 0, 7)); c = c.AddDate(0, 0, 1) {
			if days[c.Weekday()] {
				return c
			}
		}
	}

	// First matching day of the next aligned week.
	week := refWeek.AddDate(0, 0, 7*(interval-offset))
	for i := 0; i < 7; i++ {
		if c := week.AddDate(0, 0, i); days[c.Weekday()] {
			return c
		}
	}
	return ref.AddDate(0, 0, 7*interval)
}

func (r Weekly) Validate() error {
	if r.Interval < 1 {
		return apperr.Validation("weekly interval must be at least 1, got %d", r.Interval)
	}
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return apperr.Validation("invalid weekday %d", int(d))
		}
	}
	return nil
}

// Monthly lands on DayOfMonth, Interval months after the reference month.
// Short months clamp to their last day.
type Monthly struct {
	Interval   int
	DayOfMonth int
}

func (Monthly) Period() Period { return PeriodMonthly }

func (r Monthly) Next(ref time.Time) time.Time {
	ref = Date(ref)
	first := time.Date(ref.Year(), ref.Month()+time.Month(r.Interval), 1, 0, 0, 0, 0, time.UTC)
	day := min(r.DayOfMonth, daysIn(first.Year(), first.Month()))
	return first.AddDate(0, 0, day-1)
}

func (r Monthly) Validate() error {
	if r.Interval < 1 {
		return apperr.Validation("monthly interval must be at least 1, got %d", r.Interval)
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return apperr.Validation("day of month must be between 1 and 31, got %d", r.DayOfMonth)
	}
	return nil
}

// Yearly lands on Month/Day, Interval years after the reference year.
// Feb 29 clamps to Feb 28 in common years.
type Yearly struct {
	Interval int
	Month    time.Month
	Day      int
}

func (Yearly) Period() Period { return PeriodYearly }

func (r Yearly) Next(ref time.Time) time.Time {
	ref = Date(ref)
	if r.Interval == 1 {
		// This year's slot is still ahead of ref.
		if same := r.on(ref.Year()); same.After(ref) {
			return same
		}
	}
	return r.on(ref.Year() + r.Interval)
}

func (r Yearly) on(year int) time.Time {
	day := min(r.Day, daysIn(year, r.Month))
	return time.Date(year, r.Month, day, 0, 0, 0, 0, time.UTC)
}

func (r Yearly) Validate() error {
	if r.Interval < 1 {
		return apperr.Validation("yearly interval must be at least 1, got %d", r.Interval)
	}
	if r.Month < time.January || r.Month > time.December {
		return apperr.Validation("invalid month %d", int(r.Month))
	}
	// 2024 is a leap year, so Feb 29 is accepted as an anchor.
	if r.Day < 1 || r.Day > daysIn(2024, r.Month) {
		return apperr.Validation("day %d is not valid for %s", r.Day, r.Month)
	}
	return nil
}

// Custom repeats every Days days.
type Custom struct {
	Days int
}

func (Custom) Period() Period { return PeriodCustom }

func (r Custom) Next(ref time.Time) time.Time {
	return Date(ref).AddDate(0, 0, r.Days)
}

func (r Custom) Validate() error {
	if r.Days < 1 {
		return apperr.Validation("custom period must be at least 1 day, got %d", r.Days)
	}
	return nil
}

// Date truncates t to midnight UTC of its UTC calendar day.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// weekStart returns the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// weeksBetween counts whole weeks from Monday a to Monday b.
func weeksBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / (7 * 24 * 60 * 60))
}

func mod(n, k int) int {
	return ((n % k) + k) % k
}
