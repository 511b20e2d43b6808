package recurrence

import (
	"strings"
	"time"

	"github.com/hugh/go-inspect/internal/apperr"
)

// Definition is the flat, stored form of a rule. Build turns it into the
// matching Rule and rejects fields that do not belong to the period.
type Definition struct {
	Period     Period
	Interval   int
	Weekdays   []string
	DayOfMonth *int
	PeriodDays *int
	// Anchor is the start date, else the activation date. Weekly skip-weeks
	// and Yearly month/day derive from it.
	Anchor time.Time
}

func (d Definition) Build() (Rule, error) {
	interval := d.Interval
	if interval == 0 {
		interval = 1
	}

	if d.Period != PeriodWeekly && len(d.Weekdays) > 0 {
		return nil, apperr.Validation("week days are only valid for %s plans", PeriodWeekly)
	}
	if d.Period != PeriodMonthly && d.DayOfMonth != nil {
		return nil, apperr.Validation("day of month is only valid for %s plans", PeriodMonthly)
	}
	if d.Period != PeriodCustom && d.PeriodDays != nil {
		return nil, apperr.Validation("period days are only valid for %s plans", PeriodCustom)
	}

	var rule Rule
	switch d.Period {
	case PeriodDaily:
		rule = Daily{Interval: interval}
	case PeriodWeekly:
		days, err := ParseWeekdays(d.Weekdays)
		if err != nil {
			return nil, err
		}
		rule = Weekly{Interval: interval, Weekdays: days, Anchor: d.Anchor}
	case PeriodMonthly:
		dom := Date(d.Anchor).Day()
		if d.DayOfMonth != nil {
			dom = *d.DayOfMonth
		} else if d.Anchor.IsZero() {
			return nil, apperr.Validation("monthly plans need a day of month or a start date")
		}
		rule = Monthly{Interval: interval, DayOfMonth: dom}
	case PeriodYearly:
		if d.Anchor.IsZero() {
			return nil, apperr.Validation("yearly plans need a start or activation date")
		}
		a := Date(d.Anchor)
		rule = Yearly{Interval: interval, Month: a.Month(), Day: a.Day()}
	case PeriodCustom:
		if d.PeriodDays == nil {
			return nil, apperr.Validation("custom plans need period days")
		}
		rule = Custom{Days: *d.PeriodDays}
	default:
		return nil, apperr.Validation("invalid period %q", d.Period)
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays accepts short or long English weekday names, any case.
func ParseWeekdays(tags []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(tags))
	seen := make(map[time.Weekday]bool, len(tags))
	for _, tag := range tags {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(tag))]
		if !ok {
			return nil, apperr.Validation("invalid weekday %q", tag)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// WeekdayTag is the short tag stored for d, e.g. "Mon".
func WeekdayTag(d time.Weekday) string {
	return d.String()[:3]
}
