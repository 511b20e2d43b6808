package recurrence

import (
	"testing"
	"time"

	"github.com/hugh/go-inspect/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSchedule_FirstOnApproval(t *testing.T) {
	s := Schedule{Rule: Daily{Interval: 1}, StartRule: StartOnFirstApproval, StartDate: ptr(day("2020-01-01"))}

	got, ok := s.First(time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC), day("2025-03-10"))

	require.True(t, ok)
	assert.Equal(t, day("2025-03-11"), got)
}

func TestSchedule_FirstOnApprovalYearlyKeepsSlotAfterActivation(t *testing.T) {
	start := day("2025-03-01")
	s := Schedule{Rule: Yearly{Interval: 1, Month: time.March, Day: 1}, StartRule: StartOnFirstApproval, StartDate: &start}

	got, ok := s.First(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), day("2025-01-10"))

	require.True(t, ok)
	assert.Equal(t, day("2025-03-01"), got)
}

func TestSchedule_FirstFixedDateInFuture(t *testing.T) {
	s := Schedule{Rule: Daily{Interval: 7}, StartRule: StartFixedDate, StartDate: ptr(day("2025-04-01"))}

	got, ok := s.First(day("2025-03-01"), day("2025-03-01"))

	require.True(t, ok)
	assert.Equal(t, day("2025-04-01"), got)
}

func TestSchedule_FirstFixedDateCatchUp(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		start string
		today string
		want  string
	}{
		// A single offset from today would give 2025-01-27; walking keeps the cadence.
		{"weekly_interval", Daily{Interval: 7}, "2025-01-01", "2025-01-20", "2025-01-22"},
		{"weekday_set", Weekly{Interval: 1, Weekdays: []time.Weekday{time.Monday}}, "2025-01-01", "2025-01-10", "2025-01-13"},
		{"monthly_clamped", Monthly{Interval: 1, DayOfMonth: 31}, "2025-01-31", "2025-03-15", "2025-03-31"},
		{"today_is_occurrence", Daily{Interval: 2}, "2025-01-01", "2025-01-05", "2025-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{Rule: tt.rule, StartRule: StartFixedDate, StartDate: ptr(day(tt.start))}

			got, ok := s.First(day(tt.today), day(tt.today))

			require.True(t, ok)
			assert.Equal(t, day(tt.want), got)
		})
	}
}

func TestSchedule_FirstPastEndDate(t *testing.T) {
	s := Schedule{
		Rule:      Daily{Interval: 7},
		StartRule: StartFixedDate,
		StartDate: ptr(day("2025-01-01")),
		EndDate:   ptr(day("2025-01-05")),
	}

	_, ok := s.First(day("2025-01-20"), day("2025-01-20"))

	assert.False(t, ok)
}

func TestSchedule_NextRespectsEndDate(t *testing.T) {
	s := Schedule{Rule: Daily{Interval: 1}, StartRule: StartOnFirstApproval, EndDate: ptr(day("2025-01-10"))}

	got, ok := s.Next(day("2025-01-09"))
	require.True(t, ok)
	assert.Equal(t, day("2025-01-10"), got)

	_, ok = s.Next(day("2025-01-10"))
	assert.False(t, ok)
}

func TestSchedule_Upcoming(t *testing.T) {
	s := Schedule{
		Rule:      Weekly{Interval: 1, Weekdays: []time.Weekday{time.Monday, time.Wednesday}},
		StartRule: StartOnFirstApproval,
		EndDate:   ptr(day("2025-01-08")),
	}

	got := s.Upcoming(day("2025-01-01"), 5)

	assert.Equal(t, []time.Time{day("2025-01-01"), day("2025-01-06"), day("2025-01-08")}, got)
}

func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
		ok   bool
	}{
		{"ok", Schedule{Rule: Daily{Interval: 1}, StartRule: StartOnFirstApproval}, true},
		{"no_rule", Schedule{StartRule: StartOnFirstApproval}, false},
		{"bad_rule", Schedule{Rule: Custom{}, StartRule: StartOnFirstApproval}, false},
		{"fixed_without_date", Schedule{Rule: Daily{Interval: 1}, StartRule: StartFixedDate}, false},
		{"unknown_start_rule", Schedule{Rule: Daily{Interval: 1}, StartRule: "Whenever"}, false},
		{"end_before_start", Schedule{
			Rule:      Daily{Interval: 1},
			StartRule: StartFixedDate,
			StartDate: ptr(day("2025-02-01")),
			EndDate:   ptr(day("2025-01-01")),
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}
