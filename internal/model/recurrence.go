package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// LastOfMonth marks "last" in DayOfMonth and NthWeekday.N.
const LastOfMonth = -1

// NthWeekday describes "the Nth <weekday> of the month"; N is 1-5 or LastOfMonth.
type NthWeekday struct {
	N       int          `json:"n" yaml:"n"`
	Weekday time.Weekday `json:"weekday" yaml:"weekday"`
}

type RecurrenceRule struct {
	Frequency  Frequency      `json:"frequency" yaml:"frequency"`
	Interval   int            `json:"interval" yaml:"interval"`
	DaysOfWeek []time.Weekday `json:"daysOfWeek,omitempty" yaml:"daysOfWeek,omitempty"`
	DayOfMonth *int           `json:"dayOfMonth,omitempty" yaml:"dayOfMonth,omitempty"`
	NthWeekday *NthWeekday    `json:"nthWeekday,omitempty" yaml:"nthWeekday,omitempty"`
}

// Daily is the fallback rule for routines with no recognizable phrase.
func Daily() RecurrenceRule {
	return RecurrenceRule{Frequency: FrequencyDaily, Interval: 1}
}

func (r RecurrenceRule) Clone() RecurrenceRule {
	out := r
	out.DaysOfWeek = slices.Clone(r.DaysOfWeek)
	if r.DayOfMonth != nil {
		d := *r.DayOfMonth
		out.DayOfMonth = &d
	}
	if r.NthWeekday != nil {
		n := *r.NthWeekday
		out.NthWeekday = &n
	}
	return out
}

func (r RecurrenceRule) Validate() error {
	if !r.Frequency.IsValid() {
		return fmt.Errorf("invalid frequency: %q", r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", r.Interval)
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth == 0 || *r.DayOfMonth < LastOfMonth || *r.DayOfMonth > 31) {
		return fmt.Errorf("day of month out of range: %d", *r.DayOfMonth)
	}
	if n := r.NthWeekday; n != nil && (n.N == 0 || n.N < LastOfMonth || n.N > 5) {
		return fmt.Errorf("nth weekday out of range: %d", n.N)
	}
	return nil
}

// OccursOn reports whether the rule, anchored at the routine's first day,
// fires on day. Days before the anchor never match.
func (r RecurrenceRule) OccursOn(anchor, day Date) bool {
	if day.Before(anchor) {
		return false
	}
	interval := max(r.Interval, 1)

	switch r.Frequency {
	case FrequencyDaily:
		return anchor.DaysUntil(day)%interval == 0

	case FrequencyWeekly:
		days := r.DaysOfWeek
		if len(days) == 0 {
			days = []time.Weekday{anchor.Weekday()}
		}
		if !slices.Contains(days, day.Weekday()) {
			return false
		}
		weeks := weekStart(anchor).DaysUntil(weekStart(day)) / 7
		return weeks%interval == 0

	case FrequencyMonthly:
		months := (day.Year-anchor.Year)*12 + int(day.Month) - int(anchor.Month)
		if months%interval != 0 {
			return false
		}
		last := DaysIn(day.Year, day.Month)
		switch {
		case r.NthWeekday != nil:
			if day.Weekday() != r.NthWeekday.Weekday {
				return false
			}
			if r.NthWeekday.N == LastOfMonth {
				return day.Day+7 > last
			}
			return (day.Day-1)/7+1 == r.NthWeekday.N
		case r.DayOfMonth != nil:
			if *r.DayOfMonth == LastOfMonth {
				return day.Day == last
			}
			return day.Day == min(*r.DayOfMonth, last)
		default:
			return day.Day == min(anchor.Day, last)
		}
	}
	return false
}

// PreviousOccurrence returns the latest occurrence strictly before day.
func (r RecurrenceRule) PreviousOccurrence(anchor, day Date) (Date, bool) {
	// Five years covers every interval the parser produces.
	for d := day.AddDays(-1); !d.Before(anchor) && d.DaysUntil(day) <= 5*366; d = d.AddDays(-1) {
		if r.OccursOn(anchor, d) {
			return d, true
		}
	}
	return Date{}, false
}

func (r RecurrenceRule) String() string {
	var b strings.Builder
	switch {
	case r.Interval <= 1:
		b.WriteString(string(r.Frequency))
	default:
		unit := map[Frequency]string{FrequencyDaily: "days", FrequencyWeekly: "weeks", FrequencyMonthly: "months"}[r.Frequency]
		fmt.Fprintf(&b, "every %d %s", r.Interval, unit)
	}
	if len(r.DaysOfWeek) > 0 {
		names := make([]string, len(r.DaysOfWeek))
		for i, d := range r.DaysOfWeek {
			names[i] = d.String()[:3]
		}
		fmt.Fprintf(&b, " on %s", strings.Join(names, ","))
	}
	if r.NthWeekday != nil {
		fmt.Fprintf(&b, " on the %s %s", ordinal(r.NthWeekday.N), r.NthWeekday.Weekday)
	}
	if r.DayOfMonth != nil {
		fmt.Fprintf(&b, " on the %s day", ordinal(*r.DayOfMonth))
	}
	return b.String()
}

func ordinal(n int) string {
	switch n {
	case LastOfMonth:
		return "last"
	case 1, 21, 31:
		return fmt.Sprintf("%dst", n)
	case 2, 22:
		return fmt.Sprintf("%dnd", n)
	case 3, 23:
		return fmt.Sprintf("%drd", n)
	}
	return fmt.Sprintf("%dth", n)
}

func weekStart(d Date) Date {
	return d.AddDays(-int(d.Weekday()))
}
