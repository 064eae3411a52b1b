package parse

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/baiirun/planner/internal/model"
)

type recurrenceRule struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string, text string) (model.RecurrenceRule, bool)
}

var (
	reWeekdayToken = regexp.MustCompile(`\b(` + weekdayAlt + `)\b`)
	ordinals       = map[string]int{
		"first": 1, "1st": 1,
		"second": 2, "2nd": 2,
		"third": 3, "3rd": 3,
		"fourth": 4, "4th": 4,
		"fifth": 5, "5th": 5,
		"last": model.LastOfMonth,
	}
)

// recurrenceRules are tried in order and the first match wins.
var recurrenceRules = []recurrenceRule{
	{
		name:    "daily",
		pattern: regexp.MustCompile(`\bevery\s+day\b|\bdaily\b`),
		build: func([]string, string) (model.RecurrenceRule, bool) {
			return model.Daily(), true
		},
	},
	{
		name:    "every n days",
		pattern: regexp.MustCompile(`\bevery\s+(\d+)\s+days?\b`),
		build: func(m []string, _ string) (model.RecurrenceRule, bool) {
			return withInterval(model.FrequencyDaily, m[1])
		},
	},
	{
		name:    "every weekday name",
		pattern: regexp.MustCompile(`\bevery\s+((?:` + weekdayAlt + `)\b(?:\s*(?:,|&|\+|and)\s*(?:and\s+)?(?:` + weekdayAlt + `)\b)*)`),
		build: func(m []string, _ string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{
				Frequency:  model.FrequencyWeekly,
				Interval:   1,
				DaysOfWeek: weekdaysIn(m[1]),
			}, true
		},
	},
	{
		name:    "every other weekday name",
		pattern: regexp.MustCompile(`\bevery\s+other\s+(` + weekdayAlt + `)\b`),
		build: func(m []string, _ string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{
				Frequency:  model.FrequencyWeekly,
				Interval:   2,
				DaysOfWeek: []time.Weekday{weekdayNames[m[1]]},
			}, true
		},
	},
	{
		name:    "every weekday",
		pattern: regexp.MustCompile(`\bevery\s+weekdays?\b`),
		build: func([]string, string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{
				Frequency:  model.FrequencyWeekly,
				Interval:   1,
				DaysOfWeek: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			}, true
		},
	},
	{
		name:    "every weekend",
		pattern: regexp.MustCompile(`\bevery\s+weekends?\b`),
		build: func([]string, string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{
				Frequency:  model.FrequencyWeekly,
				Interval:   1,
				DaysOfWeek: []time.Weekday{time.Sunday, time.Saturday},
			}, true
		},
	},
	{
		name:    "nth weekday of month",
		pattern: regexp.MustCompile(`\b(first|second|third|fourth|fifth|last|1st|2nd|3rd|4th|5th)\s+(` + weekdayAlt + `)\s+(?:of\s+(?:each|the|every)\s+month|monthly)\b`),
		build: func(m []string, _ string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{
				Frequency:  model.FrequencyMonthly,
				Interval:   1,
				NthWeekday: &model.NthWeekday{N: ordinals[m[1]], Weekday: weekdayNames[m[2]]},
			}, true
		},
	},
	{
		name:    "day of month",
		pattern: regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+of\s+(?:each|every)\s+month\b`),
		build: func(m []string, text string) (model.RecurrenceRule, bool) {
			day, err := strconv.Atoi(m[1])
			if err != nil || day < 1 || day > 31 || !strings.Contains(text, "month") {
				return model.RecurrenceRule{}, false
			}
			return model.RecurrenceRule{
				Frequency:  model.FrequencyMonthly,
				Interval:   1,
				DayOfMonth: &day,
			}, true
		},
	},
	{
		name:    "last day of month",
		pattern: regexp.MustCompile(`\blast\s+day\s+of\b.*\bmonth\b`),
		build: func([]string, string) (model.RecurrenceRule, bool) {
			last := model.LastOfMonth
			return model.RecurrenceRule{
				Frequency:  model.FrequencyMonthly,
				Interval:   1,
				DayOfMonth: &last,
			}, true
		},
	},
	{
		name:    "every n weeks",
		pattern: regexp.MustCompile(`\bevery\s+(\d+)\s+weeks?\b`),
		build: func(m []string, _ string) (model.RecurrenceRule, bool) {
			return withInterval(model.FrequencyWeekly, m[1])
		},
	},
	{
		name:    "every n months",
		pattern: regexp.MustCompile(`\bevery\s+(\d+)\s+months?\b`),
		build: func(m []string, _ string) (model.RecurrenceRule, bool) {
			return withInterval(model.FrequencyMonthly, m[1])
		},
	},
	{
		name:    "weekly",
		pattern: regexp.MustCompile(`\bevery\s+week\b|\bweekly\b`),
		build: func([]string, string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{Frequency: model.FrequencyWeekly, Interval: 1}, true
		},
	},
	{
		name:    "monthly",
		pattern: regexp.MustCompile(`\bevery\s+month\b|\bmonthly\b`),
		build: func([]string, string) (model.RecurrenceRule, bool) {
			return model.RecurrenceRule{Frequency: model.FrequencyMonthly, Interval: 1}, true
		},
	},
}

// DetectRecurrence returns the first recurrence phrase found in text, or nil.
func DetectRecurrence(text string) *model.RecurrenceRule {
	lower := strings.ToLower(text)
	for _, r := range recurrenceRules {
		m := r.pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if rule, ok := r.build(m, lower); ok {
			return &rule
		}
	}
	return nil
}

func withInterval(freq model.Frequency, n string) (model.RecurrenceRule, bool) {
	interval, err := strconv.Atoi(n)
	if err != nil || interval < 1 {
		return model.RecurrenceRule{}, false
	}
	return model.RecurrenceRule{Frequency: freq, Interval: interval}, true
}

func weekdaysIn(s string) []time.Weekday {
	var days []time.Weekday
	for _, name := range reWeekdayToken.FindAllString(s, -1) {
		d := weekdayNames[name]
		if !slices.Contains(days, d) {
			days = append(days, d)
		}
	}
	slices.Sort(days)
	return days
}
