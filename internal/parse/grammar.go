package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"

	"github.com/baiirun/planner/internal/model"
)

// Date rules the stock English grammar lacks. Each one points the when
// context at a calendar day by shifting the reference instant, so the
// reference clock is kept and only the day of the result matters.
var (
	shortOffsetRule = &rules.F{
		RegExp:  regexp.MustCompile(`\bin\s+(\d+|an?|one)\s*(m|h|hrs?|hr|d|wks?|w)\b`),
		Applier: applyShortOffset,
	}
	nextPeriodRule = &rules.F{
		RegExp:  regexp.MustCompile(`\bnext\s+(week|month|year)\b`),
		Applier: applyNextPeriod,
	}
	isoDateRule = &rules.F{
		RegExp:  regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		Applier: applyISODate,
	}
	monthDayRule = &rules.F{
		RegExp:  regexp.MustCompile(`\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`),
		Applier: applyMonthDay,
	}
	dayMonthRule = &rules.F{
		RegExp:  regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)\b(?:,?\s+(\d{4})\b)?`),
		Applier: applyDayMonth,
	}
)

// shiftTo makes c resolve to day at ref's clock.
func shiftTo(c *rules.Context, ref time.Time, day model.Date) {
	target := time.Date(day.Year, day.Month, day.Day, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
	c.Duration = target.Sub(ref)
}

func offsetCount(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return 1
}

func applyShortOffset(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
	n := offsetCount(m.Captures[0])
	today := model.DateOf(ref)
	switch unit := m.Captures[1]; {
	case unit == "m":
		c.Duration = time.Duration(n) * time.Minute
	case strings.HasPrefix(unit, "h"):
		c.Duration = time.Duration(n) * time.Hour
	case unit == "d":
		shiftTo(c, ref, today.AddDays(n))
	default:
		shiftTo(c, ref, today.AddDays(7*n))
	}
	return true, nil
}

func applyNextPeriod(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
	today := model.DateOf(ref)
	switch m.Captures[0] {
	case "week":
		shiftTo(c, ref, today.AddDays(7))
	case "month":
		shiftTo(c, ref, model.DateOf(today.In(time.UTC).AddDate(0, 1, 0)))
	default:
		shiftTo(c, ref, model.DateOf(today.In(time.UTC).AddDate(1, 0, 0)))
	}
	return true, nil
}

func applyISODate(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
	y, _ := strconv.Atoi(m.Captures[0])
	mo, _ := strconv.Atoi(m.Captures[1])
	day, _ := strconv.Atoi(m.Captures[2])
	d, ok := calendarDate(y, time.Month(mo), day)
	if !ok {
		return false, nil
	}
	shiftTo(c, ref, d)
	return true, nil
}

func applyMonthDay(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
	return applyMonthDate(c, ref, monthNames[m.Captures[0]], m.Captures[1], m.Captures[2])
}

func applyDayMonth(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
	return applyMonthDate(c, ref, monthNames[m.Captures[1]], m.Captures[0], m.Captures[2])
}

// applyMonthDate resolves a month/day date. Without a year the date lands on
// its next occurrence, so "jan 5" in December means next January.
func applyMonthDate(c *rules.Context, ref time.Time, month time.Month, dayStr, yearStr string) (bool, error) {
	day, _ := strconv.Atoi(dayStr)
	today := model.DateOf(ref)
	year := today.Year
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}
	d, ok := calendarDate(year, month, day)
	if !ok {
		return false, nil
	}
	if yearStr == "" && d.Before(today) {
		if next, ok := calendarDate(year+1, month, day); ok {
			d = next
		}
	}
	shiftTo(c, ref, d)
	return true, nil
}

func calendarDate(y int, mo time.Month, d int) (model.Date, bool) {
	if mo < time.January || mo > time.December || d < 1 || d > model.DaysIn(y, mo) {
		return model.Date{}, false
	}
	return model.Date{Year: y, Month: mo, Day: d}, true
}

// resolveDate takes the calendar day of a grammar result.
func resolveDate(p *Partial, res *when.Result) bool {
	if p.Date != nil {
		return false
	}
	d := model.DateOf(res.Time.In(p.Ref.Location()))
	p.Date = &d
	return true
}

var reClockUnit = regexp.MustCompile(`sec|min|hour`)

// resolveDeadline keeps the exact instant for minute and hour offsets and
// only the day for longer ones. Month and year offsets are declined.
func resolveDeadline(p *Partial, res *when.Result) bool {
	if p.Instant != nil || p.Date != nil {
		return false
	}
	switch {
	case reClockUnit.MatchString(res.Text):
		t := res.Time
		p.Instant = &t
		return true
	case strings.Contains(res.Text, "month"), strings.Contains(res.Text, "year"):
		return false
	}
	return resolveDate(p, res)
}

func resolveShortOffset(p *Partial, res *when.Result) bool {
	if p.Instant != nil || p.Date != nil {
		return false
	}
	m := shortOffsetRule.RegExp.FindStringSubmatch(res.Text)
	if m != nil && (m[2] == "m" || strings.HasPrefix(m[2], "h")) {
		t := res.Time
		p.Instant = &t
		return true
	}
	return resolveDate(p, res)
}

// resolveCasual reads today, tomorrow and yesterday as days. "now" is not a
// date.
func resolveCasual(p *Partial, res *when.Result) bool {
	word := strings.TrimFunc(res.Text, func(r rune) bool { return !unicode.IsLetter(r) })
	if word == "now" {
		return false
	}
	return resolveDate(p, res)
}
