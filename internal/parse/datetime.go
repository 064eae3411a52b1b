package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"

	"github.com/baiirun/planner/internal/model"
)

// Extraction is the outcome of date/time extraction. Start is nil when the
// text names no date or time at all.
type Extraction struct {
	Start   *time.Time
	End     *time.Time
	HasTime bool
}

// Partial accumulates what refiners have found so far. Each field is written
// by the first refiner that claims it; later refiners leave it alone.
type Partial struct {
	Ref        time.Time
	Date       *model.Date
	Clock      *model.ClockTime
	EndClock   *model.ClockTime
	EndNextDay bool
	Instant    *time.Time
}

func (p *Partial) today() model.Date { return model.DateOf(p.Ref) }

// Refiner is one step of the extraction chain. A pattern refiner sets
// Pattern and Apply: Apply receives the submatches and the text following
// the match, and returns false to decline a match. A grammar refiner sets
// Rule and Resolve instead: the rule runs through a when parser and Resolve
// reads the parsed result into the partial.
type Refiner struct {
	Name    string
	Pattern *regexp.Regexp
	Apply   func(p *Partial, m []string, rest string) bool

	Rule    rules.Rule
	Resolve func(p *Partial, res *when.Result) bool
}

// Extractor runs refiners over lower-cased text in a fixed order.
type Extractor struct {
	refiners []Refiner
	grammars []*when.Parser
}

func NewExtractor(refiners ...Refiner) *Extractor {
	x := &Extractor{refiners: refiners, grammars: make([]*when.Parser, len(refiners))}
	for i, r := range refiners {
		if r.Rule == nil {
			continue
		}
		g := when.New(nil)
		g.Add(r.Rule)
		x.grammars[i] = g
	}
	return x
}

var defaultExtractor = NewExtractor(DefaultRefiners()...)

// ExtractDateTime runs the default refiner chain over text relative to ref.
func ExtractDateTime(text string, ref time.Time) Extraction {
	return defaultExtractor.Extract(text, ref)
}

// Extract applies every refiner in order, then assembles the result in ref's
// location.
func (x *Extractor) Extract(text string, ref time.Time) Extraction {
	lower := strings.ToLower(text)
	p := &Partial{Ref: ref}
	for i, r := range x.refiners {
		if g := x.grammars[i]; g != nil {
			res, err := g.Parse(lower, ref)
			if err == nil && res != nil {
				r.Resolve(p, res)
			}
			continue
		}
		for _, idx := range r.Pattern.FindAllStringSubmatchIndex(lower, -1) {
			if r.Apply(p, submatches(lower, idx), lower[idx[1]:]) {
				break
			}
		}
	}
	return p.assemble()
}

func (p *Partial) assemble() Extraction {
	loc := p.Ref.Location()

	if p.Instant != nil {
		start := *p.Instant
		return Extraction{Start: &start, HasTime: true}
	}
	if p.Date == nil && p.Clock == nil {
		return Extraction{}
	}

	day := p.today()
	if p.Date != nil {
		day = *p.Date
	}

	if p.Clock == nil {
		start := day.In(loc)
		return Extraction{Start: &start}
	}

	start := p.Clock.On(day, loc)
	out := Extraction{Start: &start, HasTime: true}
	if p.EndClock != nil {
		end := p.EndClock.On(day, loc)
		if p.EndNextDay || end.Before(start) {
			end = p.EndClock.On(day.AddDays(1), loc)
		}
		out.End = &end
	}
	return out
}

func submatches(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

const weekdayAlt = `monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thur|thu|friday|fri|saturday|sat|sunday|sun`

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

const monthAlt = `january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec`

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	reExplicit24   = regexp.MustCompile(`\bat\s+([01]?\d|2[0-3]):([0-5]\d)\b`)
	reRange        = regexp.MustCompile(`\b(?:from|between)\s+(\d{1,2})(?::([0-5]\d))?\s*(am|pm)?\s*(?:to|and|until|till|-)\s*(\d{1,2})(?::([0-5]\d))?\s*(am|pm)?\b`)
	reClock12      = regexp.MustCompile(`\b(?:at\s+)?(\d{1,2})(?::([0-5]\d))?\s*(am|pm)\b`)
	reNoon         = regexp.MustCompile(`\b(noon|midday|midnight)\b`)
	reClock24      = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	reTrailingMeri = regexp.MustCompile(`^\s*[ap]\.?m\b`)
)

// HasExplicitTime reports whether text states a 24-hour "at HH:MM" time.
// Such a time is always treated as certain.
func HasExplicitTime(text string) bool {
	lower := strings.ToLower(text)
	for _, idx := range reExplicit24.FindAllStringIndex(lower, -1) {
		if !reTrailingMeri.MatchString(lower[idx[1]:]) {
			return true
		}
	}
	return false
}

// DefaultRefiners returns the built-in chain in priority order. Clock
// phrases are matched by pattern; dates go through the natural-language
// grammar rules.
func DefaultRefiners() []Refiner {
	return []Refiner{
		{Name: "relative offset", Rule: en.Deadline(rules.Override), Resolve: resolveDeadline},
		{Name: "short relative offset", Rule: shortOffsetRule, Resolve: resolveShortOffset},
		{Name: "explicit 24-hour time", Pattern: reExplicit24, Apply: applyExplicit24},
		{Name: "time range", Pattern: reRange, Apply: applyRange},
		{Name: "12-hour time", Pattern: reClock12, Apply: applyClock12},
		{Name: "noon/midnight", Pattern: reNoon, Apply: applyNoon},
		{Name: "24-hour time", Pattern: reClock24, Apply: applyClock24},
		{Name: "casual date", Rule: en.CasualDate(rules.Override), Resolve: resolveCasual},
		{Name: "next period", Rule: nextPeriodRule, Resolve: resolveDate},
		{Name: "weekday", Rule: en.Weekday(rules.Override), Resolve: resolveDate},
		{Name: "iso date", Rule: isoDateRule, Resolve: resolveDate},
		{Name: "month day", Rule: monthDayRule, Resolve: resolveDate},
		{Name: "day month", Rule: dayMonthRule, Resolve: resolveDate},
	}
}

func applyExplicit24(p *Partial, m []string, rest string) bool {
	if p.Clock != nil || reTrailingMeri.MatchString(rest) {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	p.Clock = &model.ClockTime{Hour: h, Minute: mm}
	return true
}

func applyRange(p *Partial, m []string, _ string) bool {
	if p.Clock != nil {
		return false
	}
	h1, _ := strconv.Atoi(m[1])
	m1 := atoiOr(m[2], 0)
	h2, _ := strconv.Atoi(m[4])
	m2 := atoiOr(m[5], 0)
	if !validHour(h1, m[3]) || !validHour(h2, m[6]) {
		return false
	}
	start, end, nextDay := resolveRange(h1, m1, m[3], h2, m2, m[6])
	p.Clock = &start
	p.EndClock = &end
	p.EndNextDay = nextDay
	return true
}

// resolveRange turns the two ends of "from X to Y" into clock times.
//
// A start without a meridiem borrows the end's. When the result puts the end
// before the start, a literal "12am" end means noon unless the start is
// explicitly PM. Otherwise an end with no meridiem is moved to PM, or a
// borrowed PM on the start is dropped back to AM. Anything still inverted
// rolls the end over to the next day.
func resolveRange(h1, m1 int, mer1 string, h2, m2 int, mer2 string) (model.ClockTime, model.ClockTime, bool) {
	borrowed := mer1 == "" && mer2 != ""
	if borrowed {
		mer1 = mer2
	}
	startH := to24(h1, mer1)
	endH := to24(h2, mer2)

	if endH*60+m2 < startH*60+m1 {
		switch {
		case h2 == 12 && mer2 == "am" && mer1 == "am":
			endH = 12
		case mer2 == "" && h2 < 12 && (h2+12)*60+m2 >= startH*60+m1:
			endH = h2 + 12
		case borrowed && mer2 == "pm":
			startH = to24(h1, "am")
		}
	}

	start := model.ClockTime{Hour: startH, Minute: m1}
	end := model.ClockTime{Hour: endH, Minute: m2}
	return start, end, endH*60+m2 < startH*60+m1
}

func to24(h int, meridiem string) int {
	switch meridiem {
	case "am":
		if h == 12 {
			return 0
		}
	case "pm":
		if h != 12 {
			return h + 12
		}
	}
	return h
}

func validHour(h int, meridiem string) bool {
	if meridiem != "" {
		return h >= 1 && h <= 12
	}
	return h >= 0 && h <= 23
}

func atoiOr(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func applyClock12(p *Partial, m []string, _ string) bool {
	if p.Clock != nil {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	if !validHour(h, m[3]) {
		return false
	}
	p.Clock = &model.ClockTime{Hour: to24(h, m[3]), Minute: atoiOr(m[2], 0)}
	return true
}

func applyNoon(p *Partial, m []string, _ string) bool {
	if p.Clock != nil {
		return false
	}
	c := model.ClockTime{Hour: 12}
	if m[1] == "midnight" {
		c.Hour = 0
	}
	p.Clock = &c
	return true
}

func applyClock24(p *Partial, m []string, rest string) bool {
	if p.Clock != nil || reTrailingMeri.MatchString(rest) {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	p.Clock = &model.ClockTime{Hour: h, Minute: mm}
	return true
}
