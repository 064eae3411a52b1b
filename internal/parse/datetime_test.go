package parse

import (
	"regexp"
	"testing"
	"time"

	"github.com/baiirun/planner/internal/model"
)

func TestResolveRange(t *testing.T) {
	tests := []struct {
		name        string
		h1, m1      int
		mer1        string
		h2, m2      int
		mer2        string
		wantStart   model.ClockTime
		wantEnd     model.ClockTime
		wantNextDay bool
	}{
		{"12am end means noon", 10, 0, "", 12, 0, "am", model.ClockTime{Hour: 10}, model.ClockTime{Hour: 12}, false},
		{"pm start keeps midnight", 10, 0, "pm", 12, 0, "am", model.ClockTime{Hour: 22}, model.ClockTime{Hour: 0}, true},
		{"both pm", 2, 0, "pm", 4, 0, "pm", model.ClockTime{Hour: 14}, model.ClockTime{Hour: 16}, false},
		{"start borrows pm", 2, 0, "", 4, 0, "pm", model.ClockTime{Hour: 14}, model.ClockTime{Hour: 16}, false},
		{"borrowed pm dropped to am", 11, 0, "", 1, 0, "pm", model.ClockTime{Hour: 11}, model.ClockTime{Hour: 13}, false},
		{"bare end assumed pm", 10, 0, "", 2, 0, "", model.ClockTime{Hour: 10}, model.ClockTime{Hour: 14}, false},
		{"bare increasing stays", 9, 0, "", 11, 0, "", model.ClockTime{Hour: 9}, model.ClockTime{Hour: 11}, false},
		{"overnight", 9, 0, "pm", 1, 0, "", model.ClockTime{Hour: 21}, model.ClockTime{Hour: 1}, true},
		{"explicit 12pm end", 10, 30, "am", 12, 0, "pm", model.ClockTime{Hour: 10, Minute: 30}, model.ClockTime{Hour: 12}, false},
		{"24-hour values", 13, 0, "", 15, 45, "", model.ClockTime{Hour: 13}, model.ClockTime{Hour: 15, Minute: 45}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, nextDay := resolveRange(tt.h1, tt.m1, tt.mer1, tt.h2, tt.m2, tt.mer2)
			if start != tt.wantStart {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if end != tt.wantEnd {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
			if nextDay != tt.wantNextDay {
				t.Errorf("nextDay = %v, want %v", nextDay, tt.wantNextDay)
			}
		})
	}
}

func TestExtractDateTime_NoMatch(t *testing.T) {
	x := ExtractDateTime("buy milk", ref)
	if x.Start != nil || x.End != nil || x.HasTime {
		t.Errorf("expected empty extraction, got %+v", x)
	}
}

func TestExtractDateTime_ClockOnlyUsesToday(t *testing.T) {
	x := ExtractDateTime("standup 08:15", ref)
	if x.Start == nil {
		t.Fatal("expected a start time")
	}
	if !x.Start.Equal(at(2026, 10, 17, 8, 15)) {
		t.Errorf("start = %v", *x.Start)
	}
	if !x.HasTime {
		t.Error("expected HasTime")
	}
}

func TestExtractDateTime_FirstRefinerWins(t *testing.T) {
	// The relative offset claims the instant before any weekday is considered.
	x := ExtractDateTime("in 2 hours, not friday", ref)
	if x.Start == nil {
		t.Fatal("expected a start time")
	}
	if want := ref.Add(2 * time.Hour); !x.Start.Equal(want) {
		t.Errorf("start = %v, want %v", *x.Start, want)
	}
}

func TestExtractDateTime_Grammar(t *testing.T) {
	tests := []struct {
		in       string
		want     *time.Time
		wantTime bool
	}{
		{"in 30 minutes", ptr(ref.Add(30 * time.Minute)), true},
		{"in an hour", ptr(ref.Add(time.Hour)), true},
		{"in 45m", ptr(ref.Add(45 * time.Minute)), true},
		{"in 2 weeks", ptr(at(2026, 10, 31, 0, 0)), false},
		{"in 1w", ptr(at(2026, 10, 24, 0, 0)), false},
		{"yesterday", ptr(at(2026, 10, 16, 0, 0)), false},
		{"today at 5pm", ptr(at(2026, 10, 17, 17, 0)), true},
		{"next month", ptr(at(2026, 11, 17, 0, 0)), false},
		{"next year", ptr(at(2027, 10, 17, 0, 0)), false},
		{"monday", ptr(at(2026, 10, 19, 0, 0)), false},
		{"last fri", ptr(at(2026, 10, 16, 0, 0)), false},
		{"march 3rd, 2027", ptr(at(2027, 3, 3, 0, 0)), false},
		{"call now", nil, false},
		{"in 3 months", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			x := ExtractDateTime(tt.in, ref)
			if tt.want == nil {
				if x.Start != nil {
					t.Errorf("expected no date, got %v", *x.Start)
				}
				return
			}
			if x.Start == nil {
				t.Fatal("expected a start time")
			}
			if !x.Start.Equal(*tt.want) {
				t.Errorf("start = %v, want %v", *x.Start, *tt.want)
			}
			if x.HasTime != tt.wantTime {
				t.Errorf("HasTime = %v, want %v", x.HasTime, tt.wantTime)
			}
		})
	}
}

func TestExtractor_CustomChain(t *testing.T) {
	payday := Refiner{
		Name:    "payday",
		Pattern: regexp.MustCompile(`\bpayday\b`),
		Apply: func(p *Partial, _ []string, _ string) bool {
			d := model.Date{Year: 2026, Month: 10, Day: 30}
			p.Date = &d
			return true
		},
	}

	x := NewExtractor(append([]Refiner{payday}, DefaultRefiners()...)...).Extract("rent due payday at 9am", ref)
	if x.Start == nil || !x.Start.Equal(at(2026, 10, 30, 9, 0)) {
		t.Errorf("custom chain start = %v", x.Start)
	}

	// Without the custom refiner only the clock is found.
	x = ExtractDateTime("rent due payday at 9am", ref)
	if x.Start == nil || !x.Start.Equal(at(2026, 10, 17, 9, 0)) {
		t.Errorf("default chain start = %v", x.Start)
	}
}

func TestExtractDateTime_InvalidCalendarDates(t *testing.T) {
	for _, in := range []string{"on 2026-02-30", "feb 30"} {
		if x := ExtractDateTime(in, ref); x.Start != nil {
			t.Errorf("%q: expected no date, got %v", in, *x.Start)
		}
	}
}

func TestExtractDateTime_LastWeekday(t *testing.T) {
	x := ExtractDateTime("notes from last saturday", ref)
	if x.Start == nil || !x.Start.Equal(at(2026, 10, 10, 0, 0)) {
		t.Errorf("start = %v, want 2026-10-10", x.Start)
	}
}
