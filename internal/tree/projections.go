package tree

import (
	"slices"
	"time"

	"github.com/baiirun/planner/internal/model"
)

// Day groups items that fall on one calendar date.
type Day struct {
	Date    model.Date `json:"date" yaml:"date"`
	Entries []Entry    `json:"items" yaml:"items"`
}

// Marker tells a scheduled-date view which part of a multi-day event an
// entry stands for. Single-day items carry no marker.
type Marker string

const (
	MarkerNone  Marker = ""
	MarkerStart Marker = "start"
	MarkerEnd   Marker = "end"
)

type Entry struct {
	Item   model.Item `json:"item" yaml:"item"`
	Marker Marker     `json:"marker,omitempty" yaml:"marker,omitempty"`
}

// ByCreatedDate groups every item under the day it was created, days in
// ascending order and items in creation order.
func (s *Store) ByCreatedDate() []Day {
	c := s.snapshot()
	byDay := map[model.Date][]Entry{}
	for _, id := range c.order {
		it := c.items[id]
		d := it.Header().CreatedDate
		byDay[d] = append(byDay[d], Entry{Item: it.Clone()})
	}
	return sortDays(byDay)
}

// ByScheduledDate groups scheduled tasks and events by the day they fall on
// in the store's zone. An event ending on a later day appears twice, with a
// start marker on its first day and an end marker on its last. Routines,
// notes and unscheduled tasks are left out.
func (s *Store) ByScheduledDate() []Day {
	c := s.snapshot()
	byDay := map[model.Date][]Entry{}
	add := func(d model.Date, e Entry) { byDay[d] = append(byDay[d], e) }

	for _, id := range c.order {
		switch v := c.items[id].(type) {
		case *model.Task:
			if v.ScheduledTime != nil {
				add(model.DateOf(v.ScheduledTime.In(s.loc)), Entry{Item: v.Clone()})
			}
		case *model.Event:
			first, last := eventSpan(v, s.loc)
			if last.After(first) {
				add(first, Entry{Item: v.Clone(), Marker: MarkerStart})
				add(last, Entry{Item: v.Clone(), Marker: MarkerEnd})
			} else {
				add(first, Entry{Item: v.Clone()})
			}
		}
	}

	days := sortDays(byDay)
	for _, d := range days {
		slices.SortStableFunc(d.Entries, func(a, b Entry) int {
			return entryTime(a).Compare(entryTime(b))
		})
	}
	return days
}

// eventSpan returns the first and last calendar days an event covers. An end
// exactly at midnight belongs to the previous day.
func eventSpan(e *model.Event, loc *time.Location) (model.Date, model.Date) {
	first := model.DateOf(e.StartTime.In(loc))
	end := e.EndTime.In(loc)
	if end.After(e.StartTime) && end.Equal(model.DateOf(end).In(loc)) {
		end = end.Add(-time.Nanosecond)
	}
	last := model.DateOf(end)
	if last.Before(first) {
		last = first
	}
	return first, last
}

func entryTime(e Entry) time.Time {
	if ev, ok := e.Item.(*model.Event); ok && e.Marker == MarkerEnd {
		return ev.EndTime
	}
	t, _ := model.ScheduledAt(e.Item)
	return t
}

// AllDatesWithItems returns every distinct creation date, ascending.
func (s *Store) AllDatesWithItems() []model.Date {
	c := s.snapshot()
	seen := map[model.Date]bool{}
	var dates []model.Date
	for _, id := range c.order {
		d := c.items[id].Header().CreatedDate
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	slices.SortFunc(dates, compareDates)
	return dates
}

// RoutinesOn returns the routines that fall on day, ordered by time of day
// with untimed routines last.
func (s *Store) RoutinesOn(day model.Date) []*model.Routine {
	c := s.snapshot()
	var out []*model.Routine
	for _, id := range c.order {
		r, ok := c.items[id].(*model.Routine)
		if ok && r.Recurrence.OccursOn(r.CreatedDate, day) {
			out = append(out, r.Clone().(*model.Routine))
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Routine) int {
		switch {
		case a.ScheduledTime == nil && b.ScheduledTime == nil:
			return 0
		case a.ScheduledTime == nil:
			return 1
		case b.ScheduledTime == nil:
			return -1
		}
		return (a.ScheduledTime.Hour*60 + a.ScheduledTime.Minute) - (b.ScheduledTime.Hour*60 + b.ScheduledTime.Minute)
	})
	return out
}

func sortDays(byDay map[model.Date][]Entry) []Day {
	days := make([]Day, 0, len(byDay))
	for d, entries := range byDay {
		days = append(days, Day{Date: d, Entries: entries})
	}
	slices.SortFunc(days, func(a, b Day) int { return compareDates(a.Date, b.Date) })
	return days
}

func compareDates(a, b model.Date) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}
