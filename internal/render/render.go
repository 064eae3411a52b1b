// Package render formats items and day groupings for the terminal.
//
// Styling goes through lipgloss, which drops colors when the output is not a
// terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/tree"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	kindColors = map[model.Kind]lipgloss.Color{
		model.KindTask:    lipgloss.Color("252"),
		model.KindEvent:   lipgloss.Color("39"),
		model.KindRoutine: lipgloss.Color("214"),
		model.KindNote:    lipgloss.Color("141"),
	}

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	cancelledStyle = lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147"))
)

const indent = "  "

// Line is the one-line summary of an item.
func Line(it model.Item, loc *time.Location) string {
	h := it.Header()
	content := h.Content
	switch {
	case h.CancelledAt != nil:
		content = cancelledStyle.Render(content)
	case h.CompletedAt != nil:
		content = doneStyle.Render(content)
	}

	parts := []string{
		lipgloss.NewStyle().Foreground(kindColors[h.Kind]).Render(marker(it)),
		labelStyle.Render(h.ID),
		content,
	}
	if w := When(it, loc); w != "" {
		parts = append(parts, dimStyle.Render("· "+w))
	}
	return strings.Join(parts, " ")
}

func marker(it model.Item) string {
	switch v := it.(type) {
	case *model.Task:
		switch {
		case v.CancelledAt != nil:
			return "[-]"
		case v.CompletedAt != nil:
			return "[x]"
		}
		return "[ ]"
	case *model.Event:
		return "(e)"
	case *model.Routine:
		return "(r)"
	}
	return " • "
}

// When describes an item's schedule, or "" if it has none.
func When(it model.Item, loc *time.Location) string {
	switch v := it.(type) {
	case *model.Task:
		if v.ScheduledTime == nil {
			return ""
		}
		t := v.ScheduledTime.In(loc)
		if !v.HasTime {
			return t.Format("Mon Jan 2")
		}
		return t.Format("Mon Jan 2 15:04")

	case *model.Event:
		start, end := v.StartTime.In(loc), v.EndTime.In(loc)
		if v.IsAllDay() {
			days := int(end.Sub(start).Hours()+12) / 24
			if days <= 1 {
				return start.Format("Mon Jan 2") + ", all day"
			}
			return fmt.Sprintf("%s, all day (%d days)", start.Format("Mon Jan 2"), days)
		}
		if model.DateOf(start) == model.DateOf(end) {
			return start.Format("Mon Jan 2 15:04") + "–" + end.Format("15:04")
		}
		return start.Format("Mon Jan 2 15:04") + " – " + end.Format("Mon Jan 2 15:04")

	case *model.Routine:
		s := v.Recurrence.String()
		if v.ScheduledTime != nil {
			s += " at " + v.ScheduledTime.String()
		}
		if v.Streak > 0 {
			s += fmt.Sprintf(", streak %d", v.Streak)
		}
		return s
	}
	return ""
}

// Tree writes items nested under their parents, roots in creation order.
func Tree(w io.Writer, items []model.Item, loc *time.Location) {
	byID := make(map[string]model.Item, len(items))
	for _, it := range items {
		byID[it.Header().ID] = it
	}

	var walk func(it model.Item, level int)
	walk = func(it model.Item, level int) {
		fmt.Fprintln(w, strings.Repeat(indent, level)+Line(it, loc))
		for _, cid := range it.Header().Children {
			if child, ok := byID[cid]; ok {
				walk(child, level+1)
			}
		}
	}

	for _, it := range items {
		h := it.Header()
		if h.ParentID != nil {
			if _, ok := byID[*h.ParentID]; ok {
				continue
			}
		}
		walk(it, 0)
	}
}

// Days writes day groups under date headers. Multi-day event markers are
// spelled out next to the entry.
func Days(w io.Writer, days []tree.Day, loc *time.Location, today model.Date) {
	for i, d := range days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, titleStyle.Render(DayHeader(d.Date, today)))
		for _, e := range d.Entries {
			line := indent + Line(e.Item, loc)
			switch e.Marker {
			case tree.MarkerStart:
				line += " " + dimStyle.Render("(starts)")
			case tree.MarkerEnd:
				line += " " + dimStyle.Render("(ends)")
			}
			fmt.Fprintln(w, line)
		}
	}
}

// DayHeader names a date, calling out today, tomorrow and yesterday.
func DayHeader(d, today model.Date) string {
	s := d.In(time.UTC).Format("Mon Jan 2 2006")
	switch today.DaysUntil(d) {
	case 0:
		s += " (today)"
	case 1:
		s += " (tomorrow)"
	case -1:
		s += " (yesterday)"
	}
	return s
}

// Routines writes the routines due on day.
func Routines(w io.Writer, day model.Date, routines []*model.Routine, loc *time.Location) {
	fmt.Fprintln(w, titleStyle.Render("Routines for "+day.String()))
	if len(routines) == 0 {
		fmt.Fprintln(w, dimStyle.Render(indent+"none"))
		return
	}
	for _, r := range routines {
		check := " "
		if r.LastCompletedAt != nil && *r.LastCompletedAt == day {
			check = "x"
		}
		fmt.Fprintf(w, "%s[%s] %s\n", indent, check, Line(r, loc))
	}
}

// Detail is everything Show prints about an item.
type Detail struct {
	Item      model.Item
	Refs      []string
	Backlinks []string
	History   []HistoryLine
}

type HistoryLine struct {
	Op string
	At time.Time
}

// Show writes a labelled multi-line description of an item.
func Show(w io.Writer, d Detail, loc *time.Location, now time.Time) {
	h := d.Item.Header()
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", detailLabelStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
	}

	fmt.Fprintln(w, titleStyle.Render(h.Content))
	field("ID", h.ID)
	field("Kind", string(h.Kind))
	field("When", When(d.Item, loc))
	field("Created", relative(h.CreatedAt, now))
	field("Updated", relative(h.UpdatedAt, now))
	if h.CompletedAt != nil {
		field("Done", relative(*h.CompletedAt, now))
	}
	if h.CancelledAt != nil {
		field("Cancelled", relative(*h.CancelledAt, now))
	}
	if h.ParentID != nil {
		field("Parent", fmt.Sprintf("%s (%s)", *h.ParentID, *h.ParentKind))
	}
	field("Depth", fmt.Sprint(h.DepthLevel))
	field("Children", strings.Join(h.Children, ", "))

	field("Refs", strings.Join(d.Refs, ", "))

	switch v := d.Item.(type) {
	case *model.Routine:
		if v.LastCompletedAt != nil {
			field("Last done", v.LastCompletedAt.String())
		}
	case *model.Note:
		for _, p := range v.LinkPreviews {
			field("Link", fmt.Sprintf("%s (%s)", p.URL, p.Domain))
		}
	}
	field("Backlinks", strings.Join(d.Backlinks, ", "))

	if len(d.History) > 0 {
		fmt.Fprintln(w, detailLabelStyle.Render("History:"))
		for _, l := range d.History {
			fmt.Fprintf(w, "%s%s %s\n", indent, l.Op, dimStyle.Render(relative(l.At, now)))
		}
	}
}

func relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Errors writes block errors one per line.
func Errors(w io.Writer, errs []string) {
	for _, e := range errs {
		fmt.Fprintln(w, errorStyle.Render(e))
	}
}
