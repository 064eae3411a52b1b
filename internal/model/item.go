package model

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindTask    Kind = "task"
	KindEvent   Kind = "event"
	KindRoutine Kind = "routine"
	KindNote    Kind = "note"
)

// IsValid reports whether k is one of the four item kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindEvent, KindRoutine, KindNote:
		return true
	}
	return false
}

// ParseKind accepts a kind name or its single-letter prefix (t, e, r, n).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "task":
		return KindTask, nil
	case "e", "event":
		return KindEvent, nil
	case "r", "routine":
		return KindRoutine, nil
	case "n", "note":
		return KindNote, nil
	}
	return "", fmt.Errorf("invalid kind: %q (use task, event, routine or note)", s)
}

// Item is one node of the item tree. The concrete type is always one of
// *Task, *Event, *Routine or *Note; switch on it to reach kind-specific fields.
type Item interface {
	Header() *Base
	Clone() Item
	sealed()
}

// Base holds the fields every kind shares.
type Base struct {
	ID          string     `json:"id" yaml:"id"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Content     string     `json:"content" yaml:"content"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	CreatedDate Date       `json:"createdDate" yaml:"createdDate"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty" yaml:"cancelledAt,omitempty"`
	ParentID    *string    `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	ParentKind  *Kind      `json:"parentKind,omitempty" yaml:"parentKind,omitempty"`
	DepthLevel  int        `json:"depthLevel" yaml:"depthLevel"`
	Children    []string   `json:"children" yaml:"children"`
}

func (b *Base) Header() *Base { return b }

func (b Base) clone() Base {
	out := b
	out.CompletedAt = cloneTime(b.CompletedAt)
	out.CancelledAt = cloneTime(b.CancelledAt)
	if b.ParentID != nil {
		id := *b.ParentID
		out.ParentID = &id
	}
	if b.ParentKind != nil {
		k := *b.ParentKind
		out.ParentKind = &k
	}
	out.Children = append([]string{}, b.Children...)
	return out
}

type Task struct {
	Base             `yaml:",inline"`
	ScheduledTime    *time.Time `json:"scheduledTime,omitempty" yaml:"scheduledTime,omitempty"`
	HasTime          bool       `json:"hasTime" yaml:"hasTime"`
	EmbeddedRefs     []string   `json:"embeddedRefs,omitempty" yaml:"embeddedRefs,omitempty"`
	CompletionLinkID *string    `json:"completionLinkId,omitempty" yaml:"completionLinkId,omitempty"`
}

func (t *Task) sealed() {}

func (t *Task) Clone() Item {
	out := *t
	out.Base = t.Base.clone()
	out.ScheduledTime = cloneTime(t.ScheduledTime)
	out.EmbeddedRefs = cloneStrings(t.EmbeddedRefs)
	if t.CompletionLinkID != nil {
		id := *t.CompletionLinkID
		out.CompletionLinkID = &id
	}
	return &out
}

// Done reports whether the task carries a completion timestamp.
func (t *Task) Done() bool { return t.CompletedAt != nil }

type Event struct {
	Base         `yaml:",inline"`
	StartTime    time.Time `json:"startTime" yaml:"startTime"`
	EndTime      time.Time `json:"endTime" yaml:"endTime"`
	HasTime      bool      `json:"hasTime" yaml:"hasTime"`
	EmbeddedRefs []string  `json:"embeddedRefs,omitempty" yaml:"embeddedRefs,omitempty"`
}

func (e *Event) sealed() {}

func (e *Event) Clone() Item {
	out := *e
	out.Base = e.Base.clone()
	out.EmbeddedRefs = cloneStrings(e.EmbeddedRefs)
	return &out
}

// IsAllDay is derived: an event without a stated clock time spans whole days.
func (e *Event) IsAllDay() bool { return !e.HasTime }

type Routine struct {
	Base            `yaml:",inline"`
	Recurrence      RecurrenceRule `json:"recurrence" yaml:"recurrence"`
	ScheduledTime   *ClockTime     `json:"scheduledTime,omitempty" yaml:"scheduledTime,omitempty"`
	HasTime         bool           `json:"hasTime" yaml:"hasTime"`
	Streak          int            `json:"streak" yaml:"streak"`
	LastCompletedAt *Date          `json:"lastCompletedAt,omitempty" yaml:"lastCompletedAt,omitempty"`
}

func (r *Routine) sealed() {}

func (r *Routine) Clone() Item {
	out := *r
	out.Base = r.Base.clone()
	out.Recurrence = r.Recurrence.Clone()
	if r.ScheduledTime != nil {
		c := *r.ScheduledTime
		out.ScheduledTime = &c
	}
	if r.LastCompletedAt != nil {
		d := *r.LastCompletedAt
		out.LastCompletedAt = &d
	}
	return &out
}

type LinkPreview struct {
	URL         string `json:"url" yaml:"url"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Domain      string `json:"domain,omitempty" yaml:"domain,omitempty"`
}

type Note struct {
	Base         `yaml:",inline"`
	LinkPreviews []LinkPreview `json:"embeddedLinkPreviews,omitempty" yaml:"embeddedLinkPreviews,omitempty"`
	OrderIndex   int           `json:"orderIndex" yaml:"orderIndex"`
}

func (n *Note) sealed() {}

func (n *Note) Clone() Item {
	out := *n
	out.Base = n.Base.clone()
	out.LinkPreviews = append([]LinkPreview(nil), n.LinkPreviews...)
	return &out
}

// ScheduledAt returns the instant an item is scheduled for, if it has one.
// Tasks report their scheduled time, events their start; routines and notes
// are never tied to a calendar date.
func ScheduledAt(it Item) (time.Time, bool) {
	switch v := it.(type) {
	case *Task:
		if v.ScheduledTime != nil {
			return *v.ScheduledTime, true
		}
	case *Event:
		return v.StartTime, true
	}
	return time.Time{}, false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
