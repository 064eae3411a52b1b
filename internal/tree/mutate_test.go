package tree

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/planner/internal/model"
)

func TestCreateBlock(t *testing.T) {
	s, _ := newTestStore(t)
	block := "t Launch prep\n  n Checklist\n    t Print badges\n  t Book venue\nn Retro"

	c, err := s.CreateBlock(block)
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if len(c.Created) != 5 {
		t.Fatalf("created %d items, want 5", len(c.Created))
	}

	launch := mustGet[*model.Task](t, s, c.Created[0])
	checklist := mustGet[*model.Note](t, s, c.Created[1])
	badges := mustGet[*model.Task](t, s, c.Created[2])
	venue := mustGet[*model.Task](t, s, c.Created[3])
	retro := mustGet[*model.Note](t, s, c.Created[4])

	if !reflect.DeepEqual(launch.Children, []string{checklist.ID, venue.ID}) {
		t.Errorf("launch children = %v", launch.Children)
	}
	if !reflect.DeepEqual(checklist.Children, []string{badges.ID}) {
		t.Errorf("checklist children = %v", checklist.Children)
	}
	if *checklist.ParentID != launch.ID || *venue.ParentID != launch.ID {
		t.Errorf("checklist parent %s, venue parent %s", *checklist.ParentID, *venue.ParentID)
	}
	if *badges.ParentID != checklist.ID || *badges.ParentKind != model.KindNote {
		t.Errorf("badges parent = %s (%s)", *badges.ParentID, *badges.ParentKind)
	}
	if retro.ParentID != nil {
		t.Errorf("retro parent = %s", *retro.ParentID)
	}

	for _, tc := range []struct {
		name  string
		depth int
		want  int
	}{
		{"launch", launch.DepthLevel, 0},
		{"checklist", checklist.DepthLevel, 1},
		{"badges", badges.DepthLevel, 2},
		{"retro", retro.DepthLevel, 0},
	} {
		if tc.depth != tc.want {
			t.Errorf("%s depth = %d, want %d", tc.name, tc.depth, tc.want)
		}
	}
}

func TestCreateBlock_InvalidLineRejectsWholeBlock(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "n existing")
	before := s.snapshot()

	_, err := s.CreateBlock("t A\n  t B\n    t C")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Reason != ReasonDepthExceeded || verr.Line != 3 {
		t.Errorf("reason = %s, line = %d", verr.Reason, verr.Line)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error should name line 3: %v", err)
	}
	if s.snapshot() != before || s.Len() != 1 {
		t.Error("a rejected block must leave the store untouched")
	}
}

func TestCreateBlock_Malformed(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.CreateBlock("n A\n      n B")

	if !errors.Is(err, ErrMalformedBlock) {
		t.Errorf("expected ErrMalformedBlock, got %v", err)
	}
	var berr *BlockError
	if !errors.As(err, &berr) {
		t.Fatalf("expected *BlockError, got %v", err)
	}
	if len(berr.Errors) != 1 {
		t.Errorf("errors = %v", berr.Errors)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestCreateBlock_UnderParentWithOffset(t *testing.T) {
	s, _ := newTestStore(t)
	root := mustCreate(t, s, "n Project")

	c, err := s.CreateBlock("n Phase one\n  n Kickoff", UnderParent(root), AtDepth(1))
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}

	phase := mustGet[*model.Note](t, s, c.Created[0])
	kickoff := mustGet[*model.Note](t, s, c.Created[1])
	if *phase.ParentID != root || phase.DepthLevel != 1 {
		t.Errorf("phase parent %s depth %d", *phase.ParentID, phase.DepthLevel)
	}
	if *kickoff.ParentID != phase.ID || kickoff.DepthLevel != 2 {
		t.Errorf("kickoff parent %s depth %d", *kickoff.ParentID, kickoff.DepthLevel)
	}
	if children := mustGet[*model.Note](t, s, root).Children; !reflect.DeepEqual(children, []string{phase.ID}) {
		t.Errorf("root children = %v", children)
	}
}

func TestUpdate(t *testing.T) {
	s, clk := newTestStore(t)
	id := mustCreate(t, s, "t draft memo")
	clk.advance(time.Hour)

	content := "draft memo for [[zz9]]"
	c, err := s.Update(id, Patch{Content: &content})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(c.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(c.Changes))
	}

	task := mustGet[*model.Task](t, s, id)
	if task.Content != content {
		t.Errorf("content = %q", task.Content)
	}
	if !reflect.DeepEqual(task.EmbeddedRefs, []string{"zz9"}) {
		t.Errorf("refs = %v", task.EmbeddedRefs)
	}
	if !task.UpdatedAt.Equal(clk.t) || !task.CreatedAt.Equal(start) {
		t.Errorf("created %v updated %v", task.CreatedAt, task.UpdatedAt)
	}
}

func TestUpdate_KindChangeRefused(t *testing.T) {
	s, _ := newTestStore(t)
	id := mustCreate(t, s, "t stays a task")
	before := s.snapshot()

	note := model.KindNote
	if _, err := s.Update(id, Patch{Kind: &note}); !errors.Is(err, ErrKindChange) {
		t.Errorf("expected ErrKindChange, got %v", err)
	}
	if s.snapshot() != before {
		t.Error("a refused update must not publish a new collection")
	}

	same := model.KindTask
	if _, err := s.Update(id, Patch{Kind: &same}); err != nil {
		t.Errorf("same kind should be accepted: %v", err)
	}
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	s, _ := newTestStore(t)

	c, err := s.Update("ghost", Patch{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !c.Empty() {
		t.Errorf("expected empty commit, got %+v", c)
	}
}

func TestUpdate_EventTimes(t *testing.T) {
	s, _ := newTestStore(t)
	id := mustCreate(t, s, "e Dentist at 2pm")

	moved := time.Date(2026, 10, 20, 16, 0, 0, 0, time.UTC)
	if _, err := s.Update(id, Patch{ScheduledTime: &moved}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ev := mustGet[*model.Event](t, s, id)
	if !ev.StartTime.Equal(moved) {
		t.Errorf("start = %v, want %v", ev.StartTime, moved)
	}
	if !ev.EndTime.Equal(moved.Add(time.Hour)) {
		t.Errorf("moving should keep the length, end = %v", ev.EndTime)
	}

	early := moved.Add(-time.Hour)
	if _, err := s.Update(id, Patch{EndTime: &early}); !errors.Is(err, ErrEndBeforeStart) {
		t.Errorf("expected ErrEndBeforeStart, got %v", err)
	}
	if end := mustGet[*model.Event](t, s, id).EndTime; !end.Equal(moved.Add(time.Hour)) {
		t.Errorf("end changed to %v", end)
	}
}

func TestUpdate_RoutineFields(t *testing.T) {
	s, _ := newTestStore(t)
	id := mustCreate(t, s, "r Journal")

	weekly := model.RecurrenceRule{Frequency: model.FrequencyWeekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Sunday}}
	tod := model.ClockTime{Hour: 21}
	if _, err := s.Update(id, Patch{Recurrence: &weekly, TimeOfDay: &tod}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	r := mustGet[*model.Routine](t, s, id)
	if !reflect.DeepEqual(r.Recurrence, weekly) {
		t.Errorf("recurrence = %+v", r.Recurrence)
	}
	if r.ScheduledTime == nil || *r.ScheduledTime != tod || !r.HasTime {
		t.Errorf("time = %v, HasTime = %v", r.ScheduledTime, r.HasTime)
	}

	bad := model.RecurrenceRule{Frequency: "hourly", Interval: 1}
	if _, err := s.Update(id, Patch{Recurrence: &bad}); err == nil {
		t.Error("expected error for invalid recurrence")
	}
}

func TestDelete_Cascades(t *testing.T) {
	s, _ := newTestStore(t)
	root := mustCreate(t, s, "n Root")
	child := mustCreate(t, s, "n Child", UnderParent(root))
	grandchild := mustCreate(t, s, "t Grandchild", UnderParent(child))
	sibling := mustCreate(t, s, "n Sibling", UnderParent(root))
	other := mustCreate(t, s, "t Unrelated")

	c := s.Delete(child)

	deleted := c.Deleted()
	sort.Strings(deleted)
	want := []string{child, grandchild}
	sort.Strings(want)
	if !reflect.DeepEqual(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
	for _, id := range []string{child, grandchild} {
		if _, ok := s.Get(id); ok {
			t.Errorf("%s still present", id)
		}
	}

	if children := mustGet[*model.Note](t, s, root).Children; !reflect.DeepEqual(children, []string{sibling}) {
		t.Errorf("root children = %v", children)
	}
	if _, ok := s.Get(other); !ok {
		t.Error("unrelated item deleted")
	}
	if s.Len() != 3 {
		t.Errorf("len = %d, want 3", s.Len())
	}
}

func TestDelete_UnknownIDIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "t keep")
	before := s.snapshot()

	if c := s.Delete("ghost"); !c.Empty() {
		t.Errorf("expected empty commit, got %+v", c)
	}
	if s.snapshot() != before {
		t.Error("a no-op delete must not publish a new collection")
	}
}

func TestToggleCompletion_OneLevelDeep(t *testing.T) {
	s, clk := newTestStore(t)
	parentTask := &model.Task{Base: model.Base{ID: "p", Kind: model.KindTask, CreatedAt: start, Children: []string{"c"}}}
	childTask := &model.Task{Base: model.Base{ID: "c", Kind: model.KindTask, CreatedAt: start, ParentID: ptr("p"), ParentKind: ptr(model.KindTask), DepthLevel: 1, Children: []string{"g"}}}
	grandTask := &model.Task{Base: model.Base{ID: "g", Kind: model.KindTask, CreatedAt: start, ParentID: ptr("c"), ParentKind: ptr(model.KindTask), DepthLevel: 2, Children: []string{}}}
	s.Restore([]model.Item{parentTask, childTask, grandTask})
	clk.advance(time.Minute)

	c := s.ToggleCompletion("p")

	if len(c.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(c.Changes))
	}
	p := mustGet[*model.Task](t, s, "p")
	ch := mustGet[*model.Task](t, s, "c")
	g := mustGet[*model.Task](t, s, "g")
	if p.CompletedAt == nil || ch.CompletedAt == nil {
		t.Fatalf("parent %v child %v", p.CompletedAt, ch.CompletedAt)
	}
	if !p.CompletedAt.Equal(*ch.CompletedAt) {
		t.Errorf("children get the identical timestamp: %v vs %v", *p.CompletedAt, *ch.CompletedAt)
	}
	if g.CompletedAt != nil {
		t.Error("grandchildren are not touched")
	}

	s.ToggleCompletion("p")
	if mustGet[*model.Task](t, s, "p").CompletedAt != nil || mustGet[*model.Task](t, s, "c").CompletedAt != nil {
		t.Error("second toggle should reopen parent and child")
	}
}

func TestToggleCompletion_SkipsNonTaskChildren(t *testing.T) {
	s, _ := newTestStore(t)
	parent := mustCreate(t, s, "t Pack")
	note := mustCreate(t, s, "n Remember chargers", UnderParent(parent))
	sub := mustCreate(t, s, "t Socks", UnderParent(parent))

	c := s.ToggleCompletion(parent)

	if len(c.Changes) != 2 {
		t.Errorf("expected 2 changes, got %d", len(c.Changes))
	}
	if mustGet[*model.Note](t, s, note).CompletedAt != nil {
		t.Error("note child completed")
	}
	if mustGet[*model.Task](t, s, sub).CompletedAt == nil {
		t.Error("task child not completed")
	}
}

func TestToggleCompletion_NonTaskIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	note := mustCreate(t, s, "n Idea")

	if !s.ToggleCompletion(note).Empty() || !s.ToggleCompletion("ghost").Empty() {
		t.Error("expected empty commits")
	}
}

func TestToggleCancelled(t *testing.T) {
	s, _ := newTestStore(t)
	id := mustCreate(t, s, "t Maybe")
	s.ToggleCompletion(id)

	s.ToggleCancelled(id)
	task := mustGet[*model.Task](t, s, id)
	if task.CancelledAt == nil || task.CompletedAt != nil {
		t.Errorf("cancelling clears completion: cancelled %v completed %v", task.CancelledAt, task.CompletedAt)
	}

	s.ToggleCompletion(id)
	task = mustGet[*model.Task](t, s, id)
	if task.CompletedAt == nil || task.CancelledAt != nil {
		t.Errorf("completing clears cancellation: cancelled %v completed %v", task.CancelledAt, task.CompletedAt)
	}

	s.ToggleCancelled(id)
	s.ToggleCancelled(id)
	if mustGet[*model.Task](t, s, id).CancelledAt != nil {
		t.Error("double toggle should leave the task not cancelled")
	}
}

func TestCompleteRoutine_Streak(t *testing.T) {
	s, clk := newTestStore(t)
	id := mustCreate(t, s, "r Meditate")

	s.CompleteRoutine(id)
	if got := mustGet[*model.Routine](t, s, id).Streak; got != 1 {
		t.Errorf("streak = %d, want 1", got)
	}

	if !s.CompleteRoutine(id).Empty() {
		t.Error("second completion on the same day should be a no-op")
	}

	clk.advance(24 * time.Hour)
	s.CompleteRoutine(id)
	r := mustGet[*model.Routine](t, s, id)
	if r.Streak != 2 {
		t.Errorf("streak = %d, want 2", r.Streak)
	}
	if r.LastCompletedAt == nil || *r.LastCompletedAt != (model.Date{Year: 2026, Month: 10, Day: 18}) {
		t.Errorf("last completed = %v", r.LastCompletedAt)
	}

	clk.advance(48 * time.Hour)
	s.CompleteRoutine(id)
	if got := mustGet[*model.Routine](t, s, id).Streak; got != 1 {
		t.Errorf("a missed day resets the streak, got %d", got)
	}
}

func TestCompleteRoutine_WeeklyStreak(t *testing.T) {
	s, clk := newTestStore(t)
	id := mustCreate(t, s, "r Long run every saturday")

	s.CompleteRoutine(id)
	clk.advance(7 * 24 * time.Hour)
	s.CompleteRoutine(id)

	if got := mustGet[*model.Routine](t, s, id).Streak; got != 2 {
		t.Errorf("streak = %d, want 2", got)
	}
}

func TestRetype(t *testing.T) {
	s, clk := newTestStore(t)
	parent := mustCreate(t, s, "t Trip planning")
	child := mustCreate(t, s, "t Book flights", UnderParent(parent))
	clk.advance(time.Hour)

	c, err := s.Retype(parent, model.KindNote)
	if err != nil {
		t.Fatalf("Retype: %v", err)
	}

	newID := c.ID()
	if newID == "" || newID == parent {
		t.Fatalf("replacement id = %q", newID)
	}
	if _, ok := s.Get(parent); ok {
		t.Error("old item still present")
	}

	note := mustGet[*model.Note](t, s, newID)
	if note.Content != "Trip planning" || !note.CreatedAt.Equal(start) {
		t.Errorf("note = %q created %v", note.Content, note.CreatedAt)
	}
	if !reflect.DeepEqual(note.Children, []string{child}) {
		t.Errorf("children = %v", note.Children)
	}

	ch := mustGet[*model.Task](t, s, child)
	if *ch.ParentID != newID || *ch.ParentKind != model.KindNote {
		t.Errorf("child parent = %s (%s)", *ch.ParentID, *ch.ParentKind)
	}
	if got := idsOf(s.Items()); !reflect.DeepEqual(got, []string{newID, child}) {
		t.Errorf("replacement should keep its place in creation order, got %v", got)
	}
}

func TestRetype_ReparsesContent(t *testing.T) {
	s, _ := newTestStore(t)
	id := mustCreate(t, s, "t Standup tomorrow at 9am")

	c, err := s.Retype(id, model.KindEvent)
	if err != nil {
		t.Fatalf("Retype: %v", err)
	}

	ev := mustGet[*model.Event](t, s, c.ID())
	if !ev.StartTime.Equal(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)) ||
		!ev.EndTime.Equal(time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("span = %v .. %v", ev.StartTime, ev.EndTime)
	}
}

func TestRetype_UpdatesParentChildren(t *testing.T) {
	s, _ := newTestStore(t)
	root := mustCreate(t, s, "n Root")
	a := mustCreate(t, s, "n A", UnderParent(root))
	b := mustCreate(t, s, "n B", UnderParent(root))

	c, err := s.Retype(a, model.KindTask)
	if err != nil {
		t.Fatalf("Retype: %v", err)
	}
	if children := mustGet[*model.Note](t, s, root).Children; !reflect.DeepEqual(children, []string{c.ID(), b}) {
		t.Errorf("root children = %v", children)
	}

	c, err = s.Retype(b, model.KindRoutine)
	if err != nil {
		t.Fatalf("Retype: %v", err)
	}
	if r := mustGet[*model.Routine](t, s, c.ID()); r.ParentID != nil {
		t.Error("routines never nest")
	}
	if n := len(mustGet[*model.Note](t, s, root).Children); n != 1 {
		t.Errorf("root children = %d, want 1", n)
	}
}

func TestRetype_Rejected(t *testing.T) {
	s, _ := newTestStore(t)
	task := mustCreate(t, s, "t Parent")
	mustCreate(t, s, "t Child", UnderParent(task))
	note := mustCreate(t, s, "n Agenda")
	mustCreate(t, s, "e Offsite friday", UnderParent(note))
	before := s.snapshot()

	if _, err := s.Retype(task, model.KindRoutine); !errors.Is(err, ErrParentCannotNest) {
		t.Errorf("expected ErrParentCannotNest, got %v", err)
	}
	if _, err := s.Retype(note, model.KindTask); !errors.Is(err, ErrChildKindNotAllowed) {
		t.Errorf("expected ErrChildKindNotAllowed, got %v", err)
	}
	if s.snapshot() != before {
		t.Error("a rejected retype must not publish a new collection")
	}

	c, err := s.Retype(task, model.KindTask)
	if err != nil {
		t.Fatalf("Retype: %v", err)
	}
	if !c.Empty() {
		t.Errorf("same-kind retype should be empty, got %+v", c)
	}
}

func TestByCreatedDate(t *testing.T) {
	s, clk := newTestStore(t)
	a := mustCreate(t, s, "t first")
	b := mustCreate(t, s, "n second")
	clk.advance(48 * time.Hour)
	c := mustCreate(t, s, "t third")

	days := s.ByCreatedDate()

	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != (model.Date{Year: 2026, Month: 10, Day: 17}) || !reflect.DeepEqual(entryIDs(days[0].Entries), []string{a, b}) {
		t.Errorf("first day = %v %v", days[0].Date, entryIDs(days[0].Entries))
	}
	if days[1].Date != (model.Date{Year: 2026, Month: 10, Day: 19}) || !reflect.DeepEqual(entryIDs(days[1].Entries), []string{c}) {
		t.Errorf("second day = %v %v", days[1].Date, entryIDs(days[1].Entries))
	}

	if got := s.AllDatesWithItems(); !reflect.DeepEqual(got, []model.Date{days[0].Date, days[1].Date}) {
		t.Errorf("dates = %v", got)
	}
}

func TestByScheduledDate(t *testing.T) {
	s, _ := newTestStore(t)
	rent := mustCreate(t, s, "t Pay rent oct 20 at 9am")
	conf := mustCreate(t, s, "e Conference oct 20")
	mustCreate(t, s, "t Someday")
	mustCreate(t, s, "r Stretch")
	mustCreate(t, s, "n Ideas")

	end := time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)
	if _, err := s.Update(conf, Patch{EndTime: &end}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	days := s.ByScheduledDate()

	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != (model.Date{Year: 2026, Month: 10, Day: 20}) || len(days[0].Entries) != 2 {
		t.Fatalf("first day = %v with %d entries", days[0].Date, len(days[0].Entries))
	}
	if e := days[0].Entries[0]; e.Item.Header().ID != conf || e.Marker != MarkerStart {
		t.Errorf("first entry = %s %q", e.Item.Header().ID, e.Marker)
	}
	if e := days[0].Entries[1]; e.Item.Header().ID != rent || e.Marker != MarkerNone {
		t.Errorf("second entry = %s %q", e.Item.Header().ID, e.Marker)
	}

	if days[1].Date != (model.Date{Year: 2026, Month: 10, Day: 21}) || len(days[1].Entries) != 1 {
		t.Fatalf("second day = %v with %d entries", days[1].Date, len(days[1].Entries))
	}
	if m := days[1].Entries[0].Marker; m != MarkerEnd {
		t.Errorf("marker = %q, want end", m)
	}
}

func TestByScheduledDate_SingleDayAllDayEvent(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "e Holiday tomorrow")

	days := s.ByScheduledDate()

	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	if m := days[0].Entries[0].Marker; m != MarkerNone {
		t.Errorf("marker = %q, want none", m)
	}
}

func TestRoutinesOn(t *testing.T) {
	s, _ := newTestStore(t)
	daily := mustCreate(t, s, "r Journal")
	morning := mustCreate(t, s, "r Run every monday at 7am")
	mustCreate(t, s, "r Pay card 1st of every month")

	monday := model.Date{Year: 2026, Month: 10, Day: 19}
	got := s.RoutinesOn(monday)

	if len(got) != 2 {
		t.Fatalf("expected 2 routines, got %d", len(got))
	}
	// Timed routines first.
	if got[0].ID != morning || got[1].ID != daily {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}

	if before := s.RoutinesOn(model.Date{Year: 2026, Month: 10, Day: 1}); len(before) != 0 {
		t.Errorf("nothing is due before creation, got %d", len(before))
	}
}

func ptr[T any](v T) *T { return &v }

func idsOf(items []model.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Header().ID)
	}
	return ids
}

func entryIDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Item.Header().ID)
	}
	return ids
}
