package tree

import (
	"fmt"
	"time"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/parse"
)

// Patch lists field changes for Update. Nil fields are left alone; fields
// that do not exist on the item's kind are ignored.
type Patch struct {
	// Kind, if set, must equal the item's current kind.
	Kind    *model.Kind
	Content *string

	// ScheduledTime moves a task, or the start of an event keeping its length.
	ScheduledTime  *time.Time
	ClearScheduled bool
	EndTime        *time.Time
	HasTime        *bool
	EmbeddedRefs   []string
	CompletionLink *string
	Recurrence     *model.RecurrenceRule
	TimeOfDay      *model.ClockTime
	ClearTimeOfDay bool
	LinkPreviews   []model.LinkPreview
	OrderIndex     *int
}

// Update applies p to the item with id. Editing the content of a task or
// event re-reads its [[id]] references unless p sets them explicitly. An
// unknown id yields an empty commit.
func (s *Store) Update(id string, p Patch) (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.cur.get(id)
	if !ok {
		return &Commit{}, nil
	}
	if p.Kind != nil && *p.Kind != before.Header().Kind {
		return nil, ErrKindChange
	}

	now := s.reference()
	after := before.Clone()
	h := after.Header()
	if p.Content != nil {
		h.Content = *p.Content
	}

	refs := p.EmbeddedRefs
	if refs == nil && p.Content != nil {
		refs = parse.ExtractRefs(*p.Content)
	}

	switch v := after.(type) {
	case *model.Task:
		if p.ScheduledTime != nil {
			t := *p.ScheduledTime
			v.ScheduledTime = &t
		}
		if p.ClearScheduled {
			v.ScheduledTime, v.HasTime = nil, false
		}
		if p.HasTime != nil {
			v.HasTime = *p.HasTime
		}
		if refs != nil || p.Content != nil {
			v.EmbeddedRefs = refs
		}
		if p.CompletionLink != nil {
			link := *p.CompletionLink
			v.CompletionLinkID = &link
		}

	case *model.Event:
		if p.ScheduledTime != nil {
			length := v.EndTime.Sub(v.StartTime)
			v.StartTime = *p.ScheduledTime
			v.EndTime = v.StartTime.Add(length)
		}
		if p.EndTime != nil {
			v.EndTime = *p.EndTime
		}
		if p.HasTime != nil {
			v.HasTime = *p.HasTime
		}
		if v.EndTime.Before(v.StartTime) {
			return nil, ErrEndBeforeStart
		}
		if refs != nil || p.Content != nil {
			v.EmbeddedRefs = refs
		}

	case *model.Routine:
		if p.Recurrence != nil {
			if err := p.Recurrence.Validate(); err != nil {
				return nil, err
			}
			v.Recurrence = p.Recurrence.Clone()
		}
		if p.TimeOfDay != nil {
			tod := *p.TimeOfDay
			v.ScheduledTime, v.HasTime = &tod, true
		}
		if p.ClearTimeOfDay {
			v.ScheduledTime, v.HasTime = nil, false
		}

	case *model.Note:
		if p.LinkPreviews != nil {
			v.LinkPreviews = append([]model.LinkPreview{}, p.LinkPreviews...)
		}
		if p.OrderIndex != nil {
			v.OrderIndex = *p.OrderIndex
		}
	}
	h.UpdatedAt = now

	next := s.cur.clone()
	next.items[id] = after
	c := &Commit{Changes: []Change{{Op: OpUpdate, ID: id, Before: before, After: after}}}
	s.commit("update", next, c)
	return c, nil
}

// Delete removes id and every descendant reachable through children lists,
// and drops the removed ids from any surviving children list. An unknown id
// yields an empty commit.
func (s *Store) Delete(id string) *Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cur.get(id); !ok {
		return &Commit{}
	}

	doomed := descendants(s.cur, id)
	next := s.cur.clone()
	c := &Commit{}
	for _, rid := range next.order {
		if doomed[rid] {
			c.Changes = append(c.Changes, Change{Op: OpDelete, ID: rid, Before: next.items[rid]})
			delete(next.items, rid)
		}
	}
	kept := next.order[:0]
	for _, rid := range next.order {
		if !doomed[rid] {
			kept = append(kept, rid)
		}
	}
	next.order = kept

	now := s.reference()
	for _, pid := range next.order {
		before := next.items[pid]
		if !containsAny(before.Header().Children, doomed) {
			continue
		}
		after := before.Clone()
		h := after.Header()
		var children []string
		for _, cid := range h.Children {
			if !doomed[cid] {
				children = append(children, cid)
			}
		}
		h.Children = append([]string{}, children...)
		h.UpdatedAt = now
		next.items[pid] = after
		c.Changes = append(c.Changes, Change{Op: OpUpdate, ID: pid, Before: before, After: after})
	}

	s.commit("delete", next, c)
	return c
}

// descendants returns id and everything reachable from it through children.
func descendants(c *collection, id string) map[string]bool {
	seen := map[string]bool{}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		it, ok := c.get(cur)
		if !ok {
			continue
		}
		seen[cur] = true
		queue = append(queue, it.Header().Children...)
	}
	return seen
}

func containsAny(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

// ToggleCompletion flips a task between done and not done and gives its
// direct task children the same completion value. Grandchildren are left
// alone. Anything other than an existing task yields an empty commit.
func (s *Store) ToggleCompletion(id string) *Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.cur.get(id)
	task, isTask := target.(*model.Task)
	if !ok || !isTask {
		return &Commit{}
	}

	now := s.reference()
	var completed *time.Time
	if task.CompletedAt == nil {
		completed = &now
	}

	next := s.cur.clone()
	c := &Commit{}
	apply := func(before *model.Task) {
		after := before.Clone().(*model.Task)
		after.CompletedAt = nil
		if completed != nil {
			at := *completed
			after.CompletedAt = &at
			after.CancelledAt = nil
		}
		after.UpdatedAt = now
		next.items[after.ID] = after
		c.Changes = append(c.Changes, Change{Op: OpUpdate, ID: after.ID, Before: before, After: after})
	}

	apply(task)
	for _, cid := range next.order {
		child, ok := next.items[cid].(*model.Task)
		if ok && child.ParentID != nil && *child.ParentID == id {
			apply(child)
		}
	}

	s.commit("toggle_completion", next, c)
	return c
}

// ToggleCancelled flips a task between cancelled and open. Cancelling clears
// any completion. Children are not touched.
func (s *Store) ToggleCancelled(id string) *Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.cur.get(id)
	task, isTask := target.(*model.Task)
	if !ok || !isTask {
		return &Commit{}
	}

	now := s.reference()
	after := task.Clone().(*model.Task)
	if after.CancelledAt != nil {
		after.CancelledAt = nil
	} else {
		at := now
		after.CancelledAt = &at
		after.CompletedAt = nil
	}
	after.UpdatedAt = now

	next := s.cur.clone()
	next.items[id] = after
	c := &Commit{Changes: []Change{{Op: OpUpdate, ID: id, Before: task, After: after}}}
	s.commit("toggle_cancelled", next, c)
	return c
}

// CompleteRoutine marks a routine done for today. The streak grows when the
// previous completion was the routine's previous occurrence and restarts at
// one otherwise. Completing twice on the same day changes nothing.
func (s *Store) CompleteRoutine(id string) *Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.cur.get(id)
	r, isRoutine := target.(*model.Routine)
	if !ok || !isRoutine {
		return &Commit{}
	}

	now := s.reference()
	today := model.DateOf(now)
	if r.LastCompletedAt != nil && *r.LastCompletedAt == today {
		return &Commit{}
	}

	after := r.Clone().(*model.Routine)
	after.Streak = 1
	if r.LastCompletedAt != nil {
		if prev, ok := r.Recurrence.PreviousOccurrence(r.CreatedDate, today); ok && prev == *r.LastCompletedAt {
			after.Streak = r.Streak + 1
		}
	}
	after.LastCompletedAt = &today
	after.UpdatedAt = now

	next := s.cur.clone()
	next.items[id] = after
	c := &Commit{Changes: []Change{{Op: OpUpdate, ID: id, Before: r, After: after}}}
	s.commit("complete_routine", next, c)
	return c
}

var kindPrefix = map[model.Kind]string{
	model.KindTask:    "t ",
	model.KindEvent:   "e ",
	model.KindRoutine: "r ",
	model.KindNote:    "n ",
}

// Retype replaces an item with a new item of kind built from the same
// content. The replacement gets a new id but keeps the creation time, the
// parent position and the children, which are re-pointed at it. The whole
// swap is validated like a create and applied in one commit. An unknown id
// or an unchanged kind yields an empty commit.
func (s *Store) Retype(id string, kind model.Kind) (*Commit, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid kind: %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.cur.get(id)
	if !ok || old.Header().Kind == kind {
		return &Commit{}, nil
	}
	oh := old.Header()

	parentID := ""
	if oh.ParentID != nil {
		parentID = *oh.ParentID
	}
	p, err := place(s.cur, kind, parentID, oh.DepthLevel)
	if err != nil {
		return nil, err
	}
	if err := checkChildren(s.cur, id, oh.Children, kind, p.depth); err != nil {
		return nil, err
	}

	now := s.reference()
	next := s.cur.clone()
	pl := s.parser.Line(kindPrefix[kind]+oh.Content, now)
	repl := s.build(next, pl, p, now)
	rh := repl.Header()
	rh.CreatedAt, rh.CreatedDate = oh.CreatedAt, oh.CreatedDate
	if kind != model.KindRoutine {
		rh.Children = append([]string{}, oh.Children...)
	}
	if n, ok := repl.(*model.Note); ok {
		if on, ok := old.(*model.Note); ok {
			n.OrderIndex = on.OrderIndex
		}
	}

	c := &Commit{Created: []string{rh.ID}}
	c.Changes = append(c.Changes,
		Change{Op: OpDelete, ID: id, Before: old},
		Change{Op: OpCreate, ID: rh.ID, After: repl},
	)
	delete(next.items, id)
	next.items[rh.ID] = repl
	next.order[indexOf(next.order, id)] = rh.ID

	if parentID != "" {
		before := next.items[parentID]
		after := before.Clone()
		ah := after.Header()
		idx := indexOf(ah.Children, id)
		if p.parent != nil && idx >= 0 {
			ah.Children[idx] = rh.ID
		} else if idx >= 0 {
			ah.Children = append(ah.Children[:idx], ah.Children[idx+1:]...)
		}
		ah.UpdatedAt = now
		next.items[parentID] = after
		c.Changes = append(c.Changes, Change{Op: OpUpdate, ID: parentID, Before: before, After: after})
	}

	for _, cid := range rh.Children {
		before, ok := next.items[cid]
		if !ok {
			continue
		}
		after := before.Clone()
		ah := after.Header()
		newID, newKind := rh.ID, kind
		ah.ParentID, ah.ParentKind = &newID, &newKind
		ah.UpdatedAt = now
		next.items[cid] = after
		c.Changes = append(c.Changes, Change{Op: OpUpdate, ID: cid, Before: before, After: after})
	}

	s.commit("retype", next, c)
	return c, nil
}

// checkChildren verifies the children of parentID may stay under it once it
// becomes kind at depth.
func checkChildren(c *collection, parentID string, children []string, kind model.Kind, depth int) error {
	for _, cid := range children {
		child, ok := c.get(cid)
		if !ok {
			continue
		}
		ch := child.Header()
		verr := &ValidationError{Kind: ch.Kind, ParentID: parentID, ParentKind: kind, Depth: depth + 1}
		switch kind {
		case model.KindRoutine:
			verr.Reason = ReasonParentCannotNest
			return verr
		case model.KindTask, model.KindEvent:
			if ch.Kind == model.KindEvent || ch.Kind == model.KindRoutine {
				verr.Reason = ReasonChildKindNotAllowed
				return verr
			}
			if depth+1 > MaxDepthUnderTask {
				verr.Reason, verr.MaxDepth = ReasonDepthExceeded, MaxDepthUnderTask
				return verr
			}
		case model.KindNote:
			if depth+1 > MaxDepthUnderNote {
				verr.Reason, verr.MaxDepth = ReasonDepthExceeded, MaxDepthUnderNote
				return verr
			}
		}
	}
	return nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
