package tree

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/parse"
)

const (
	// MaxDepthUnderTask bounds children of tasks and events.
	MaxDepthUnderTask = 1
	// MaxDepthUnderNote bounds descendants of notes.
	MaxDepthUnderNote = 2
)

type createOpts struct {
	parentID string
	depth    int
	hasDepth bool
}

type CreateOption func(*createOpts)

// UnderParent attaches the new item to parentID. For CreateBlock it attaches
// the block's top-level lines.
func UnderParent(parentID string) CreateOption {
	return func(o *createOpts) { o.parentID = parentID }
}

// AtDepth overrides the computed depth. For CreateBlock it is added to every
// line's indentation level.
func AtDepth(depth int) CreateOption {
	return func(o *createOpts) {
		o.depth = depth
		o.hasDepth = true
	}
}

func collectOpts(opts []CreateOption) createOpts {
	var o createOpts
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// placement is where a validated item goes.
type placement struct {
	parent model.Item
	depth  int
}

// place checks that an item of kind may go under parentID at depth. A
// negative depth means one below the parent. Routines under a note are
// moved to the top level instead of nested.
func place(c *collection, kind model.Kind, parentID string, depth int) (placement, error) {
	if parentID == "" {
		return placement{}, nil
	}
	parent, ok := c.get(parentID)
	if !ok {
		return placement{}, &ValidationError{Reason: ReasonParentNotFound, Kind: kind, ParentID: parentID}
	}
	ph := parent.Header()
	if depth < 0 {
		depth = ph.DepthLevel + 1
	}

	verr := &ValidationError{Kind: kind, ParentID: parentID, ParentKind: ph.Kind, Depth: depth}
	switch ph.Kind {
	case model.KindRoutine:
		verr.Reason = ReasonParentCannotNest
		return placement{}, verr

	case model.KindTask, model.KindEvent:
		if kind == model.KindEvent || kind == model.KindRoutine {
			verr.Reason = ReasonChildKindNotAllowed
			return placement{}, verr
		}
		if depth > MaxDepthUnderTask {
			verr.Reason, verr.MaxDepth = ReasonDepthExceeded, MaxDepthUnderTask
			return placement{}, verr
		}

	case model.KindNote:
		if kind == model.KindRoutine {
			return placement{}, nil
		}
		if depth > MaxDepthUnderNote {
			verr.Reason, verr.MaxDepth = ReasonDepthExceeded, MaxDepthUnderNote
			return placement{}, verr
		}
	}
	return placement{parent: parent, depth: depth}, nil
}

// Create parses text into a new item. With UnderParent the item is attached
// to that parent and the parent's children list gains the new id in the same
// commit. A ValidationError leaves the store untouched.
func (s *Store) Create(text string, opts ...CreateOption) (*Commit, error) {
	o := collectOpts(opts)
	depth := -1
	if o.hasDepth {
		depth = o.depth
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := s.reference()
	pl := s.parser.Line(text, ref)

	next := s.cur.clone()
	c := &Commit{}
	if err := s.insert(next, c, pl, o.parentID, depth, ref); err != nil {
		s.log.Debug().Err(err).Str("kind", string(pl.Kind)).Msg("create rejected")
		return nil, err
	}
	s.commit("create", next, c)
	return c, nil
}

// CreateBlock parses an indented block and creates one item per line,
// attaching each line to the nearest shallower line above it. Top-level
// lines attach to the UnderParent id if given. Nothing is created unless the
// block is well formed and every line validates.
func (s *Store) CreateBlock(text string, opts ...CreateOption) (*Commit, error) {
	o := collectOpts(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := s.reference()
	res := s.parser.Block(text, ref)
	if len(res.Errors) > 0 {
		return nil, &BlockError{Errors: res.Errors}
	}

	type frame struct {
		level int
		id    string
	}
	var stack []frame

	next := s.cur.clone()
	c := &Commit{}
	for _, pl := range res.Lines {
		for len(stack) > 0 && stack[len(stack)-1].level >= pl.Level {
			stack = stack[:len(stack)-1]
		}
		parentID := o.parentID
		if len(stack) > 0 {
			parentID = stack[len(stack)-1].id
		}

		depth := -1
		if o.hasDepth {
			depth = pl.Level + o.depth
		} else if parentID == "" {
			depth = pl.Level
		}

		if err := s.insert(next, c, pl, parentID, depth, ref); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				verr.Line = pl.LineNo
			}
			s.log.Debug().Err(err).Int("line", pl.LineNo).Msg("block rejected")
			return nil, err
		}
		stack = append(stack, frame{level: pl.Level, id: c.Created[len(c.Created)-1]})
	}

	s.commit("create_block", next, c)
	return c, nil
}

// insert validates and adds one parsed line to next, recording the changes
// in c. next is private to the caller until committed.
func (s *Store) insert(next *collection, c *Commit, pl parse.ParsedLine, parentID string, depth int, ref time.Time) error {
	p, err := place(next, pl.Kind, parentID, depth)
	if err != nil {
		return err
	}

	it := s.build(next, pl, p, ref)
	id := it.Header().ID
	next.items[id] = it
	next.order = append(next.order, id)
	c.Created = append(c.Created, id)
	if pl.NeedsTimePrompt {
		c.NeedsTimePrompt = append(c.NeedsTimePrompt, id)
	}
	c.Changes = append(c.Changes, Change{Op: OpCreate, ID: id, After: it})

	if p.parent != nil {
		s.attach(next, c, p.parent.Header().ID, id, ref)
	}
	return nil
}

// attach appends childID to the parent's children in next.
func (s *Store) attach(next *collection, c *Commit, parentID, childID string, now time.Time) {
	before := next.items[parentID]
	after := before.Clone()
	h := after.Header()
	h.Children = append(h.Children, childID)
	h.UpdatedAt = now
	next.items[parentID] = after
	c.Changes = append(c.Changes, Change{Op: OpUpdate, ID: parentID, Before: before, After: after})
}

// build turns a parsed line into an item. Fields the text does not supply
// get defaults: an event with no date is an all-day event today, a timed
// event with no end lasts eventLength, a routine with no recurrence phrase
// uses the default rule.
func (s *Store) build(c *collection, pl parse.ParsedLine, p placement, now time.Time) model.Item {
	base := model.Base{
		ID:          s.newID(),
		Kind:        pl.Kind,
		Content:     pl.Content,
		CreatedAt:   now,
		CreatedDate: model.DateOf(now),
		UpdatedAt:   now,
		DepthLevel:  p.depth,
		Children:    []string{},
	}
	if p.parent != nil {
		pid, pk := p.parent.Header().ID, p.parent.Header().Kind
		base.ParentID, base.ParentKind = &pid, &pk
	}

	switch pl.Kind {
	case model.KindTask:
		return &model.Task{Base: base, ScheduledTime: pl.Start, HasTime: pl.HasTime, EmbeddedRefs: pl.EmbeddedRefs}

	case model.KindEvent:
		ev := &model.Event{Base: base, HasTime: pl.HasTime, EmbeddedRefs: pl.EmbeddedRefs}
		switch {
		case pl.Start == nil:
			day := model.DateOf(now)
			ev.StartTime, ev.EndTime, ev.HasTime = day.In(s.loc), day.AddDays(1).In(s.loc), false
		case pl.End == nil:
			ev.StartTime, ev.EndTime = *pl.Start, pl.Start.Add(s.eventLength)
		default:
			ev.StartTime, ev.EndTime = *pl.Start, *pl.End
		}
		return ev

	case model.KindRoutine:
		r := &model.Routine{Base: base, Recurrence: s.defaultRecurrence.Clone(), HasTime: pl.HasTime}
		if pl.Recurrence != nil {
			r.Recurrence = pl.Recurrence.Clone()
		}
		if pl.TimeOfDay != nil {
			tod := *pl.TimeOfDay
			r.ScheduledTime = &tod
		}
		return r

	default:
		return &model.Note{Base: base, LinkPreviews: linkPreviews(pl.Links), OrderIndex: siblingCount(c, p)}
	}
}

func siblingCount(c *collection, p placement) int {
	if p.parent != nil {
		return len(p.parent.Header().Children)
	}
	n := 0
	for _, id := range c.order {
		if c.items[id].Header().ParentID == nil {
			n++
		}
	}
	return n
}

// linkPreviews seeds a preview for each link with its URL and domain. Titles
// and thumbnails are filled in by whoever fetches the page.
func linkPreviews(links []string) []model.LinkPreview {
	var out []model.LinkPreview
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil || u.Host == "" {
			continue
		}
		if slices.ContainsFunc(out, func(p model.LinkPreview) bool { return p.URL == l }) {
			continue
		}
		out = append(out, model.LinkPreview{URL: l, Domain: strings.TrimPrefix(u.Hostname(), "www.")})
	}
	return out
}
