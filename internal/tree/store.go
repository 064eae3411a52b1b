// Package tree holds the in-memory item tree and every mutation on it.
//
// A Store owns an immutable collection that is replaced wholesale by each
// successful mutation, so a failed operation leaves the visible state exactly
// as it was and readers never observe half-applied changes. Every non-empty
// mutation produces a Commit which is handed to the registered sinks.
package tree

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/parse"
)

// DefaultEventLength is the duration given to a timed event with no end.
const DefaultEventLength = time.Hour

// collection is never modified after it is published.
type collection struct {
	items map[string]model.Item
	order []string
}

func (c *collection) clone() *collection {
	items := make(map[string]model.Item, len(c.items))
	for id, it := range c.items {
		items[id] = it
	}
	return &collection{items: items, order: slices.Clone(c.order)}
}

func (c *collection) get(id string) (model.Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

type Store struct {
	mu  sync.Mutex
	cur *collection

	parser            *parse.Parser
	now               func() time.Time
	loc               *time.Location
	newID             func() string
	eventLength       time.Duration
	defaultRecurrence model.RecurrenceRule
	sinks             []Sink
	log               zerolog.Logger
}

type Option func(*Store)

// WithClock replaces time.Now as the source of timestamps and the reference
// instant for parsing.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used for calendar dates. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func WithParser(p *parse.Parser) Option {
	return func(s *Store) { s.parser = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithSink(sink Sink) Option {
	return func(s *Store) { s.sinks = append(s.sinks, sink) }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithEventLength sets how long a timed event without an end lasts.
func WithEventLength(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.eventLength = d
		}
	}
}

// WithDefaultRecurrence sets the rule given to routines whose text has no
// recurrence phrase. Defaults to daily.
func WithDefaultRecurrence(r model.RecurrenceRule) Option {
	return func(s *Store) { s.defaultRecurrence = r.Clone() }
}

func New(opts ...Option) *Store {
	s := &Store{
		cur:               &collection{items: map[string]model.Item{}},
		parser:            parse.New(parse.Options{}),
		now:               time.Now,
		loc:               time.Local,
		newID:             model.NewID,
		eventLength:       DefaultEventLength,
		defaultRecurrence: model.Daily(),
		log:               zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone the store uses for calendar dates.
func (s *Store) Location() *time.Location { return s.loc }

func (s *Store) snapshot() *collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// reference is the parse reference instant: now, in the store's zone.
func (s *Store) reference() time.Time {
	return s.now().In(s.loc)
}

// commit publishes next and notifies sinks. Callers hold s.mu.
func (s *Store) commit(op string, next *collection, c *Commit) {
	if c.Empty() {
		return
	}
	s.cur = next
	s.log.Debug().Str("op", op).Int("changes", len(c.Changes)).Strs("created", c.Created).Msg("commit applied")

	for _, sink := range s.sinks {
		if err := sink.Persist(c); err != nil {
			s.log.Warn().Err(err).Str("op", op).Msg("sink failed to persist commit")
		}
	}
}

// Get returns a copy of the item with id.
func (s *Store) Get(id string) (model.Item, bool) {
	it, ok := s.snapshot().get(id)
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// Items returns copies of every item in creation order.
func (s *Store) Items() []model.Item {
	c := s.snapshot()
	out := make([]model.Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].Clone())
	}
	return out
}

func (s *Store) Len() int { return len(s.snapshot().order) }

// Restore replaces the whole collection with items, ordered by creation time.
// It is meant for loading persisted state and does not notify sinks.
func (s *Store) Restore(items []model.Item) {
	next := &collection{items: make(map[string]model.Item, len(items))}
	for _, it := range items {
		h := it.Header()
		if _, dup := next.items[h.ID]; dup {
			continue
		}
		next.items[h.ID] = it.Clone()
		next.order = append(next.order, h.ID)
	}
	slices.SortStableFunc(next.order, func(a, b string) int {
		ta, tb := next.items[a].Header().CreatedAt, next.items[b].Header().CreatedAt
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
	s.log.Debug().Int("items", len(next.order)).Msg("restored items")
}
