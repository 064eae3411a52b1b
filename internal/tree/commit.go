package tree

import "github.com/baiirun/planner/internal/model"

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one item-level effect of a commit. Before is nil for creates and
// After is nil for deletes.
type Change struct {
	Op     Op
	ID     string
	Before model.Item
	After  model.Item
}

// Commit describes everything one store operation applied. An operation that
// changed nothing returns an empty commit.
type Commit struct {
	// Created lists new item ids in creation order.
	Created []string
	// NeedsTimePrompt lists created ids whose date was found without a clock time.
	NeedsTimePrompt []string
	Changes         []Change
}

func (c *Commit) Empty() bool { return len(c.Changes) == 0 }

// ID returns the first created id, or "" if nothing was created.
func (c *Commit) ID() string {
	if len(c.Created) == 0 {
		return ""
	}
	return c.Created[0]
}

// Deleted lists the ids removed by the commit.
func (c *Commit) Deleted() []string {
	var ids []string
	for _, ch := range c.Changes {
		if ch.Op == OpDelete {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

// Inverse returns the changes that undo c, in the order they must be applied.
func (c *Commit) Inverse() []Change {
	out := make([]Change, 0, len(c.Changes))
	for i := len(c.Changes) - 1; i >= 0; i-- {
		ch := c.Changes[i]
		inv := Change{ID: ch.ID, Before: ch.After, After: ch.Before}
		switch ch.Op {
		case OpCreate:
			inv.Op = OpDelete
		case OpDelete:
			inv.Op = OpCreate
		default:
			inv.Op = OpUpdate
		}
		out = append(out, inv)
	}
	return out
}

// Sink receives every non-empty commit after it has been applied. A sink
// error is logged and never undoes the commit. Sinks run while the store is
// locked and must not call back into it.
type Sink interface {
	Persist(c *Commit) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(c *Commit) error

func (f SinkFunc) Persist(c *Commit) error { return f(c) }
