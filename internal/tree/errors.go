package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/baiirun/planner/internal/model"
)

// Reason names the invariant a rejected mutation would have broken.
type Reason string

const (
	ReasonDepthExceeded       Reason = "depth_exceeded"
	ReasonChildKindNotAllowed Reason = "child_kind_not_allowed"
	ReasonParentNotFound      Reason = "parent_not_found"
	ReasonParentCannotNest    Reason = "parent_cannot_nest"
)

var (
	ErrDepthExceeded       = errors.New("depth exceeded")
	ErrChildKindNotAllowed = errors.New("child kind not allowed")
	ErrParentNotFound      = errors.New("parent not found")
	ErrParentCannotNest    = errors.New("parent cannot have children")
	ErrMalformedBlock      = errors.New("malformed block")

	// ErrKindChange is returned by Update when a patch tries to change an
	// item's kind. Use Retype instead.
	ErrKindChange = errors.New("kind cannot be changed in place; use retype")
	// ErrEndBeforeStart is returned by Update when an event would end before it starts.
	ErrEndBeforeStart = errors.New("event end time is before its start time")
)

var reasonErrs = map[Reason]error{
	ReasonDepthExceeded:       ErrDepthExceeded,
	ReasonChildKindNotAllowed: ErrChildKindNotAllowed,
	ReasonParentNotFound:      ErrParentNotFound,
	ReasonParentCannotNest:    ErrParentCannotNest,
}

// ValidationError reports a create that would break a hierarchy invariant.
// Nothing is mutated when one is returned.
type ValidationError struct {
	Reason     Reason
	Kind       model.Kind
	ParentID   string
	ParentKind model.Kind
	Depth      int
	MaxDepth   int
	// Line is the 1-based block line that failed; 0 outside CreateBlock.
	Line int
}

func (e *ValidationError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonDepthExceeded:
		msg = fmt.Sprintf("cannot nest %s at depth %d: items under a %s may be at most %d levels deep", e.Kind, e.Depth, e.ParentKind, e.MaxDepth)
	case ReasonChildKindNotAllowed:
		msg = fmt.Sprintf("a %s cannot be placed under a %s (only tasks and notes can)", e.Kind, e.ParentKind)
	case ReasonParentNotFound:
		msg = fmt.Sprintf("parent not found: %s (use 'plan list' to see available items)", e.ParentID)
	case ReasonParentCannotNest:
		msg = fmt.Sprintf("a %s cannot have children", e.ParentKind)
	default:
		msg = string(e.Reason)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return reasonErrs[e.Reason] == target
}

// BlockError carries the line-level problems of a block that was refused.
type BlockError struct {
	Errors []string
}

func (e *BlockError) Error() string {
	return "malformed block: " + strings.Join(e.Errors, "; ")
}

func (e *BlockError) Is(target error) bool {
	return target == ErrMalformedBlock
}
