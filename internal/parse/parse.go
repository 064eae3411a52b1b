// Package parse turns free-form input lines into structured item
// descriptions.
//
// A line is classified by its prefix ("t ", "e ", "r ", "n ", "* "), scanned
// for [[id]] references, and, depending on its kind, for a date/time phrase
// or a recurrence phrase. Parsing never fails: ambiguous input produces a
// best-effort result and NeedsTimePrompt tells the caller to ask for a time.
package parse

import (
	"strings"
	"time"

	"github.com/baiirun/planner/internal/model"
)

// ParsedLine is the structured description of one input line.
type ParsedLine struct {
	Kind    model.Kind `json:"kind" yaml:"kind"`
	Content string     `json:"content" yaml:"content"`
	Level   int        `json:"level" yaml:"level"`
	LineNo  int        `json:"line,omitempty" yaml:"line,omitempty"`

	// Start is the scheduled time of a task or the start of an event.
	Start   *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End     *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	HasTime bool       `json:"hasTime" yaml:"hasTime"`

	// Recurrence and TimeOfDay are only set for routines.
	Recurrence *model.RecurrenceRule `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
	TimeOfDay  *model.ClockTime      `json:"timeOfDay,omitempty" yaml:"timeOfDay,omitempty"`

	EmbeddedRefs []string `json:"embeddedRefs,omitempty" yaml:"embeddedRefs,omitempty"`

	// Links holds the URLs found in a note.
	Links           []string `json:"links,omitempty" yaml:"links,omitempty"`
	NeedsTimePrompt bool     `json:"needsTimePrompt" yaml:"needsTimePrompt"`
}

// Options tune a Parser. The zero value gives the defaults.
type Options struct {
	// IndentWidth is the number of spaces per block level. A tab is always
	// one level. Defaults to 2.
	IndentWidth int
}

const DefaultIndentWidth = 2

type Parser struct {
	indentWidth int
	extractor   *Extractor
}

func New(opts Options) *Parser {
	width := opts.IndentWidth
	if width <= 0 {
		width = DefaultIndentWidth
	}
	return &Parser{indentWidth: width, extractor: defaultExtractor}
}

var defaultParser = New(Options{})

// ParseLine parses a single line with default options.
func ParseLine(raw string, ref time.Time) ParsedLine {
	return defaultParser.Line(raw, ref)
}

// ParseBlock parses an indentation-structured block with default options.
func ParseBlock(raw string, ref time.Time) BlockResult {
	return defaultParser.Block(raw, ref)
}

// Line parses one line relative to ref. Relative phrases ("in 2 hours",
// "tomorrow") resolve against ref, and dates land in ref's location.
func (p *Parser) Line(raw string, ref time.Time) ParsedLine {
	kind, content := DetectKind(strings.TrimLeft(raw, " \t"))
	content = strings.TrimSpace(content)

	out := ParsedLine{
		Kind:         kind,
		Content:      content,
		EmbeddedRefs: ExtractRefs(content),
	}

	switch kind {
	case model.KindTask, model.KindEvent:
		x := p.extractor.Extract(content, ref)
		out.Start, out.End, out.HasTime = x.Start, x.End, x.HasTime

		if kind == model.KindEvent && out.Start != nil && !out.HasTime {
			start := model.DateOf(*out.Start).In(ref.Location())
			end := model.DateOf(start).AddDays(1).In(ref.Location())
			out.Start, out.End = &start, &end
		}

		out.NeedsTimePrompt = out.Start != nil && !out.HasTime
		if HasExplicitTime(raw) {
			out.NeedsTimePrompt = false
		}

	case model.KindRoutine:
		out.Recurrence = DetectRecurrence(content)
		if x := p.extractor.Extract(content, ref); x.HasTime {
			c := model.ClockOf(*x.Start)
			out.TimeOfDay = &c
			out.HasTime = true
		}

	case model.KindNote:
		out.Links = ExtractLinks(content)
	}

	return out
}
