package parse

import (
	"fmt"
	"strings"
	"time"
)

// BlockResult holds every parsed line of a block plus any structural errors.
// Callers must not materialize anything from a block with errors.
type BlockResult struct {
	Lines  []ParsedLine `json:"lines" yaml:"lines"`
	Errors []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Block parses a multi-line block. Each non-blank line is parsed on its own
// and tagged with its indentation level; a line may sit at most one level
// deeper than the line before it, and the first line must not be indented.
func (p *Parser) Block(raw string, ref time.Time) BlockResult {
	var res BlockResult
	prev := -1
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 1
		level := p.indentLevel(line)

		switch {
		case prev < 0 && level > 0:
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: first line must not be indented", lineNo))
		case level > prev+1:
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: indented %d levels below the previous line (at most 1 allowed)", lineNo, level-prev))
		}
		prev = level

		parsed := p.Line(line, ref)
		parsed.Level = level
		parsed.LineNo = lineNo
		res.Lines = append(res.Lines, parsed)
	}
	return res
}

// indentLevel counts leading indentation: a tab is one level, and every
// indentWidth spaces are one level. A partial run of spaces rounds down.
func (p *Parser) indentLevel(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case '\t':
			spaces += p.indentWidth
		case ' ':
			spaces++
		default:
			return spaces / p.indentWidth
		}
	}
	return spaces / p.indentWidth
}
