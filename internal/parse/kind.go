package parse

import (
	"regexp"
	"strings"

	"github.com/baiirun/planner/internal/model"
)

var kindPrefixes = map[byte]model.Kind{
	't': model.KindTask,
	'e': model.KindEvent,
	'r': model.KindRoutine,
	'n': model.KindNote,
	'*': model.KindNote,
}

// DetectKind reads the kind prefix from the first two characters: one prefix
// character and a space. Anything else is a note and nothing is stripped.
func DetectKind(s string) (model.Kind, string) {
	if len(s) >= 2 && s[1] == ' ' {
		if k, ok := kindPrefixes[s[0]]; ok {
			return k, s[2:]
		}
	}
	return model.KindNote, s
}

var refPattern = regexp.MustCompile(`\[\[([a-z0-9]+)\]\]`)

// ExtractRefs returns the ids of every [[id]] token in order of appearance,
// duplicates included. The text itself is left alone.
func ExtractRefs(s string) []string {
	matches := refPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>()\[\]]+`)

// ExtractLinks returns the http(s) URLs in s in order of appearance, with
// trailing sentence punctuation dropped.
func ExtractLinks(s string) []string {
	found := linkPattern.FindAllString(s, -1)
	if len(found) == 0 {
		return nil
	}
	links := make([]string, 0, len(found))
	for _, l := range found {
		links = append(links, strings.TrimRight(l, ".,;:!?"))
	}
	return links
}
