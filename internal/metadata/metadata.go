// Package metadata classifies note headers.
package metadata

import (
	"regexp"

	"github.com/starford/hagal/internal/parser"
)

// Verdict is the outcome of validating one note's header.
type Verdict int

const (
	Valid Verdict = iota
	MissingHeader
	MissingIdentifier
	InvalidIdentifier
	DuplicateIdentifier
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case MissingHeader:
		return "missingHeader"
	case MissingIdentifier:
		return "missingIdentifier"
	case InvalidIdentifier:
		return "invalidIdentifier"
	case DuplicateIdentifier:
		return "duplicateIdentifier"
	default:
		return "unknown"
	}
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// WellFormedID reports whether id may be used as a note identifier.
func WellFormedID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate classifies h. counts maps each identifier to the number of notes
// in the workspace carrying it; a nil header means the note has none.
func Validate(h *parser.Header, counts map[string]int) Verdict {
	if h == nil {
		return MissingHeader
	}
	id, ok := h.ID()
	if !ok || id == "" {
		return MissingIdentifier
	}
	if !WellFormedID(id) || h.Occurrences(parser.IDKey) > 1 {
		return InvalidIdentifier
	}
	if counts[id] > 1 {
		return DuplicateIdentifier
	}
	return Valid
}
