package doctor

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/starford/hagal/internal/parser"
)

// Header keys every note is expected to carry.
const (
	keyTitle   = "title"
	keyDesc    = "desc"
	keyUpdated = "updated"
	keyCreated = "created"
)

type field struct {
	key   string
	value parser.Value
}

// defaultFields returns the header a fresh note gets.
func defaultFields(fname, id string, now time.Time) []field {
	ms := float64(now.UnixMilli())
	return []field{
		{parser.IDKey, parser.String(id)},
		{keyTitle, parser.String(defaultTitle(fname))},
		{keyDesc, parser.String("")},
		{keyUpdated, parser.Number(ms)},
		{keyCreated, parser.Number(ms)},
	}
}

// defaultTitle upper-cases the first letter of the last fname segment.
func defaultTitle(fname string) string {
	last := fname[strings.LastIndex(fname, ".")+1:]
	r, size := utf8.DecodeRuneInString(last)
	if r == utf8.RuneError {
		return last
	}
	return string(unicode.ToUpper(r)) + last[size:]
}

// merge sets every field h lacks. A blank identifier counts as missing.
func merge(h *parser.Header, fields []field) {
	for _, f := range fields {
		if f.key == parser.IDKey {
			if id, _ := h.ID(); id == "" {
				h.Set(f.key, f.value)
			}
			continue
		}
		if !h.Has(f.key) {
			h.Set(f.key, f.value)
		}
	}
}
