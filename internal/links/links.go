// Package links extracts wiki-link occurrences from note bodies.
//
// Grammar:
//
//	[[target]]
//	[[alias|target]]
//
// target is either a bare fname (a.b.c) or a vault-qualified address
// dendron://<vault>/<fname>. An optional #anchor suffix is dropped. Links inside
// fenced or indented code blocks and inline code spans are ignored. Malformed
// occurrences are skipped; extraction never fails.
package links

import (
	"iter"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/starford/hagal/internal/models"
)

// Link is one parsed occurrence.
type Link struct {
	// Display is the alias text, empty when the link has none.
	Display string `json:"display,omitempty"`
	// Vault is set only for vault-qualified links.
	Vault string `json:"vault,omitempty"`
	Fname string `json:"fname"`
	// Raw is the literal source text including brackets.
	Raw   string `json:"raw"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Qualified reports whether the link names its target vault.
func (l Link) Qualified() bool { return l.Vault != "" }

// All returns the links of body in left-to-right order. The sequence is lazy
// and can be ranged over any number of times.
func All(body string) iter.Seq[Link] {
	return func(yield func(Link) bool) {
		var skip []span
		if strings.Contains(body, "[[") {
			skip = codeSpans(body)
		}
		pos := 0
		for {
			l, next, ok := scan(body, pos)
			if !ok {
				return
			}
			pos = next
			if l.Fname == "" || inside(skip, l.Start) {
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

// Collect drains All into a slice.
func Collect(body string) []Link {
	var out []Link
	for l := range All(body) {
		out = append(out, l)
	}
	return out
}

// Parse decodes the inner text of a link (without brackets).
func Parse(inner string) (Link, bool) {
	display, target := "", inner
	if i := strings.LastIndex(inner, "|"); i >= 0 {
		display, target = strings.TrimSpace(inner[:i]), inner[i+1:]
	}
	target = strings.TrimSpace(target)
	if i := strings.Index(target, "#"); i >= 0 {
		target = strings.TrimSpace(target[:i])
	}
	l := Link{Display: display}
	if rest, ok := strings.CutPrefix(target, models.LinkScheme); ok {
		vault, fname, found := strings.Cut(rest, "/")
		if !found || vault == "" {
			return Link{}, false
		}
		l.Vault = vault
		target = strings.TrimSpace(fname)
	}
	if target == "" {
		return Link{}, false
	}
	l.Fname = target
	return l, true
}

// scan finds the next well-formed link at or after pos. A returned link with
// an empty Fname marks a malformed occurrence the caller should skip.
func scan(body string, pos int) (Link, int, bool) {
	for pos < len(body) {
		i := strings.Index(body[pos:], "[[")
		if i < 0 {
			return Link{}, len(body), false
		}
		start := pos + i
		// Collapse runs like "[[[" onto the innermost opener.
		for start+2 < len(body) && body[start+2] == '[' {
			start++
		}
		open := start + 2
		j := strings.Index(body[open:], "]]")
		if j < 0 {
			return Link{}, len(body), false
		}
		inner := body[open : open+j]
		end := open + j + 2
		if strings.ContainsAny(inner, "\n[]") {
			// Unbalanced: resume right after this opener.
			return Link{}, open, true
		}
		l, ok := Parse(inner)
		if !ok {
			return Link{}, end, true
		}
		l.Raw = body[start:end]
		l.Start, l.End = start, end
		return l, end, true
	}
	return Link{}, pos, false
}

type span struct{ start, stop int }

func inside(spans []span, off int) bool {
	for _, s := range spans {
		if off >= s.start && off < s.stop {
			return true
		}
	}
	return false
}

// codeSpans returns the byte ranges of code blocks and inline code in body.
func codeSpans(body string) []span {
	src := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var out []span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			if lines.Len() > 0 {
				out = append(out, span{lines.At(0).Start, lines.At(lines.Len() - 1).Stop})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			first, last := -1, -1
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					if first < 0 {
						first = t.Segment.Start
					}
					last = t.Segment.Stop
				}
			}
			if first >= 0 {
				out = append(out, span{first, last})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}
