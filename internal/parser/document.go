// Package parser splits note files into their header block and body, and
// renders them back.
package parser

import (
	"bytes"
	"strings"
)

// Delimiter opens and closes the header block.
const Delimiter = "---"

// Document is a note file split into its header block and body.
type Document struct {
	// Header is nil when the file has no (well-formed) header block.
	Header *Header
	Body   string
}

// Parse separates the YAML header (between leading --- lines) from the body.
// It never fails: a missing, unclosed or unparseable header leaves the whole
// content as body with a nil Header.
func Parse(data []byte) *Document {
	raw, body, ok := splitHeader(data)
	if !ok {
		return &Document{Body: string(data)}
	}
	h, err := parseHeader(raw)
	if err != nil {
		return &Document{Body: string(data)}
	}
	return &Document{Header: h, Body: body}
}

// Render serialises the document. A nil header renders the body alone.
func (d *Document) Render() ([]byte, error) {
	var buf bytes.Buffer
	if d.Header != nil {
		raw, err := d.Header.Marshal()
		if err != nil {
			return nil, err
		}
		buf.WriteString(Delimiter + "\n")
		buf.Write(raw)
		buf.WriteString(Delimiter + "\n")
	}
	buf.WriteString(d.Body)
	return buf.Bytes(), nil
}

// splitHeader returns the raw header lines and the body that follows the
// closing delimiter. ok is false when the first line is not a delimiter or the
// block is never closed.
func splitHeader(data []byte) (header []byte, body string, ok bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 || strings.TrimSpace(string(data[:i])) != Delimiter {
		return nil, "", false
	}
	rest := data[i+1:]
	offset := 0
	for {
		chunk := rest[offset:]
		j := bytes.IndexByte(chunk, '\n')
		line, next := chunk, len(rest)
		if j >= 0 {
			line, next = chunk[:j], offset+j+1
		}
		if strings.TrimSpace(string(line)) == Delimiter {
			return rest[:offset], string(rest[next:]), true
		}
		if j < 0 {
			return nil, "", false
		}
		offset = next
	}
}
