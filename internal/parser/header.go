package parser

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// IDKey is the header key holding a note's identifier.
const IDKey = "id"

var errNotMapping = errors.New("parser: header is not a mapping")

// Header is a note's key/value header block. It keeps the decoded YAML node
// tree so that keys it does not touch render back unchanged.
type Header struct {
	node *yaml.Node
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

func parseHeader(raw []byte) (*Header, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parser: header yaml: %w", err)
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return NewHeader(), nil
	}
	if doc.Kind != yaml.DocumentNode || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errNotMapping
	}
	return &Header{node: doc.Content[0]}, nil
}

// Keys returns the header keys in file order.
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.node.Content)/2)
	for i := 0; i+1 < len(h.node.Content); i += 2 {
		keys = append(keys, h.node.Content[i].Value)
	}
	return keys
}

// Has reports whether key is present.
func (h *Header) Has(key string) bool {
	return h.valueNode(key) != nil
}

// Get returns the value stored under key.
func (h *Header) Get(key string) (Value, bool) {
	n := h.valueNode(key)
	if n == nil {
		return Value{}, false
	}
	return fromNode(n), true
}

// Set stores v under key, appending the key when it is new. Repeated
// occurrences of key after the first are dropped.
func (h *Header) Set(key string, v Value) {
	found := false
	content := h.node.Content[:0]
	for i := 0; i+1 < len(h.node.Content); i += 2 {
		k, val := h.node.Content[i], h.node.Content[i+1]
		if k.Value == key {
			if found {
				continue
			}
			found = true
			val = toNode(v)
		}
		content = append(content, k, val)
	}
	h.node.Content = content
	if found {
		return
	}
	h.node.Content = append(h.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		toNode(v),
	)
}

// ID returns the raw identifier text and whether the id key is present.
// A non-scalar or null id yields an empty string.
func (h *Header) ID() (string, bool) {
	n := h.valueNode(IDKey)
	if n == nil {
		return "", false
	}
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", true
	}
	return n.Value, true
}

// Occurrences counts how many times key appears in the header.
func (h *Header) Occurrences(key string) int {
	n := 0
	for i := 0; i+1 < len(h.node.Content); i += 2 {
		if h.node.Content[i].Value == key {
			n++
		}
	}
	return n
}

// SetID replaces only the identifier value.
func (h *Header) SetID(id string) {
	h.Set(IDKey, String(id))
}

// Marshal renders the header lines without delimiters.
func (h *Header) Marshal() ([]byte, error) {
	if len(h.node.Content) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h.node); err != nil {
		return nil, fmt.Errorf("parser: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode header: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *Header) valueNode(key string) *yaml.Node {
	for i := 0; i+1 < len(h.node.Content); i += 2 {
		if h.node.Content[i].Value == key {
			return h.node.Content[i+1]
		}
	}
	return nil
}

// Kind enumerates the header value variants.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindNumber
	KindMap
	KindList
)

// Value is a closed variant over the header value shapes.
type Value struct {
	kind   Kind
	str    string
	flag   bool
	num    float64
	fields map[string]Value
	items  []Value
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Map(fields map[string]Value) Value { return Value{kind: KindMap, fields: fields} }
func List(items []Value) Value { return Value{kind: KindList, items: items} }
func Null() Value { return Value{} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsMap() (map[string]Value, bool) { return v.fields, v.kind == KindMap }
func (v Value) AsList() ([]Value, bool) { return v.items, v.kind == KindList }

// Any converts the value to plain Go values for JSON output.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.flag
	case KindNumber:
		return v.num
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Any()
		}
		return out
	case KindList:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Any()
		}
		return out
	default:
		return nil
	}
}

func fromNode(n *yaml.Node) Value {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias != nil {
			return fromNode(n.Alias)
		}
		return Null()
	case yaml.MappingNode:
		fields := make(map[string]Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			fields[n.Content[i].Value] = fromNode(n.Content[i+1])
		}
		return Map(fields)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			items = append(items, fromNode(c))
		}
		return List(items)
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return Null()
		case "!!bool":
			if b, err := strconv.ParseBool(n.Value); err == nil {
				return Bool(b)
			}
		case "!!int", "!!float":
			if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
				return Number(f)
			}
		}
		return String(n.Value)
	default:
		return Null()
	}
}

func toNode(v Value) *yaml.Node {
	switch v.kind {
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.flag)}
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(v.num), 10)}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.num, 'g', -1, 64)}
	case KindMap:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toNode(v.fields[k]),
			)
		}
		return n
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			n.Content = append(n.Content, toNode(item))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
