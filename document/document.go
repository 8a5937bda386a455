package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/layout"
)

// DefaultMaxDepth bounds document nesting unless WithMaxDepth overrides it.
const DefaultMaxDepth = 256

// Prop is one declared property. Value is the raw string for JSON strings
// and compact JSON text for everything else.
type Prop struct {
	Key   string
	Value string
}

// Node is one decoded document node.
type Node struct {
	Kind     string
	Props    []Prop
	Style    layout.Style
	Children []*Node
	Path     []string
}

// Walk visits n and its descendants parent first, children in document
// order, stopping at the first error fn returns.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 1
	for _, c := range n.Children {
		count += c.Count()
	}
	return count
}

// PathString joins the node path with dots.
func (n *Node) PathString() string {
	return strings.Join(n.Path, ".")
}

type config struct {
	kinds    map[string]struct{}
	maxDepth int
}

// Option configures Parse.
type Option func(*config)

// WithKinds restricts node kinds to the given set.
func WithKinds(kinds ...string) Option {
	return func(c *config) {
		if len(kinds) == 0 {
			return
		}
		if c.kinds == nil {
			c.kinds = make(map[string]struct{}, len(kinds))
		}
		for _, k := range kinds {
			c.kinds[k] = struct{}{}
		}
	}
}

// WithMaxDepth sets the nesting limit. Values below one keep the default.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// Parse decodes a view document. The payload is either a node or an object
// whose only node is under "root". A top-level "error" string makes the
// document a failure report: Parse returns a KindDocumentError carrying it.
func Parse(data []byte, opts ...Option) (*Node, error) {
	cfg := config{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	path := []string{"root"}
	fields, err := decodeObject(path, data)
	if err != nil {
		return nil, err
	}
	if raw, ok := fields["error"]; ok && !isNull(raw) {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errors.InvalidValue([]string{"error"}, "error", string(raw))
		}
		return nil, errors.DocumentError(msg)
	}
	if inner, ok := fields["root"]; ok && !hasKind(fields) {
		if fields, err = decodeObject(path, inner); err != nil {
			return nil, err
		}
	}

	p := parser{cfg: cfg}
	return p.node(path, fields, 1)
}

func hasKind(fields map[string]json.RawMessage) bool {
	_, t := fields["type"]
	_, k := fields["kind"]
	return t || k
}

type parser struct {
	cfg config
}

func (p *parser) node(path []string, fields map[string]json.RawMessage, depth int) (*Node, error) {
	if depth > p.cfg.maxDepth {
		return nil, errors.TooDeep(path, p.cfg.maxDepth)
	}

	kind, err := p.kind(path, fields)
	if err != nil {
		return nil, err
	}

	n := &Node{Kind: kind, Path: path, Style: layout.DefaultStyle()}

	if raw, ok := fields["props"]; ok && !isNull(raw) {
		if n.Props, err = decodeProps(path, raw); err != nil {
			return nil, err
		}
	}

	if raw, ok := fields["layout"]; ok && !isNull(raw) {
		var style map[string]any
		if err := json.Unmarshal(raw, &style); err != nil {
			return nil, errors.InvalidValue(path, "layout", string(raw))
		}
		if n.Style, err = layout.ParseStyle(path, style); err != nil {
			return nil, err
		}
	}

	if raw, ok := fields["children"]; ok && !isNull(raw) {
		var children []json.RawMessage
		if err := json.Unmarshal(raw, &children); err != nil {
			return nil, errors.InvalidValue(path, "children", string(raw))
		}
		n.Children = make([]*Node, 0, len(children))
		for i, c := range children {
			childPath := append(append([]string(nil), path...), fmt.Sprintf("children[%d]", i))
			childFields, err := decodeObject(childPath, c)
			if err != nil {
				return nil, err
			}
			child, err := p.node(childPath, childFields, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}

	return n, nil
}

func (p *parser) kind(path []string, fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields["type"]
	field := "type"
	if !ok {
		raw, ok = fields["kind"]
		field = "kind"
	}
	if !ok || isNull(raw) {
		return "", errors.FieldMissing(path, "type")
	}

	var kind string
	if err := json.Unmarshal(raw, &kind); err != nil || kind == "" {
		return "", errors.InvalidValue(path, field, string(raw))
	}
	if p.cfg.kinds != nil {
		if _, ok := p.cfg.kinds[kind]; !ok {
			return "", errors.UnknownKind(path, kind)
		}
	}
	return kind, nil
}

func decodeObject(path []string, data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Malformed(path, err)
	}
	if fields == nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindMalformed).
			Path(path...).
			Detail("node must be an object").
			Build()
	}
	return fields, nil
}

// decodeProps walks the object token by token so declaration order and
// duplicate keys survive.
func decodeProps(path []string, raw json.RawMessage) ([]Prop, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Malformed(path, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.InvalidValue(path, "props", string(raw))
	}

	var props []Prop
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Malformed(path, err)
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.Malformed(path, err)
		}
		text, err := propValue(value)
		if err != nil {
			return nil, errors.Malformed(path, err)
		}
		props = append(props, Prop{Key: key, Value: text})
	}
	return props, nil
}

func propValue(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
