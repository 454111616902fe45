package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Node is one element of the legacy solc JSON syntax tree.
// Example: {"name": "Identifier", "id": 12, "src": "104:3:0", "attributes": {"value": "owner"}}
type Node struct {
	Name       string         `json:"name"`
	ID         int            `json:"id"`
	Src        string         `json:"src"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Children   []*Node        `json:"children,omitempty"`
}

// Is reports whether the node has the given kind.
func (n *Node) Is(kind string) bool {
	return n != nil && n.Name == kind
}

// Attr returns the raw attribute value.
func (n *Node) Attr(key string) (any, bool) {
	if n == nil || n.Attributes == nil {
		return nil, false
	}
	v, ok := n.Attributes[key]
	return v, ok
}

// HasAttr reports whether the attribute is present and not null.
func (n *Node) HasAttr(key string) bool {
	v, ok := n.Attr(key)
	return ok && v != nil
}

// StringAttr returns a string attribute, or "" when absent or not a string.
func (n *Node) StringAttr(key string) string {
	v, _ := n.Attr(key)
	s, _ := v.(string)
	return s
}

// BoolAttr returns a boolean attribute, or false when absent.
func (n *Node) BoolAttr(key string) bool {
	v, _ := n.Attr(key)
	b, _ := v.(bool)
	return b
}

// IntAttr returns an integer attribute. Numbers decoded from JSON arrive as float64.
func (n *Node) IntAttr(key string) (int, bool) {
	v, ok := n.Attr(key)
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// IntListAttr returns a list-of-integers attribute such as linearizedBaseContracts.
func (n *Node) IntListAttr(key string) ([]int, error) {
	v, ok := n.Attr(key)
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("attribute %q of %s is not a list", key, n.Name)
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		i, ok := toInt(item)
		if !ok {
			return nil, fmt.Errorf("attribute %q of %s contains non-integer %v", key, n.Name, item)
		}
		out = append(out, i)
	}
	return out, nil
}

// StringListAttr returns a list-of-strings attribute such as a pragma's literals.
// Null entries are kept as empty strings.
func (n *Node) StringListAttr(key string) []string {
	v, _ := n.Attr(key)
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

// NodeListAttr decodes an attribute holding nested nodes, such as the
// components of a TupleExpression when the compiler omits children.
// Null entries stay nil so that tuple holes are preserved.
func (n *Node) NodeListAttr(key string) ([]*Node, error) {
	v, ok := n.Attr(key)
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("attribute %q of %s is not a list", key, n.Name)
	}
	out := make([]*Node, len(raw))
	for i, item := range raw {
		if item == nil {
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var child Node
		if err := json.Unmarshal(data, &child); err != nil {
			return nil, err
		}
		out[i] = &child
	}
	return out, nil
}

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// ChildrenOf returns the direct children with the given kind.
func (n *Node) ChildrenOf(kind string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Is(kind) {
			out = append(out, c)
		}
	}
	return out
}

// Source parses the node's src attribute. Malformed offsets yield the zero Source.
func (n *Node) Source() Source {
	if n == nil {
		return Source{}
	}
	s, err := ParseSource(n.Src)
	if err != nil {
		return Source{}
	}
	return s
}

// Walk visits n and its descendants depth-first. Returning false from fn skips the children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Name + "#" + strconv.Itoa(n.ID) + "@" + n.Src
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case int:
		return x, true
	case json.Number:
		i, err := x.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(x)
		return i, err == nil
	}
	return 0, false
}
