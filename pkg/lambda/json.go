package lambda

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FromJSON converts a JSON document into a tree. Objects become named
// children, array elements become unnamed children, scalars become values
// (integral numbers as int64, other numbers as float64).
func FromJSON(data []byte) (*Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed JSON payload")
	}
	root := New("")
	appendResult(root, "", gjson.ParseBytes(data))
	// The synthetic wrapper for a top-level object/array is unwrapped so the
	// payload's fields sit directly under the returned root.
	if only := root.FirstChild(); only != nil && only.Next() == nil && only.Name == "" && only.Value == nil {
		only.Detach()
		return only, nil
	}
	return root, nil
}

func appendResult(parent *Node, name string, r gjson.Result) {
	n := New(name)
	parent.Append(n)
	switch {
	case r.IsObject():
		r.ForEach(func(key, value gjson.Result) bool {
			appendResult(n, key.String(), value)
			return true
		})
	case r.IsArray():
		r.ForEach(func(_, value gjson.Result) bool {
			appendResult(n, "", value)
			return true
		})
	case r.Type == gjson.String:
		n.Value = r.Str
	case r.Type == gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			n.Value = r.Int()
		} else {
			n.Value = r.Num
		}
	case r.Type == gjson.True:
		n.Value = true
	case r.Type == gjson.False:
		n.Value = false
	}
}

// ToJSON renders a node's children as a JSON document, preserving child
// order. Unnamed children produce an array, named children an object.
func ToJSON(root *Node) (string, error) {
	if root.FirstChild() == nil {
		return "{}", nil
	}
	if isArray(root) {
		out := "[]"
		for c := root.FirstChild(); c != nil; c = c.Next() {
			raw, err := nodeJSON(c)
			if err != nil {
				return "", err
			}
			out, err = sjson.SetRaw(out, "-1", raw)
			if err != nil {
				return "", err
			}
		}
		return out, nil
	}
	out := "{}"
	for c := root.FirstChild(); c != nil; c = c.Next() {
		raw, err := nodeJSON(c)
		if err != nil {
			return "", err
		}
		var err2 error
		out, err2 = sjson.SetRaw(out, escapePath(c.Name), raw)
		if err2 != nil {
			return "", err2
		}
	}
	return out, nil
}

// nodeJSON renders one node as a JSON value: children win over the scalar.
func nodeJSON(n *Node) (string, error) {
	if n.FirstChild() != nil {
		return ToJSON(n)
	}
	return scalarJSON(n.Value)
}

func scalarJSON(v any) (string, error) {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		data, err := json.Marshal(v)
		return string(data), err
	}
	// Dates, guids and anything else render through their textual form.
	data, err := json.Marshal(ToString(v))
	return string(data), err
}

func isArray(n *Node) bool {
	for c := n.FirstChild(); c != nil; c = c.Next() {
		if c.Name != "" {
			return false
		}
	}
	return true
}

// escapePath escapes characters that are operators in sjson path syntax.
func escapePath(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
