package lambda

import (
	"fmt"
	"strings"
)

// ContentType is the wire content type of the native script syntax.
const ContentType = "application/x-hyperlambda"

// Parse parses script source into a tree. The returned node is an unnamed
// container whose children are the script's root-level nodes.
//
// Syntax: one node per line, children indented three spaces per level.
// A line is `name`, `name:value` or `name:type:value`; names and values that
// contain a colon or leading whitespace are double-quoted with backslash
// escapes. Blank lines and lines whose first non-space characters are `//`
// are ignored.
func Parse(src []byte) (*Node, error) {
	root := New("")
	// Stack of open nodes, one per indentation level; stack[0] is the root.
	stack := []*Node{root}

	lines := strings.Split(string(src), "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		indent := len(line) - len(trimmed)
		if indent%3 != 0 {
			return nil, fmt.Errorf("line %d: indentation is not a multiple of three spaces", i+1)
		}
		level := indent / 3
		if level >= len(stack) {
			return nil, fmt.Errorf("line %d: child has no parent node", i+1)
		}

		node, err := parseLine(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		stack[level].Append(node)
		stack = append(stack[:level+1], node)
	}
	return root, nil
}

// parseLine parses one already de-indented line into a node.
func parseLine(s string) (*Node, error) {
	name, rest, hadSep, err := readToken(s)
	if err != nil {
		return nil, err
	}
	node := New(name)
	if !hadSep {
		// Bare name, null value.
		return node, nil
	}

	// The part after the first colon is either `value` or `type:value`.
	tag := ""
	if idx := strings.Index(rest, ":"); idx >= 0 && !strings.HasPrefix(rest, `"`) {
		if candidate := rest[:idx]; KnownType(candidate) {
			tag = candidate
			rest = rest[idx+1:]
		}
	}

	text := rest
	if strings.HasPrefix(rest, `"`) {
		text, rest, err = readQuoted(rest)
		if err != nil {
			return nil, err
		}
		if rest != "" {
			return nil, fmt.Errorf("unexpected %q after quoted value", rest)
		}
	}

	if tag == "" {
		node.Value = text
		return node, nil
	}
	value, err := Convert(text, tag)
	if err != nil {
		return nil, err
	}
	node.Value = value
	return node, nil
}

// readToken reads a node name: either a quoted string or everything up to the
// first colon. It returns the name, the remainder after the separating colon,
// and whether a separator was present.
func readToken(s string) (string, string, bool, error) {
	if strings.HasPrefix(s, `"`) {
		name, rest, err := readQuoted(s)
		if err != nil {
			return "", "", false, err
		}
		if rest == "" {
			return name, "", false, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", "", false, fmt.Errorf("unexpected %q after quoted name", rest)
		}
		return name, rest[1:], true, nil
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		return s[:idx], s[idx+1:], true, nil
	}
	return s, "", false, nil
}

// readQuoted reads a double-quoted string starting at s[0] and returns the
// unescaped content plus the remainder after the closing quote.
func readQuoted(s string) (string, string, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			i++
			if i >= len(s) {
				return "", "", fmt.Errorf("dangling escape in %q", s)
			}
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '"', '\\':
				b.WriteByte(s[i])
			default:
				return "", "", fmt.Errorf("unknown escape \\%c", s[i])
			}
		case '"':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated string in %q", s)
}
