package lambda

import "strings"

// Render converts a tree back to script syntax. The receiver itself is not
// rendered; its children become the root-level nodes, mirroring Parse.
func Render(root *Node) string {
	var b strings.Builder
	for c := root.FirstChild(); c != nil; c = c.Next() {
		renderNode(&b, c, 0)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n *Node, level int) {
	b.WriteString(strings.Repeat("   ", level))
	b.WriteString(quoteIfNeeded(n.Name))
	if n.Value != nil {
		b.WriteByte(':')
		if tag := TypeOf(n.Value); tag != "" {
			b.WriteString(tag)
			b.WriteByte(':')
		}
		b.WriteString(quoteIfNeeded(ToString(n.Value)))
	}
	b.WriteByte('\n')
	for c := n.FirstChild(); c != nil; c = c.Next() {
		renderNode(b, c, level+1)
	}
}

// quoteIfNeeded wraps s in double quotes when it would not survive a reparse
// as a bare token.
func quoteIfNeeded(s string) string {
	if !needsQuoting(s) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func needsQuoting(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == ' ' || s[0] == '"' || s[len(s)-1] == ' ' {
		return true
	}
	return strings.ContainsAny(s, ":\n\r\t")
}
