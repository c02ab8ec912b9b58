// Package lambda implements the node tree that Hyperlambda-style scripts parse
// into: an ordered tree where every node has a name, an optional typed value,
// and ordered children. Duplicate names are legal. The tree supports O(1)
// detach and insert-before, which the interceptor composer relies on when it
// splices endpoint bodies into ancestor scripts.
package lambda

// Node is one node in a script tree. The zero value is a detached, nameless
// node with no value and no children.
type Node struct {
	Name  string
	Value any

	parent     *Node
	prev, next *Node
	first, last *Node
}

// New creates a detached node with the given name and no value.
func New(name string) *Node {
	return &Node{Name: name}
}

// NewWith creates a detached node with a name and a value.
func NewWith(name string, value any) *Node {
	return &Node{Name: name, Value: value}
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Next returns the next sibling, or nil.
func (n *Node) Next() *Node { return n.next }

// Prev returns the previous sibling, or nil.
func (n *Node) Prev() *Node { return n.prev }

// FirstChild returns the first child, or nil.
func (n *Node) FirstChild() *Node { return n.first }

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node { return n.last }

// Root walks parents until it finds the tree root.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Children returns a snapshot slice of the node's children. Mutating the tree
// while iterating the snapshot is safe; the slice does not track later edits.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.first; c != nil; c = c.next {
		out = append(out, c)
	}
	return out
}

// CountChildren returns the number of direct children.
func (n *Node) CountChildren() int {
	count := 0
	for c := n.first; c != nil; c = c.next {
		count++
	}
	return count
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for c := n.first; c != nil; c = c.next {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Append adds child as the last child of n. The child is detached from any
// previous parent first.
func (n *Node) Append(child *Node) {
	child.Detach()
	child.parent = n
	if n.last == nil {
		n.first, n.last = child, child
		return
	}
	child.prev = n.last
	n.last.next = child
	n.last = child
}

// Prepend adds child as the first child of n.
func (n *Node) Prepend(child *Node) {
	child.Detach()
	child.parent = n
	if n.first == nil {
		n.first, n.last = child, child
		return
	}
	child.next = n.first
	n.first.prev = child
	n.first = child
}

// InsertBefore inserts node immediately before n among n's siblings.
// It panics if n is a detached root, since there is no sibling list.
func (n *Node) InsertBefore(node *Node) {
	if n.parent == nil {
		panic("lambda: InsertBefore on detached node")
	}
	node.Detach()
	node.parent = n.parent
	node.prev = n.prev
	node.next = n
	if n.prev != nil {
		n.prev.next = node
	} else {
		n.parent.first = node
	}
	n.prev = node
}

// InsertAfter inserts node immediately after n among n's siblings.
func (n *Node) InsertAfter(node *Node) {
	if n.parent == nil {
		panic("lambda: InsertAfter on detached node")
	}
	node.Detach()
	node.parent = n.parent
	node.next = n.next
	node.prev = n
	if n.next != nil {
		n.next.prev = node
	} else {
		n.parent.last = node
	}
	n.next = node
}

// Detach removes n from its parent, leaving it a standalone root. Detaching an
// already detached node is a no-op.
func (n *Node) Detach() {
	if n.parent == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		n.parent.first = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		n.parent.last = n.prev
	}
	n.parent, n.prev, n.next = nil, nil, nil
}

// Clear removes all children from n.
func (n *Node) Clear() {
	for c := n.first; c != nil; {
		next := c.next
		c.parent, c.prev, c.next = nil, nil, nil
		c = next
	}
	n.first, n.last = nil, nil
}

// Clone returns a deep copy of n and its subtree. The copy is detached.
// Values are copied by assignment; scripts treat values as immutable, so
// sharing a value between clones is fine.
func (n *Node) Clone() *Node {
	out := &Node{Name: n.Name, Value: n.Value}
	for c := n.first; c != nil; c = c.next {
		out.Append(c.Clone())
	}
	return out
}
