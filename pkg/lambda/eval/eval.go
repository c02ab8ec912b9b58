// Package eval drives execution of parsed script trees. Execution walks a
// node's children in order and invokes the slot registered under each node's
// name. Nodes whose names start with "." are declarations, not invocations,
// and are skipped.
//
// Ambient objects (the request, the response, the result accumulator) are
// published to nested invocations through a named scope stack rather than
// globals, so concurrent dispatches never observe each other's state.
package eval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

// Slot is one executable operation. It receives the evaluator so it can
// evaluate its own children, the dispatch scope, and the invoking node.
type Slot func(ctx context.Context, ev *Evaluator, sc *Scope, n *lambda.Node) error

// Registry maps slot names to implementations. Registration normally happens
// at startup; the lock makes late registration from tooling safe too.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]Slot
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]Slot)}
}

// Register binds name to fn, replacing any previous binding.
func (r *Registry) Register(name string, fn Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[name] = fn
}

// Lookup returns the slot registered under name.
func (r *Registry) Lookup(name string) (Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.slots[name]
	return fn, ok
}

// Evaluator executes script trees against a registry.
type Evaluator struct {
	reg *Registry
}

// New creates an evaluator over the given registry.
func New(reg *Registry) *Evaluator {
	return &Evaluator{reg: reg}
}

// Run evaluates the children of root in order. Declaration nodes (leading
// dot) are skipped. An unregistered name or a failing slot stops evaluation
// and returns the error; the caller owns cleanup.
func (e *Evaluator) Run(ctx context.Context, sc *Scope, root *lambda.Node) error {
	for _, n := range root.Children() {
		if strings.HasPrefix(n.Name, ".") || n.Name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		slot, ok := e.reg.Lookup(n.Name)
		if !ok {
			return fmt.Errorf("no slot named %q", n.Name)
		}
		if err := slot(ctx, e, sc, n); err != nil {
			return err
		}
	}
	return nil
}

// Scope is a stack of named ambient objects for one dispatch. It is used by
// a single goroutine; pushes are paired with deferred pops so the stack
// unwinds on error as well.
type Scope struct {
	entries []scopeEntry
}

type scopeEntry struct {
	name  string
	value any
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Push publishes value under name for nested invocations.
func (s *Scope) Push(name string, value any) {
	s.entries = append(s.entries, scopeEntry{name: name, value: value})
}

// Pop removes the most recent entry. Popping an empty scope panics, which
// indicates an unbalanced push/pop pairing in a slot.
func (s *Scope) Pop() {
	if len(s.entries) == 0 {
		panic("eval: pop on empty scope")
	}
	s.entries = s.entries[:len(s.entries)-1]
}

// Named returns the innermost object published under name.
func (s *Scope) Named(name string) (any, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].name == name {
			return s.entries[i].value, true
		}
	}
	return nil, false
}
