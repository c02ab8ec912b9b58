package server

import (
	"sort"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

// Well-known root node names making up an endpoint's contract.
const (
	declarationName   = ".arguments"
	descriptionName   = ".description"
	authPredicateName = "auth.ticket.verify"
)

// Binder merges caller-supplied query and payload parameters into a script's
// execution-argument block, validating them against the declaration block.
//
// The contract is all-or-nothing: without a declaration block every parameter
// passes through unconverted, but once a block exists (even an empty one)
// undeclared parameters are rejected. Binding runs exactly once per dispatch;
// the dispatcher constructs the script fresh for each call, so there is no
// re-binding path.
type Binder struct{}

// Bind detaches the script's declaration block, validates and converts the
// query and payload parameters against it, and prepends a fresh .arguments
// node holding the accepted values (query first, then payload). The node is
// omitted entirely when no arguments were accepted.
func (Binder) Bind(script *lambda.Node, query map[string]string, payload *lambda.Node) error {
	decl, err := detachDeclaration(script)
	if err != nil {
		return err
	}

	args := lambda.New(declarationName)

	// Sorted for a deterministic argument order; Go maps iterate randomly.
	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, err := bindQueryValue(decl, name, query[name])
		if err != nil {
			return err
		}
		args.Append(lambda.NewWith(name, value))
	}

	if payload != nil {
		if decl == nil {
			for _, n := range payload.Children() {
				args.Append(n)
			}
		} else {
			for _, n := range payload.Children() {
				if err := validateNode(decl, n); err != nil {
					return err
				}
				args.Append(n)
			}
		}
	}

	if args.FirstChild() != nil {
		script.Prepend(args)
	}
	return nil
}

// detachDeclaration removes the declaration block from the script root and
// returns it. No block means "accept everything unchecked" and returns nil.
// A second block is an authoring defect.
func detachDeclaration(script *lambda.Node) (*lambda.Node, error) {
	var decl *lambda.Node
	for _, n := range script.Children() {
		if n.Name != declarationName {
			continue
		}
		if decl != nil {
			return nil, dispatchErrorf(KindMultipleDeclarations, "script declares %s more than once", declarationName)
		}
		decl = n
	}
	if decl != nil {
		decl.Detach()
	}
	return decl, nil
}

// bindQueryValue converts one query parameter per its declared type. Without
// a declaration the raw string passes through.
func bindQueryValue(decl *lambda.Node, name, raw string) (any, error) {
	if decl == nil {
		return raw, nil
	}
	d := decl.Child(name)
	if d == nil {
		return nil, dispatchErrorf(KindUnknownArgument, "unknown argument %q", name)
	}
	value, err := lambda.Convert(raw, lambda.ToString(d.Value))
	if err != nil {
		return nil, &DispatchError{Kind: KindArgumentConversion, Message: "argument " + name, Err: err}
	}
	return value, nil
}

// validateNode validates one payload field against the declaration children
// of decl, recursing in lock-step over both trees. A declared wildcard
// accepts the whole subtree unchecked.
func validateNode(decl, n *lambda.Node) error {
	d := decl.Child(n.Name)
	if d == nil {
		return dispatchErrorf(KindUnknownArgument, "unknown argument %q", n.Name)
	}
	return validateAgainst(d, n)
}

// validateAgainst validates a payload node against its own declaration node.
func validateAgainst(d, n *lambda.Node) error {
	if lambda.ToString(d.Value) == lambda.Wildcard {
		return nil
	}
	if d.FirstChild() == nil {
		// Scalar declaration: coerce the value in place.
		value, err := lambda.Convert(n.Value, lambda.ToString(d.Value))
		if err != nil {
			return &DispatchError{Kind: KindArgumentConversion, Message: "argument " + n.Name, Err: err}
		}
		n.Value = value
		return nil
	}
	// Structured declaration. Unnamed children are array elements, each
	// validated against the same declaration subtree.
	for _, c := range n.Children() {
		if c.Name == "" {
			if err := validateAgainst(d, c); err != nil {
				return err
			}
			continue
		}
		if err := validateNode(d, c); err != nil {
			return err
		}
	}
	return nil
}
