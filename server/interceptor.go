package server

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/polterguy/magic.endpoint-sub000/pkg/files"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

// interceptorFile is the per-folder interceptor script name.
const interceptorFile = "interceptor.hl"

// markerName marks the splice points inside an interceptor where the wrapped
// endpoint body is inserted.
const markerName = ".interceptor"

// Composer splices ancestor interceptor scripts around endpoint scripts.
// Walking from the endpoint's own folder towards the files root, each level's
// interceptor wraps the result of the previous one, so the nearest ancestor
// ends up innermost and the root-most ancestor outermost.
type Composer struct {
	root string
	fs   files.Provider
}

// NewComposer creates a composer rooted at the files directory.
func NewComposer(root string, fs files.Provider) *Composer {
	return &Composer{root: root, fs: fs}
}

// Apply returns the composed script for an endpoint. With no interceptor
// anywhere on the ancestor chain the endpoint script is returned unchanged.
func (c *Composer) Apply(script *lambda.Node, endpointPath string) (*lambda.Node, error) {
	root := filepath.Clean(c.root)
	dir := filepath.Dir(filepath.Clean(endpointPath))
	for strings.HasPrefix(dir, root) {
		path := filepath.Join(dir, interceptorFile)
		if c.fs.Exists(path) {
			src, err := c.fs.Read(path)
			if err != nil {
				return nil, fmt.Errorf("reading interceptor %s: %w", path, err)
			}
			interceptor, err := lambda.Parse(src)
			if err != nil {
				return nil, fmt.Errorf("parsing interceptor %s: %w", path, err)
			}
			script = compose(script, interceptor)
		}
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return script, nil
}

// compose weaves one interceptor around the endpoint script and returns the
// interceptor as the new script. Contract-relevant nodes are lifted from the
// endpoint root to the front of the interceptor in source order, then a copy
// of the remaining endpoint body is spliced in before every marker node and
// the markers removed.
func compose(endpoint, interceptor *lambda.Node) *lambda.Node {
	// Lift in source order; prepending in reverse keeps that order.
	var lifted []*lambda.Node
	for _, n := range endpoint.Children() {
		if contractRelevant(n.Name) {
			lifted = append(lifted, n)
		}
	}
	for i := len(lifted) - 1; i >= 0; i-- {
		interceptor.Prepend(lifted[i])
	}

	body := endpoint.Children()
	for _, marker := range findMarkers(interceptor) {
		// Each marker gets its own deep copy of the body.
		for _, n := range body {
			marker.InsertBefore(n.Clone())
		}
		marker.Detach()
	}
	return interceptor
}

// contractRelevant reports whether a root node carries endpoint contract
// meta-data that must surface on the composed script's root: the declaration
// block, the description, the auth predicate, and validators.
func contractRelevant(name string) bool {
	switch name {
	case declarationName, descriptionName, authPredicateName:
		return true
	}
	return strings.HasPrefix(name, "validators.")
}

// findMarkers returns every marker node in the tree, depth first.
func findMarkers(n *lambda.Node) []*lambda.Node {
	var out []*lambda.Node
	for _, c := range n.Children() {
		out = append(out, findMarkers(c)...)
		if c.Name == markerName {
			out = append(out, c)
		}
	}
	return out
}
