package server

import (
	"path"
	"strings"

	"github.com/polterguy/magic.endpoint-sub000/pkg/files"
)

// Verbs supported for endpoint files.
var verbs = map[string]bool{
	"get":    true,
	"put":    true,
	"post":   true,
	"delete": true,
	"patch":  true,
}

// Top-level folders API URLs may address. Anything else is rejected before
// storage is touched.
var permittedRoots = map[string]bool{
	"modules": true,
	"system":  true,
}

// Resolver maps (url, verb) pairs to endpoint files on disk.
type Resolver struct {
	root string
	fs   files.Provider
}

// NewResolver creates a resolver rooted at the files directory.
func NewResolver(root string, fs files.Provider) *Resolver {
	return &Resolver{root: root, fs: fs}
}

// Resolve validates url and returns the endpoint file path for it. The URL is
// checked segment by segment before any storage access: an illegal character
// is KindInvalidURL, a top-level segment outside the permitted roots is
// KindUnauthorized, and only then is the candidate file's existence checked,
// a miss being KindNotFound.
func (r *Resolver) Resolve(url, verb string) (string, error) {
	if !verbs[verb] {
		return "", dispatchErrorf(KindNotFound, "unsupported verb %q", verb)
	}
	segments := strings.Split(strings.Trim(url, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", dispatchErrorf(KindInvalidURL, "empty URL")
	}
	for _, seg := range segments {
		if !legalSegment(seg) {
			return "", dispatchErrorf(KindInvalidURL, "illegal character in URL segment %q", seg)
		}
	}
	if !permittedRoots[segments[0]] {
		return "", dispatchErrorf(KindUnauthorized, "URL %q is outside the permitted roots", url)
	}
	candidate := path.Join(r.root, path.Join(segments...)) + "." + verb + ".hl"
	if !r.fs.Exists(candidate) {
		return "", dispatchErrorf(KindNotFound, "no endpoint for %s %s", verb, url)
	}
	return candidate, nil
}

// legalSegment allows letters, digits, '-' and '_', plus at most one leading
// dot for hidden segments. A dot anywhere else is illegal.
func legalSegment(seg string) bool {
	if seg == "" {
		return false
	}
	if seg[0] == '.' {
		seg = seg[1:]
		if seg == "" {
			return false
		}
	}
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
