package server

import "testing"

func newTestResolver(files map[string]string) (*Resolver, *memProvider) {
	fs := newMemProvider(files)
	return NewResolver("/files", fs), fs
}

func TestResolveFindsEndpoint(t *testing.T) {
	r, _ := newTestResolver(map[string]string{
		"/files/modules/foo.get.hl": "return:ok\n",
	})
	path, err := r.Resolve("/modules/foo", "get")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if path != "/files/modules/foo.get.hl" {
		t.Errorf("path = %s", path)
	}
}

func TestResolveNotFound(t *testing.T) {
	r, _ := newTestResolver(nil)
	_, err := r.Resolve("/modules/missing", "get")
	de, ok := AsDispatchError(err)
	if !ok || de.Kind != KindNotFound {
		t.Fatalf("Resolve() = %v, want KindNotFound", err)
	}
}

func TestResolveInvalidURLBeforeStorage(t *testing.T) {
	cases := []string{
		"/modules/foo bar",
		"/modules/foo$",
		"/modules/fo.o",   // non-leading dot
		"/modules/..",     // traversal
		"/modules/x/..y.", // dot not strictly leading
	}
	for _, url := range cases {
		t.Run(url, func(t *testing.T) {
			r, fs := newTestResolver(nil)
			_, err := r.Resolve(url, "get")
			de, ok := AsDispatchError(err)
			if !ok || de.Kind != KindInvalidURL {
				t.Fatalf("Resolve(%q) = %v, want KindInvalidURL", url, err)
			}
			if fs.existsCalls != 0 || fs.readCalls != 0 {
				t.Errorf("storage accessed before URL validation")
			}
		})
	}
}

func TestResolveHiddenSegment(t *testing.T) {
	r, _ := newTestResolver(map[string]string{
		"/files/modules/.hidden/secret.get.hl": "return:ok\n",
	})
	if _, err := r.Resolve("/modules/.hidden/secret", "get"); err != nil {
		t.Fatalf("leading dot should be legal: %v", err)
	}
}

func TestResolveUnauthorizedRootWithoutStorage(t *testing.T) {
	r, fs := newTestResolver(map[string]string{
		"/files/private/foo.get.hl": "return:ok\n",
	})
	_, err := r.Resolve("/private/foo", "get")
	de, ok := AsDispatchError(err)
	if !ok || de.Kind != KindUnauthorized {
		t.Fatalf("Resolve() = %v, want KindUnauthorized", err)
	}
	if fs.existsCalls != 0 {
		t.Errorf("existence checked for unauthorized root")
	}
}

func TestResolveUnsupportedVerb(t *testing.T) {
	r, _ := newTestResolver(map[string]string{
		"/files/modules/foo.get.hl": "return:ok\n",
	})
	if _, err := r.Resolve("/modules/foo", "options"); err == nil {
		t.Fatalf("expected error for unsupported verb")
	}
}

func TestLegalSegment(t *testing.T) {
	cases := map[string]bool{
		"foo":      true,
		"foo-bar":  true,
		"foo_bar2": true,
		".hidden":  true,
		"":         false,
		".":        false,
		"..":       false,
		"a.b":      false,
		".a.b":     false,
		"a b":      false,
		"a/b":      false,
	}
	for seg, want := range cases {
		if got := legalSegment(seg); got != want {
			t.Errorf("legalSegment(%q) = %v, want %v", seg, got, want)
		}
	}
}
