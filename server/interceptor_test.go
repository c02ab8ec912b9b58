package server

import (
	"testing"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

func composeFor(t *testing.T, files map[string]string, endpointPath string) *lambda.Node {
	t.Helper()
	fs := newMemProvider(files)
	script, err := lambda.Parse([]byte(files[endpointPath]))
	if err != nil {
		t.Fatalf("parsing endpoint: %v", err)
	}
	composed, err := NewComposer("/files", fs).Apply(script, endpointPath)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	return composed
}

func names(n *lambda.Node) []string {
	var out []string
	for _, c := range n.Children() {
		out = append(out, c.Name)
	}
	return out
}

func TestComposeIdentityWithoutInterceptors(t *testing.T) {
	files := map[string]string{
		"/files/modules/foo.get.hl": "return:hello\n",
	}
	composed := composeFor(t, files, "/files/modules/foo.get.hl")
	got := names(composed)
	if len(got) != 1 || got[0] != "return" {
		t.Errorf("composed = %v, want identity", got)
	}
}

func TestComposeSingleMarker(t *testing.T) {
	files := map[string]string{
		"/files/modules/api/foo.get.hl": ".arguments\n   x:int\n.description:demo\nreturn:hello\n",
		"/files/modules/api/interceptor.hl": "log.info:before\n.interceptor\nlog.info:after\n",
	}
	composed := composeFor(t, files, "/files/modules/api/foo.get.hl")
	got := names(composed)
	want := []string{".arguments", ".description", "log.info", "return", "log.info"}
	if len(got) != len(want) {
		t.Fatalf("composed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("composed = %v, want %v", got, want)
		}
	}
	// The contract nodes were lifted, not copied into the body splice.
	if composed.Children()[3].Name != "return" {
		t.Errorf("endpoint body not spliced at marker position")
	}
}

func TestComposeMultipleMarkersEachSpliced(t *testing.T) {
	files := map[string]string{
		"/files/modules/foo.get.hl":     "return:hello\n",
		"/files/modules/interceptor.hl": ".interceptor\nlog.info:mid\n.interceptor\n",
	}
	composed := composeFor(t, files, "/files/modules/foo.get.hl")
	got := names(composed)
	want := []string{"return", "log.info", "return"}
	if len(got) != len(want) {
		t.Fatalf("composed = %v, want %v", got, want)
	}
	// Splices must be independent copies.
	first, second := composed.Children()[0], composed.Children()[2]
	if first == second {
		t.Fatalf("markers share one body instance")
	}
	first.Value = "mutated"
	if second.Value == "mutated" {
		t.Errorf("mutating one splice affected the other")
	}
}

func TestComposeNestingOrder(t *testing.T) {
	// A sits at modules/ (outer), B at modules/sub/ (inner).
	files := map[string]string{
		"/files/modules/sub/foo.get.hl":  "return:hello\n",
		"/files/modules/sub/interceptor.hl": "log.info:B-before\n.interceptor\nlog.info:B-after\n",
		"/files/modules/interceptor.hl":  "log.info:A-before\n.interceptor\nlog.info:A-after\n",
	}
	composed := composeFor(t, files, "/files/modules/sub/foo.get.hl")
	var values []string
	for _, c := range composed.Children() {
		values = append(values, lambda.ToString(c.Value))
	}
	want := []string{"A-before", "B-before", "hello", "B-after", "A-after"}
	if len(values) != len(want) {
		t.Fatalf("composed = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("composed = %v, want %v", values, want)
		}
	}
}

func TestComposeLiftsContractNodesInSourceOrder(t *testing.T) {
	files := map[string]string{
		"/files/modules/foo.post.hl": ".description:first\n.arguments\n   x:int\nauth.ticket.verify:admin\nvalidators.enum:x\n   :int:1\nreturn:done\n",
		"/files/modules/interceptor.hl": ".interceptor\n",
	}
	composed := composeFor(t, files, "/files/modules/foo.post.hl")
	got := names(composed)
	want := []string{".description", ".arguments", "auth.ticket.verify", "validators.enum", "return"}
	if len(got) != len(want) {
		t.Fatalf("composed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("composed = %v, want %v", got, want)
		}
	}
}
