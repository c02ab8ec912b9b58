package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda/eval"
)

func newTestExecutor(t *testing.T, extra map[string]eval.Slot) *Executor {
	t.Helper()
	reg := eval.NewRegistry()
	registerSlots(reg, zerolog.Nop())
	for name, fn := range extra {
		reg.Register(name, fn)
	}
	return NewExecutor(eval.New(reg))
}

func execute(t *testing.T, src string, req *Request) (*Response, error) {
	t.Helper()
	script := parseScript(t, src)
	if req == nil {
		req = &Request{}
	}
	return newTestExecutor(t, nil).Execute(context.Background(), script, req)
}

func TestExecuteStructuredResult(t *testing.T) {
	res, err := execute(t, "return\n   result:hello world\n", nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d", res.Status)
	}
	if res.Content != `{"result":"hello world"}` {
		t.Errorf("content = %v", res.Content)
	}
	if res.Headers["Content-Type"] != jsonContentType {
		t.Errorf("content type = %q", res.Headers["Content-Type"])
	}
}

func TestExecuteStatusOnly(t *testing.T) {
	res, err := execute(t, "response.status.set:int:201\n", nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Status != 201 {
		t.Errorf("status = %d, want 201", res.Status)
	}
	if res.Content != nil {
		t.Errorf("content = %v, want none", res.Content)
	}
}

func TestExecuteScalarText(t *testing.T) {
	res, err := execute(t, "return:int:42\n", nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Content != "42" {
		t.Errorf("content = %v", res.Content)
	}
	if res.Headers["Content-Type"] != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", res.Headers["Content-Type"])
	}
}

func TestExecuteNativeSyntaxWhenRequested(t *testing.T) {
	src := "response.headers.set\n   Content-Type:" + lambda.ContentType + "\nreturn\n   result:hello\n"
	res, err := execute(t, src, nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Content != "result:hello\n" {
		t.Errorf("content = %q, want native syntax", res.Content)
	}
}

func TestExecuteBytesPassthrough(t *testing.T) {
	raw := []byte{0x1, 0x2, 0x3}
	ex := newTestExecutor(t, map[string]eval.Slot{
		"emit.bytes": func(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
			result, _ := sc.Named("result")
			result.(*lambda.Node).Value = raw
			return nil
		},
	})
	res, err := ex.Execute(context.Background(), parseScript(t, "emit.bytes\n"), &Request{})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !bytes.Equal(res.Content.([]byte), raw) {
		t.Errorf("bytes not passed through: %v", res.Content)
	}
}

type trackedStream struct {
	io.Reader
	closed bool
}

func (s *trackedStream) Close() error {
	s.closed = true
	return nil
}

func TestExecuteStreamOwnershipTransfers(t *testing.T) {
	stream := &trackedStream{Reader: bytes.NewReader([]byte("payload"))}
	ex := newTestExecutor(t, map[string]eval.Slot{
		"emit.stream": func(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
			result, _ := sc.Named("result")
			result.(*lambda.Node).Value = stream
			return nil
		},
	})
	res, err := ex.Execute(context.Background(), parseScript(t, "emit.stream\n"), &Request{})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Content != stream {
		t.Errorf("stream not passed through")
	}
	if stream.closed {
		t.Errorf("stream closed before transport could use it")
	}
}

func TestExecuteDisposesOnFault(t *testing.T) {
	stream := &trackedStream{Reader: bytes.NewReader(nil)}
	boom := errors.New("boom")
	ex := newTestExecutor(t, map[string]eval.Slot{
		"emit.stream": func(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
			result, _ := sc.Named("result")
			result.(*lambda.Node).Value = stream
			return nil
		},
		"fail": func(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
			return boom
		},
	})
	_, err := ex.Execute(context.Background(), parseScript(t, "emit.stream\nfail\n"), &Request{})
	de, ok := AsDispatchError(err)
	if !ok || de.Kind != KindEvaluation {
		t.Fatalf("Execute() = %v, want KindEvaluation", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("original fault not preserved: %v", err)
	}
	if !stream.closed {
		t.Errorf("attached stream not disposed on fault")
	}
}

func TestExecuteDispatchErrorPassesThroughUnwrapped(t *testing.T) {
	script := parseScript(t, "auth.ticket.verify:admin\nreturn:never\n")
	_, err := newTestExecutor(t, nil).Execute(context.Background(), script, &Request{})
	de, ok := AsDispatchError(err)
	if !ok || de.Kind != KindUnauthorized {
		t.Fatalf("Execute() = %v, want KindUnauthorized untouched", err)
	}
}

func TestExecuteAuthRoles(t *testing.T) {
	script := parseScript(t, "auth.ticket.verify:admin, root\nreturn:ok\n")
	req := &Request{Ticket: &Ticket{Token: "t", Roles: []string{"root"}}}
	res, err := newTestExecutor(t, nil).Execute(context.Background(), script, req)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Content != "ok" {
		t.Errorf("content = %v", res.Content)
	}
}

func TestExecuteHeadersAndCookies(t *testing.T) {
	src := "response.headers.set\n   X-Custom:yes\nresponse.cookies.set\n   session:abc\n      http-only:bool:true\n"
	res, err := execute(t, src, nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Headers["X-Custom"] != "yes" {
		t.Errorf("header = %q", res.Headers["X-Custom"])
	}
	if len(res.Cookies) != 1 || res.Cookies[0].Name != "session" || !res.Cookies[0].HttpOnly {
		t.Errorf("cookies = %v", res.Cookies)
	}
}

func TestValidatorsEnum(t *testing.T) {
	script := parseScript(t, ".arguments\n   mode:string\nvalidators.enum:mode\n   :fast\n   :slow\nreturn:ok\n")
	if err := (Binder{}).Bind(script, map[string]string{"mode": "warp"}, nil); err != nil {
		t.Fatalf("Bind() error: %v", err)
	}
	_, err := newTestExecutor(t, nil).Execute(context.Background(), script, &Request{})
	de, ok := AsDispatchError(err)
	if !ok || de.Kind != KindArgumentConversion {
		t.Fatalf("Execute() = %v, want KindArgumentConversion", err)
	}
}
