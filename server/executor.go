package server

import (
	"context"
	"io"
	"net/http"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda/eval"
)

// Request carries one dispatch's inbound data. It is owned by that dispatch
// and never mutated by the executor.
type Request struct {
	URL     string
	Verb    string
	Host    string
	Scheme  string
	Query   map[string]string
	Headers map[string]string
	Cookies map[string]string
	Payload *lambda.Node
	Ticket  *Ticket
}

// Response is mutated by the script through its ambient scope and returned
// to the transport. Content is a string, raw bytes, an externally-owned
// stream, or nil.
type Response struct {
	Status  int
	Headers map[string]string
	Cookies []*http.Cookie
	Content any
}

// Executor evaluates a composed, bound script inside nested ambient scopes
// and captures the response.
type Executor struct {
	eval *eval.Evaluator
}

// NewExecutor creates an executor over the evaluator.
func NewExecutor(ev *eval.Evaluator) *Executor {
	return &Executor{eval: ev}
}

// Execute runs the script and returns the response. Scopes nest outer to
// inner: request context, response context (status 200, empty headers and
// cookies), result accumulator. After normal completion the accumulator is
// negotiated into response content. On any evaluation error, resources
// already attached to the accumulator or the response are disposed
// best-effort and the error is re-raised unmodified.
func (ex *Executor) Execute(ctx context.Context, script *lambda.Node, req *Request) (*Response, error) {
	res := &Response{Status: http.StatusOK, Headers: map[string]string{}}
	return res, ex.ExecuteInto(ctx, script, req, res)
}

// ExecuteInto is Execute with a caller-provided response, letting the mixin
// path preload response content before the script runs.
func (ex *Executor) ExecuteInto(ctx context.Context, script *lambda.Node, req *Request, res *Response) error {
	result := lambda.New("result")

	scope := eval.NewScope()
	scope.Push("request", req)
	defer scope.Pop()
	scope.Push("response", res)
	defer scope.Pop()
	scope.Push("result", result)
	defer scope.Pop()

	if err := ex.eval.Run(ctx, scope, script); err != nil {
		dispose(result, res)
		if _, ok := AsDispatchError(err); ok {
			return err
		}
		return &DispatchError{Kind: KindEvaluation, Err: err}
	}
	return negotiate(res, result)
}

// dispose closes externally-owned resources already attached to the result
// accumulator or to response content. Close failures are ignored; the
// original fault is what surfaces.
func dispose(result *lambda.Node, res *Response) {
	closeValue(res.Content)
	res.Content = nil
	disposeTree(result)
}

func disposeTree(n *lambda.Node) {
	closeValue(n.Value)
	for c := n.FirstChild(); c != nil; c = c.Next() {
		disposeTree(c)
	}
}

func closeValue(v any) {
	if closer, ok := v.(io.Closer); ok {
		closer.Close()
	}
}
