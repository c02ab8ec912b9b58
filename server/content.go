package server

import (
	"io"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

const jsonContentType = "application/json"

// negotiate converts the result accumulator into wire content on the
// response. Priority: an externally-owned stream or raw bytes pass through
// untouched (ownership transfers to the transport); any other scalar renders
// to text; children default to JSON unless the script set the response
// content type to the native script syntax, in which case the children are
// rendered back to that syntax; neither scalar nor children means no content.
func negotiate(res *Response, result *lambda.Node) error {
	switch v := result.Value.(type) {
	case nil:
		// Fall through to children handling.
	case io.Reader:
		res.Content = v
		return nil
	case []byte:
		res.Content = v
		return nil
	default:
		if res.Headers["Content-Type"] == "" {
			res.Headers["Content-Type"] = "text/plain; charset=utf-8"
		}
		res.Content = lambda.ToString(v)
		return nil
	}

	if result.FirstChild() == nil {
		// No result at all: leave response content as the script (or the
		// mixin page preload) last set it.
		return nil
	}

	if res.Headers["Content-Type"] == lambda.ContentType {
		res.Content = lambda.Render(result)
		return nil
	}
	text, err := lambda.ToJSON(result)
	if err != nil {
		return &DispatchError{Kind: KindEvaluation, Err: err}
	}
	if res.Headers["Content-Type"] == "" {
		res.Headers["Content-Type"] = jsonContentType
	}
	res.Content = text
	return nil
}
