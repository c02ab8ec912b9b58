package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

// apiPrefix is where the dynamic dispatcher is mounted.
const apiPrefix = "/magic"

// apiHandler adapts HTTP requests into dispatcher requests and writes the
// responses back, mapping the error taxonomy to statuses at this edge only.
type apiHandler struct {
	dispatcher *Dispatcher
	tokens     map[string][]string
	logger     zerolog.Logger
}

func (h *apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ticket := ticketFromRequest(r, h.tokens)
	req := requestFrom(r, ticket)
	req.URL = strings.TrimPrefix(r.URL.Path, apiPrefix)

	if err := readPayload(r, req); err != nil {
		writeDispatchError(w, h.logger, err, ticket != nil)
		return
	}

	res, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeDispatchError(w, h.logger, err, ticket != nil)
		return
	}
	writeResponse(w, res)
}

// requestFrom builds the dispatcher's request view of an HTTP request:
// first-value query map, flattened headers and cookies, host and scheme.
func requestFrom(r *http.Request, ticket *Ticket) *Request {
	query := map[string]string{}
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}
	headers := map[string]string{}
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	cookies := map[string]string{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &Request{
		URL:     r.URL.Path,
		Verb:    strings.ToLower(r.Method),
		Host:    r.Host,
		Scheme:  scheme,
		Query:   query,
		Headers: headers,
		Cookies: cookies,
		Ticket:  ticket,
	}
}

// readPayload parses the request body into a node tree by content type.
// JSON is the default; the native script syntax and URL-encoded forms are
// also accepted. GET and DELETE carry no payload.
func readPayload(r *http.Request, req *Request) error {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodDelete {
		return nil
	}
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return dispatchErrorf(KindArgumentConversion, "malformed form body: %v", err)
		}
		payload := lambda.New("")
		for name, values := range r.PostForm {
			if len(values) > 0 {
				payload.Append(lambda.NewWith(name, values[0]))
			}
		}
		if payload.FirstChild() != nil {
			req.Payload = payload
		}
		return nil
	case strings.HasPrefix(contentType, lambda.ContentType):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return dispatchErrorf(KindArgumentConversion, "reading body: %v", err)
		}
		if len(body) == 0 {
			return nil
		}
		payload, err := lambda.Parse(body)
		if err != nil {
			return dispatchErrorf(KindArgumentConversion, "malformed body: %v", err)
		}
		req.Payload = payload
		return nil
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return dispatchErrorf(KindArgumentConversion, "reading body: %v", err)
		}
		if len(body) == 0 {
			return nil
		}
		payload, err := lambda.FromJSON(body)
		if err != nil {
			return dispatchErrorf(KindArgumentConversion, "malformed body: %v", err)
		}
		req.Payload = payload
		return nil
	}
}

// writeResponse writes status, headers, cookies and content. Stream content
// is copied and closed here; its ownership transferred to the transport when
// the script attached it.
func writeResponse(w http.ResponseWriter, res *Response) {
	for name, value := range res.Headers {
		w.Header().Set(name, value)
	}
	for _, cookie := range res.Cookies {
		http.SetCookie(w, cookie)
	}
	switch content := res.Content.(type) {
	case nil:
		w.WriteHeader(res.Status)
	case string:
		w.WriteHeader(res.Status)
		w.Write([]byte(content))
	case []byte:
		w.WriteHeader(res.Status)
		w.Write(content)
	case io.Reader:
		w.WriteHeader(res.Status)
		io.Copy(w, content)
		closeValue(content)
	default:
		w.WriteHeader(res.Status)
		w.Write([]byte(lambda.ToString(content)))
	}
}

// writeDispatchError maps an error to its status and writes a small JSON
// body. Evaluation faults are logged but reported opaquely.
func writeDispatchError(w http.ResponseWriter, logger zerolog.Logger, err error, authenticated bool) {
	status := httpStatus(err, authenticated)
	message := err.Error()
	if de, ok := AsDispatchError(err); !ok || de.Kind == KindEvaluation || de.Kind == KindMultipleDeclarations {
		logger.Error().Err(err).Msg("dispatch failed")
		message = http.StatusText(status)
	}
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// endpointsHandler serves the meta-data listing, regenerated per request.
type endpointsHandler struct {
	reflector *Reflector
	logger    zerolog.Logger
}

func (h *endpointsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	records, err := h.reflector.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("listing endpoints")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []EndpointRecord{}
	}
	w.Header().Set("Content-Type", jsonContentType)
	json.NewEncoder(w).Encode(records)
}
