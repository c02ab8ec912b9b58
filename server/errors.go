package server

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a dispatch failure. Resolution and binding failures happen
// before any side effect and map straight to an error response; evaluation
// faults may follow partial side effects and are passed through unchanged
// after resource disposal.
type Kind int

const (
	// KindInvalidURL: a path segment contains an illegal character.
	KindInvalidURL Kind = iota + 1
	// KindNotFound: the URL is legal but no endpoint file exists.
	KindNotFound
	// KindUnauthorized: the URL is outside the permitted roots, or the
	// caller's ticket does not satisfy the endpoint's role list.
	KindUnauthorized
	// KindUnknownArgument: a parameter not present in the declaration block.
	KindUnknownArgument
	// KindArgumentConversion: a parameter failed its declared-type conversion.
	KindArgumentConversion
	// KindMultipleDeclarations: a script root carries more than one
	// .arguments node. Authoring defect, not a caller error.
	KindMultipleDeclarations
	// KindEvaluation: opaque fault raised while evaluating the script.
	KindEvaluation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid-url"
	case KindNotFound:
		return "not-found"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnknownArgument:
		return "unknown-argument"
	case KindArgumentConversion:
		return "argument-conversion"
	case KindMultipleDeclarations:
		return "multiple-declarations"
	case KindEvaluation:
		return "evaluation"
	}
	return "unknown"
}

// DispatchError is the error type the dispatcher raises and the transport
// maps to HTTP statuses.
type DispatchError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DispatchError) Unwrap() error { return e.Err }

func dispatchErrorf(kind Kind, format string, args ...any) *DispatchError {
	return &DispatchError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsDispatchError extracts a DispatchError from an error chain.
func AsDispatchError(err error) (*DispatchError, bool) {
	var de *DispatchError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// httpStatus maps the taxonomy to response statuses. Role failures on an
// authenticated caller are 403, anonymous ones 401.
func httpStatus(err error, authenticated bool) int {
	de, ok := AsDispatchError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindInvalidURL, KindUnknownArgument, KindArgumentConversion:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		if authenticated {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case KindMultipleDeclarations, KindEvaluation:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
