package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda/eval"
)

// registerSlots installs the dispatcher's slot vocabulary into a registry.
// Transports and tests may register additional slots on the same registry.
func registerSlots(reg *eval.Registry, logger zerolog.Logger) {
	reg.Register("return", slotReturn)
	reg.Register("arguments.return", slotArgumentsReturn)
	reg.Register("response.status.set", slotStatusSet)
	reg.Register("response.headers.set", slotHeadersSet)
	reg.Register("response.cookies.set", slotCookiesSet)
	reg.Register("request.headers.get", slotHeadersGet)
	reg.Register("request.cookies.get", slotCookiesGet)
	reg.Register("auth.ticket.verify", slotAuthVerify)
	reg.Register("validators.enum", slotValidatorsEnum)
	reg.Register("log.info", func(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
		logger.Info().Msg(lambda.ToString(n.Value))
		return nil
	})
}

func scopeRequest(sc *eval.Scope) (*Request, error) {
	v, ok := sc.Named("request")
	if !ok {
		return nil, fmt.Errorf("no request in scope")
	}
	return v.(*Request), nil
}

func scopeResponse(sc *eval.Scope) (*Response, error) {
	v, ok := sc.Named("response")
	if !ok {
		return nil, fmt.Errorf("no response in scope")
	}
	return v.(*Response), nil
}

func scopeResult(sc *eval.Scope) (*lambda.Node, error) {
	v, ok := sc.Named("result")
	if !ok {
		return nil, fmt.Errorf("no result in scope")
	}
	return v.(*lambda.Node), nil
}

// slotReturn copies the invocation's value or children into the result
// accumulator.
func slotReturn(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	result, err := scopeResult(sc)
	if err != nil {
		return err
	}
	if n.FirstChild() == nil {
		result.Value = n.Value
		return nil
	}
	for _, c := range n.Children() {
		result.Append(c.Clone())
	}
	return nil
}

// slotArgumentsReturn echoes the bound argument block into the result
// accumulator.
func slotArgumentsReturn(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	result, err := scopeResult(sc)
	if err != nil {
		return err
	}
	args := n.Root().Child(declarationName)
	if args == nil {
		return nil
	}
	for _, c := range args.Children() {
		result.Append(c.Clone())
	}
	return nil
}

func slotStatusSet(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	res, err := scopeResponse(sc)
	if err != nil {
		return err
	}
	status, err := lambda.Convert(n.Value, "int")
	if err != nil {
		return fmt.Errorf("response.status.set: %w", err)
	}
	res.Status = status.(int)
	return nil
}

func slotHeadersSet(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	res, err := scopeResponse(sc)
	if err != nil {
		return err
	}
	for _, c := range n.Children() {
		res.Headers[c.Name] = lambda.ToString(c.Value)
	}
	return nil
}

// slotCookiesSet appends one cookie per child; the child's name and value
// become the cookie pair, with optional http-only and path grandchildren.
func slotCookiesSet(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	res, err := scopeResponse(sc)
	if err != nil {
		return err
	}
	for _, c := range n.Children() {
		cookie := &http.Cookie{Name: c.Name, Value: lambda.ToString(c.Value), Path: "/"}
		if ho := c.Child("http-only"); ho != nil {
			if b, ok := ho.Value.(bool); ok {
				cookie.HttpOnly = b
			}
		}
		if p := c.Child("path"); p != nil {
			cookie.Path = lambda.ToString(p.Value)
		}
		res.Cookies = append(res.Cookies, cookie)
	}
	return nil
}

// slotHeadersGet writes the named request header into the invoking node's
// value, where later nodes in the same script can pick it up.
func slotHeadersGet(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	req, err := scopeRequest(sc)
	if err != nil {
		return err
	}
	n.Value = req.Headers[lambda.ToString(n.Value)]
	return nil
}

func slotCookiesGet(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	req, err := scopeRequest(sc)
	if err != nil {
		return err
	}
	n.Value = req.Cookies[lambda.ToString(n.Value)]
	return nil
}

// slotAuthVerify enforces the endpoint's role list. An empty list demands any
// authenticated caller; otherwise the ticket must grant one of the
// comma-separated roles.
func slotAuthVerify(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	req, err := scopeRequest(sc)
	if err != nil {
		return err
	}
	roles := splitRoles(lambda.ToString(n.Value))
	if len(roles) == 0 {
		if req.Ticket == nil {
			return dispatchErrorf(KindUnauthorized, "authentication required")
		}
		return nil
	}
	if !req.Ticket.InRole(roles) {
		return dispatchErrorf(KindUnauthorized, "none of the required roles granted")
	}
	return nil
}

// slotValidatorsEnum restricts a bound argument to a fixed value set. The
// node's value names the argument, the children enumerate the legal values.
func slotValidatorsEnum(ctx context.Context, ev *eval.Evaluator, sc *eval.Scope, n *lambda.Node) error {
	name := lambda.ToString(n.Value)
	args := n.Root().Child(declarationName)
	if args == nil {
		return nil
	}
	arg := args.Child(name)
	if arg == nil {
		return nil
	}
	have := lambda.ToString(arg.Value)
	for _, c := range n.Children() {
		if lambda.ToString(c.Value) == have {
			return nil
		}
	}
	return dispatchErrorf(KindArgumentConversion, "argument %q has no legal value %q", name, have)
}

func splitRoles(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
