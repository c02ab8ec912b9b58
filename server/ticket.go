package server

import (
	"net/http"
	"strings"
)

// Ticket is the caller identity the transport attaches to a request: an
// opaque token and the roles it grants. A nil ticket means anonymous.
type Ticket struct {
	Token string
	Roles []string
}

// InRole reports whether the ticket grants any of the given roles.
func (t *Ticket) InRole(roles []string) bool {
	if t == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range t.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ticketFromRequest resolves the bearer token against the configured token
// table. Unknown or missing tokens yield a nil (anonymous) ticket; the
// endpoint's auth predicate decides whether that matters.
func ticketFromRequest(r *http.Request, tokens map[string][]string) *Ticket {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return nil
	}
	roles, ok := tokens[token]
	if !ok {
		return nil
	}
	return &Ticket{Token: token, Roles: roles}
}
