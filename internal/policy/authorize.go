// Package policy decides whether an actor may run privileged game
// commands. Real identity lives in the chat transport; this layer only
// checks a shared admin token or a configured administrator list.
package policy

import (
	"crypto/subtle"
	"strings"
)

type Authorizer struct {
	adminToken  string
	adminActors map[string]struct{}
}

// NewAuthorizer builds the admin check from config. actors is the
// comma-joined administrator list; an empty token disables token auth.
func NewAuthorizer(token string, actors []string) *Authorizer {
	set := make(map[string]struct{}, len(actors))
	for _, a := range actors {
		a = strings.TrimSpace(a)
		if a != "" {
			set[strings.ToLower(a)] = struct{}{}
		}
	}
	return &Authorizer{adminToken: strings.TrimSpace(token), adminActors: set}
}

// AllowToken reports whether the presented shared token is valid.
func (a *Authorizer) AllowToken(token string) bool {
	if a.adminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.adminToken), []byte(token)) == 1
}

// AllowActor reports whether the named actor is an administrator.
func (a *Authorizer) AllowActor(actor string) bool {
	_, ok := a.adminActors[strings.ToLower(strings.TrimSpace(actor))]
	return ok
}

// Allow grants the privileged command when either check passes.
func (a *Authorizer) Allow(actor, token string) bool {
	return a.AllowToken(token) || a.AllowActor(actor)
}
