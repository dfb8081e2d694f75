// Package guard decides whether a screen may be shown for a given AuthState.
//
// Gates are pure functions of the state passed in; callers re-evaluate them
// whenever the session changes.
package guard

import (
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/client/session"
)

type Verdict int

const (
	// Placeholder means the session is still resolving; show a neutral wait screen.
	Placeholder Verdict = iota
	Render
	Redirect
)

func (v Verdict) String() string {
	switch v {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "placeholder"
	}
}

// Decision is a gate's answer. Target is set only for Redirect.
type Decision struct {
	Verdict Verdict
	Target  routepath.Route
}

type Gate interface {
	Admit(state session.AuthState) Decision
}

type authenticatedOnly struct{ entry routepath.Route }

// AdmitIfAuthenticated renders for a signed-in user and otherwise redirects to entry.
func AdmitIfAuthenticated(entry routepath.Route) Gate {
	return authenticatedOnly{entry: entry}
}

func (g authenticatedOnly) Admit(s session.AuthState) Decision {
	if s.Loading {
		return Decision{Verdict: Placeholder}
	}
	if !s.Authenticated() {
		return Decision{Verdict: Redirect, Target: g.entry}
	}
	return Decision{Verdict: Render}
}

type unauthenticatedOnly struct{ landing routepath.Route }

// AdmitIfUnauthenticated renders for a signed-out user and otherwise redirects to landing.
func AdmitIfUnauthenticated(landing routepath.Route) Gate {
	return unauthenticatedOnly{landing: landing}
}

func (g unauthenticatedOnly) Admit(s session.AuthState) Decision {
	if s.Loading {
		return Decision{Verdict: Placeholder}
	}
	if s.Authenticated() {
		return Decision{Verdict: Redirect, Target: g.landing}
	}
	return Decision{Verdict: Render}
}

// Always redirects unconditionally, e.g. for the root route.
type Always routepath.Route

func (a Always) Admit(session.AuthState) Decision {
	return Decision{Verdict: Redirect, Target: routepath.Route(a)}
}
