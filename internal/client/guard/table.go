package guard

import (
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/client/session"
)

// Table maps routes to gates. Routes without a gate redirect to the fallback.
type Table struct {
	gates    map[routepath.Route]Gate
	fallback routepath.Route
}

// DefaultTable is the client's route layout.
func DefaultTable() *Table {
	public := AdmitIfUnauthenticated(routepath.Landing)
	private := AdmitIfAuthenticated(routepath.EntryPoint)

	return &Table{
		fallback: routepath.EntryPoint,
		gates: map[routepath.Route]Gate{
			routepath.Root:          Always(routepath.EntryPoint),
			routepath.Login:         public,
			routepath.Register:      public,
			routepath.ResetPassword: public,
			routepath.ConfirmReset:  public,
			routepath.ConfirmEmail:  public,
			routepath.FaceLogin:     public,
			routepath.EnterPin:      public,
			routepath.Dashboard:     private,
		},
	}
}

func (t *Table) Resolve(route routepath.Route, state session.AuthState) Decision {
	g, ok := t.gates[route]
	if !ok {
		return Decision{Verdict: Redirect, Target: t.fallback}
	}
	return g.Admit(state)
}

// Known reports whether route has a gate.
func (t *Table) Known(route routepath.Route) bool {
	_, ok := t.gates[route]
	return ok
}
