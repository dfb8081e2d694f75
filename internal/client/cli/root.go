package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/facegate/internal/client/routepath"
)

func (a *App) getStatus() string {
	s := string(a.currentRoute())
	st := a.session.State()
	switch {
	case st.Loading:
		s += " …"
	case st.User != nil:
		s += " " + st.User.DisplayName()
	}
	return fmt.Sprintf("(%s)", s)
}

// Root prints the banner and runs the REPL on the App's input.
func (a *App) Root(ctx context.Context) {
	a.say("Welcome to facegate (type 'help' for commands)")
	if a.isLoggedIn() {
		a.enter(ctx, routepath.Landing)
		a.say("Signed in as %s", a.session.State().User.DisplayName())
	} else {
		a.enter(ctx, routepath.EntryPoint)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}
