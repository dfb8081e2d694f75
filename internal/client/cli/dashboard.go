package cli

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/client/tokeninfo"
)

// Dashboard shows the signed-in account and its biometric enrolment.
func (a *App) Dashboard(ctx context.Context) error {
	if !a.enter(ctx, routepath.Dashboard) {
		return nil
	}

	u := a.session.State().User
	if u == nil {
		return nil
	}
	a.say("%s <%s>", u.DisplayName(), u.Email)
	a.say("  login:   %s", u.Login)
	a.say("  active:  %t", u.IsActive)
	if !u.CreatedAt.IsZero() {
		a.say("  since:   %s", u.CreatedAt.Format(time.DateOnly))
	}

	hasFace, err := a.bio.EmbeddingStatus(ctx)
	if err != nil {
		a.say("  face:    %s", apperr.MessageOf(err, "unknown"))
		return nil
	}
	a.say("  face:    %s", enrolled(hasFace))

	pin, err := a.bio.PinStatus(ctx)
	if err != nil {
		a.say("  pin:     %s", apperr.MessageOf(err, "unknown"))
		return nil
	}
	a.say("  pin:     %s", enrolled(pin.HasPin))
	return nil
}

// Session prints the in-memory state and the unverified claims of the
// stored access token. Nothing here is used for admission.
func (a *App) Session(ctx context.Context) error {
	st := a.session.State()
	switch {
	case st.Loading:
		a.say("session: checking")
	case st.Authenticated():
		a.say("session: signed in as %s (id %d)", st.User.DisplayName(), st.User.ID)
	default:
		a.say("session: signed out")
	}
	if st.Error != "" {
		a.say("last error: %s", st.Error)
	}

	tokens, err := a.store.Get(ctx)
	if err != nil {
		a.say("token store: %v", err)
		return err
	}
	if tokens.Access == "" {
		a.say("access token: none")
		return nil
	}

	info, err := tokeninfo.Inspect(tokens.Access)
	if err != nil {
		a.say("access token: opaque")
		return nil
	}
	a.say("access token: subject %s, type %s", info.Subject, orNone(info.TokenType))
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if info.Expired(time.Now()) {
			state = "expired"
		}
		a.say("  expires %s (%s)", info.ExpiresAt.Local().Format(time.RFC3339), state)
	}
	a.say("refresh token: %s", present(tokens.Refresh != ""))
	return nil
}

func enrolled(ok bool) string {
	if ok {
		return "enrolled"
	}
	return "not enrolled"
}

func present(ok bool) string {
	if ok {
		return "present"
	}
	return "none"
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
