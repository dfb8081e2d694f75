package cli

import (
	"context"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/common"
)

// Indirections used to facilitate testing. They point to interactive input
// helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getSecret     = GetSecret
	confirm       = Confirm
)

// Login prompts for email and password and signs in. On success the user
// lands on the dashboard; on failure the boundary's message is shown and
// the login screen stays current.
func (a *App) Login(ctx context.Context) error {
	if !a.enter(ctx, routepath.Login) {
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, email, string(password)); err != nil {
		a.say("Login failed: %s", apperr.MessageOf(err, "Login failed"))
		return err
	}

	a.Navigate(ctx, routepath.Landing)
	a.say("Signed in as %s", a.session.State().User.DisplayName())
	return nil
}

// Register creates an account and, when the user agrees, enrols a face for
// it right away. Registration never signs in.
func (a *App) Register(ctx context.Context) error {
	if !a.enter(ctx, routepath.Register) {
		return nil
	}

	var reg models.Registration
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Enter login", &reg.Login},
		{"Enter first name", &reg.FirstName},
		{"Enter last name", &reg.LastName},
		{"Enter email", &reg.Email},
	} {
		v, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	reg.Password = string(password)

	res, err := a.session.Register(ctx, reg)
	if err != nil {
		a.say("Registration failed: %s", apperr.MessageOf(err, "Registration failed"))
		return err
	}
	a.say("Account created. Check your email to confirm it.")

	enroll, err := confirm(a.reader, "Enroll your face now?", a.out)
	if err == nil && enroll {
		if embID, err := a.bio.EnrollNewUser(ctx, res.ID); err != nil {
			a.say("Face enrolment failed: %s", apperr.MessageOf(err, "Face enrolment failed"))
		} else {
			a.say("Face enrolled (embedding %d)", embID)
		}
	}

	a.Navigate(ctx, routepath.EntryPoint)
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	if !a.enter(ctx, routepath.ResetPassword) {
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.session.ResetPassword(ctx, email); err != nil {
		a.say("Password reset failed: %s", apperr.MessageOf(err, "Password reset failed"))
		return err
	}
	a.say("If the address is registered, a reset link is on its way.")
	return nil
}

// ConfirmEmail takes the token from args or prompts for it.
func (a *App) ConfirmEmail(ctx context.Context, args []string) error {
	if !a.enter(ctx, routepath.ConfirmEmail) {
		return nil
	}

	token, err := a.tokenArg(args)
	if err != nil {
		return err
	}
	if err := a.session.ConfirmEmail(ctx, token); err != nil {
		a.say("Email confirmation failed: %s", apperr.MessageOf(err, "Email confirmation failed"))
		return err
	}
	a.say("Email confirmed. You can sign in now.")
	a.Navigate(ctx, routepath.EntryPoint)
	return nil
}

// ConfirmReset sets a new password using the token from a reset email.
func (a *App) ConfirmReset(ctx context.Context, args []string) error {
	if !a.enter(ctx, routepath.ConfirmReset) {
		return nil
	}

	token, err := a.tokenArg(args)
	if err != nil {
		return err
	}
	password, err := getSecret(a.reader, "Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.ConfirmPasswordReset(ctx, token, string(password)); err != nil {
		a.say("Password reset failed: %s", apperr.MessageOf(err, "Password reset failed"))
		return err
	}
	a.say("Password changed. You can sign in now.")
	a.Navigate(ctx, routepath.EntryPoint)
	return nil
}

// Logout always ends on the entry point, even when the boundary is down.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	a.say("Signed out")
	return nil
}

func (a *App) tokenArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, "Enter token", a.out)
}
