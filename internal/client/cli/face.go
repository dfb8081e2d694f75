package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/face"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/common"
)

// FaceLogin runs one face verification attempt. A face that needs a second
// factor continues straight into the PIN step with the returned ticket.
func (a *App) FaceLogin(ctx context.Context) error {
	if !a.enter(ctx, routepath.FaceLogin) {
		return nil
	}

	flow := face.NewFlow(a.camera, a.client, a.store, a.session, a.log)
	if err := flow.Start(ctx); err != nil {
		a.say("%s", apperr.MessageOf(err, "Camera is unavailable"))
		return err
	}

	var (
		out face.Outcome
		err error
	)
	for {
		email, rerr := getSimpleText(a.reader, "Enter email, then look at the camera", a.out)
		if rerr != nil {
			flow.Abandon()
			return rerr
		}
		out, err = flow.Capture(ctx, email)
		if flow.State() != face.Capturing {
			break
		}
		a.say("%s", apperr.MessageOf(err, "Enter your email before capturing"))
	}

	switch out.State {
	case face.Authenticated:
		a.Navigate(ctx, routepath.Landing)
		a.say("Signed in as %s", out.User.DisplayName())
		return nil
	case face.PinRequired:
		a.say("Face recognised. A PIN is required.")
		return a.enterPin(ctx, out.Ticket)
	default:
		a.say("Face sign-in failed: %s", apperr.MessageOf(err, "Face verification failed"))
		return err
	}
}

// enterPin asks for the PIN until it is accepted or the user submits an
// empty line. The boundary decides about lockouts.
func (a *App) enterPin(ctx context.Context, ticket face.Ticket) error {
	step, err := face.NewPinStep(ticket, a.client, a.store, a.session, a.log)
	if err != nil {
		a.say("No face verification is pending, start again with 'face'")
		a.Navigate(ctx, routepath.FaceLogin)
		return err
	}
	if !a.enter(ctx, routepath.EnterPin) {
		return nil
	}

	for {
		pin, err := getSecret(a.reader, "Enter PIN (empty to cancel)", a.out)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if len(pin) == 0 {
			a.say("PIN entry cancelled")
			a.Navigate(ctx, routepath.FaceLogin)
			return nil
		}

		u, err := step.Submit(ctx, string(pin))
		common.WipeByteArray(pin)
		if err == nil {
			a.Navigate(ctx, routepath.Landing)
			a.say("Signed in as %s", u.DisplayName())
			return nil
		}
		a.say("%s", apperr.MessageOf(err, "Invalid PIN"))
	}
}
