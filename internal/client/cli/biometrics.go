package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/common"
)

const bioUsage = "Usage: bio status | bio enroll | bio delete | bio pin create | bio pin delete"

// Biometrics manages the signed-in user's face embedding and PIN. It is
// part of the dashboard and shares its admission rule.
func (a *App) Biometrics(ctx context.Context, args []string) error {
	if !a.enter(ctx, routepath.Dashboard) {
		return nil
	}

	switch strings.Join(args, " ") {
	case "", "status":
		return a.Dashboard(ctx)

	case "enroll":
		embID, err := a.bio.Enroll(ctx)
		if err != nil {
			a.say("Face enrolment failed: %s", apperr.MessageOf(err, "Face enrolment failed"))
			return err
		}
		a.say("Face enrolled (embedding %d)", embID)

	case "delete":
		if ok, _ := confirm(a.reader, "Delete your face embedding?", a.out); !ok {
			return nil
		}
		if err := a.bio.DeleteEmbedding(ctx); err != nil {
			a.say("%s", apperr.MessageOf(err, "Could not delete face embedding"))
			return err
		}
		a.say("Face embedding deleted")

	case "pin create":
		pin, err := getSecret(a.reader, "Choose a 4-digit PIN", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pin)
		if err := a.bio.CreatePin(ctx, string(pin)); err != nil {
			a.say("%s", apperr.MessageOf(err, "Could not set PIN"))
			return err
		}
		a.say("PIN set. Face sign-in will ask for it.")

	case "pin delete":
		if err := a.bio.DeletePin(ctx); err != nil {
			a.say("%s", apperr.MessageOf(err, "Could not delete PIN"))
			return err
		}
		a.say("PIN removed")

	default:
		a.say(bioUsage)
	}
	return nil
}
