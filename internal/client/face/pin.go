package face

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/logging"
)

const (
	PinLength = 4

	msgPinFormat  = "PIN must be exactly 4 digits"
	msgPinInvalid = "Invalid PIN"
)

var (
	// ErrNoPendingVerification means there is no face match to attach a PIN to.
	ErrNoPendingVerification = errors.New("no pending face verification")
	ErrStepCompleted         = errors.New("pin step already completed")
)

// ValidatePIN accepts exactly four ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PinLength {
		return apperr.Validation(msgPinFormat)
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return apperr.Validation(msgPinFormat)
		}
	}
	return nil
}

type PinVerifier interface {
	VerifyPin(ctx context.Context, userID int64, pin string) (models.Tokens, error)
}

// PinStep completes a face sign-in that requires a PIN. A failed Submit
// leaves the step usable for another attempt; there is no local lockout.
type PinStep struct {
	ticket   Ticket
	verifier PinVerifier
	store    tokenstore.Store
	users    UserLoader
	log      logging.Logger

	mu   sync.Mutex
	done bool
}

func NewPinStep(ticket Ticket, verifier PinVerifier, store tokenstore.Store, users UserLoader, log logging.Logger) (*PinStep, error) {
	if ticket.Zero() {
		return nil, ErrNoPendingVerification
	}
	if log == nil {
		log = logging.Nop()
	}
	return &PinStep{ticket: ticket, verifier: verifier, store: store, users: users, log: log}, nil
}

func (p *PinStep) Ticket() Ticket { return p.ticket }

func (p *PinStep) Submit(ctx context.Context, pin string) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return nil, ErrStepCompleted
	}
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}

	tokens, err := p.verifier.VerifyPin(ctx, p.ticket.UserID, pin)
	if err != nil {
		p.log.Debug(ctx, "pin rejected", "user_id", p.ticket.UserID, "error", err)
		return nil, apperr.Normalize(err, msgPinInvalid, true)
	}
	if tokens.Access == "" {
		return nil, &apperr.Error{Kind: apperr.BoundaryFailure, Message: msgPinInvalid}
	}
	if err := p.store.Set(ctx, tokens); err != nil {
		return nil, apperr.Normalize(err, msgPinInvalid, false)
	}

	u, err := p.users.FetchCurrentUser(ctx)
	if err != nil {
		return nil, apperr.Normalize(err, msgPinInvalid, false)
	}
	p.done = true
	return u, nil
}
