package face

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/logging"
)

const (
	msgCameraUnavailable = "Camera is unavailable"
	msgCaptureFailed     = "Could not capture image"
	msgEmailRequired     = "Enter your email before capturing"
	msgFaceFailed        = "Face verification failed"
)

var (
	ErrInvalidTransition = errors.New("invalid face flow transition")
	ErrAbandoned         = errors.New("face verification abandoned")
)

type State int

const (
	Idle State = iota
	Capturing
	Submitting
	Authenticated
	PinRequired
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Submitting:
		return "submitting"
	case Authenticated:
		return "authenticated"
	case PinRequired:
		return "pin-required"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Ticket identifies a face-matched user who still owes a PIN. It carries no
// credentials.
type Ticket struct {
	UserID      int64
	EmbeddingID int64
	Email       string
}

// Zero reports whether the ticket lacks the user or the email it was issued for.
func (t Ticket) Zero() bool { return t.UserID == 0 || t.Email == "" }

// Outcome is the result of Capture. Ticket is set for PinRequired, User for
// Authenticated.
type Outcome struct {
	State  State
	Ticket Ticket
	User   *models.User
}

type FaceVerifier interface {
	VerifyFace(ctx context.Context, email string, img models.Image) (*models.FaceVerification, error)
}

// UserLoader reloads the signed-in user after tokens were issued.
type UserLoader interface {
	FetchCurrentUser(ctx context.Context) (*models.User, error)
}

type Flow struct {
	camera   Camera
	verifier FaceVerifier
	store    tokenstore.Store
	users    UserLoader
	log      logging.Logger

	mu    sync.Mutex
	state State
	feed  Feed
	err   *apperr.Error
}

func NewFlow(camera Camera, verifier FaceVerifier, store tokenstore.Store, users UserLoader, log logging.Logger) *Flow {
	if log == nil {
		log = logging.Nop()
	}
	return &Flow{camera: camera, verifier: verifier, store: store, users: users, log: log}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the failure that produced the current state, if any.
func (f *Flow) Err() *apperr.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Start acquires the camera. Allowed from idle and failed.
func (f *Flow) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Idle && f.state != Failed {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, f.state)
	}

	feed, err := f.camera.Open(ctx)
	if err != nil {
		f.state = Failed
		f.err = apperr.Capability(msgCameraUnavailable, err)
		f.log.Warn(ctx, "camera open failed", "error", err)
		return f.err
	}

	f.feed = feed
	f.state = Capturing
	f.err = nil
	return nil
}

// Capture takes one still, releases the camera and submits it with email.
// An empty email is rejected without leaving capturing.
func (f *Flow) Capture(ctx context.Context, email string) (Outcome, error) {
	f.mu.Lock()
	if f.state != Capturing {
		st := f.state
		f.mu.Unlock()
		return Outcome{State: st}, fmt.Errorf("%w: capture from %s", ErrInvalidTransition, st)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		f.err = apperr.Validation(msgEmailRequired)
		err := f.err
		f.mu.Unlock()
		return Outcome{State: Capturing}, err
	}
	feed := f.feed
	f.feed = nil
	f.state = Submitting
	f.err = nil
	f.mu.Unlock()

	img, err := f.captureOnce(ctx, feed)
	if err != nil {
		return f.finish(Outcome{State: Failed}, apperr.Capability(msgCaptureFailed, err))
	}

	res, err := f.verifier.VerifyFace(ctx, email, img)
	if err != nil {
		return f.finish(Outcome{State: Failed}, apperr.Normalize(err, msgFaceFailed, true))
	}

	switch {
	case res.RequiresPin:
		ticket := Ticket{UserID: res.UserID, EmbeddingID: res.EmbeddingID, Email: email}
		if ticket.Zero() {
			return f.finish(Outcome{State: Failed}, &apperr.Error{Kind: apperr.BoundaryFailure, Message: msgFaceFailed})
		}
		return f.finish(Outcome{State: PinRequired, Ticket: ticket}, nil)

	case res.Tokens.Access != "":
		if f.abandoned() {
			return Outcome{State: Idle}, ErrAbandoned
		}
		if err := f.store.Set(ctx, res.Tokens); err != nil {
			return f.finish(Outcome{State: Failed}, apperr.Normalize(err, msgFaceFailed, false))
		}
		u, err := f.users.FetchCurrentUser(ctx)
		if err != nil {
			return f.finish(Outcome{State: Failed}, apperr.Normalize(err, msgFaceFailed, false))
		}
		return f.finish(Outcome{State: Authenticated, User: u}, nil)

	default:
		msg := res.Message
		if msg == "" {
			msg = msgFaceFailed
		}
		return f.finish(Outcome{State: Failed}, &apperr.Error{Kind: apperr.BoundaryFailure, Message: msg})
	}
}

// Abandon releases the camera and returns a live attempt to idle. A
// submission already in flight is discarded when it completes.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.release(context.Background())
	if f.state == Capturing || f.state == Submitting {
		f.state = Idle
		f.err = nil
	}
}

func (f *Flow) captureOnce(ctx context.Context, feed Feed) (models.Image, error) {
	defer func() {
		if err := feed.Close(); err != nil {
			f.log.Warn(ctx, "camera release failed", "error", err)
		}
	}()
	return feed.Capture(ctx)
}

// release closes a held feed. Caller holds mu.
func (f *Flow) release(ctx context.Context) {
	if f.feed == nil {
		return
	}
	if err := f.feed.Close(); err != nil {
		f.log.Warn(ctx, "camera release failed", "error", err)
	}
	f.feed = nil
}

func (f *Flow) abandoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != Submitting
}

func (f *Flow) finish(out Outcome, failure *apperr.Error) (Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Submitting {
		return Outcome{State: f.state}, ErrAbandoned
	}
	f.state = out.State
	f.err = failure
	if failure != nil {
		return out, failure
	}
	return out, nil
}
