package session

import (
	"context"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
)

// AuthState is the process-wide view of who is signed in.
type AuthState struct {
	User    *models.User
	Loading bool
	Error   string
}

// Authenticated reports whether a user is present.
func (s AuthState) Authenticated() bool { return s.User != nil }

// Navigator moves the user between screens.
type Navigator interface {
	Navigate(ctx context.Context, to routepath.Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, to routepath.Route)

func (f NavigatorFunc) Navigate(ctx context.Context, to routepath.Route) { f(ctx, to) }

// Boundary is the part of the identity boundary the manager drives.
type Boundary interface {
	Login(ctx context.Context, email, password string) (models.Tokens, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Register(ctx context.Context, reg models.Registration) (*models.RegisterResult, error)
	ResetPassword(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, token string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
}
