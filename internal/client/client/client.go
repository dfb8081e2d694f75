package client

import (
	"context"

	"github.com/dmitrijs2005/facegate/internal/client/models"
)

type Client interface {
	Close() error

	Login(ctx context.Context, email, password string) (models.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.Tokens, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Register(ctx context.Context, reg models.Registration) (*models.RegisterResult, error)
	ResetPassword(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, token string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error

	VerifyFace(ctx context.Context, email string, img models.Image) (*models.FaceVerification, error)
	VerifyPin(ctx context.Context, userID int64, pin string) (models.Tokens, error)
	EnrollFace(ctx context.Context, userID int64, img models.Image) (*models.Enrollment, error)

	EmbeddingStatus(ctx context.Context) (*models.EmbeddingStatus, error)
	PutEmbedding(ctx context.Context, img models.Image) (*models.Enrollment, error)
	DeleteEmbedding(ctx context.Context) error
	PinStatus(ctx context.Context) (*models.PinStatus, error)
	CreatePin(ctx context.Context, pin string) error
	DeletePin(ctx context.Context) error
}
