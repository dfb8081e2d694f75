// Package services contains application services for the facegate client.
// This file defines biometric management for a signed-in user: face
// embedding enrolment and removal, and the PIN bound to that embedding.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/face"
	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/logging"
)

const (
	msgEmbeddingStatusFailed = "Could not load face status"
	msgEnrollFailed          = "Could not save face"
	msgEmbeddingDeleteFailed = "Could not delete face"
	msgPinStatusFailed       = "Could not load PIN status"
	msgPinCreateFailed       = "Could not save PIN"
	msgPinDeleteFailed       = "Could not delete PIN"
	msgCameraUnavailable     = "Camera is unavailable"
	msgCaptureFailed         = "Could not capture image"
)

// ErrNoEmbedding means a PIN was requested before any face was enrolled.
var ErrNoEmbedding = errors.New("no face enrolled")

// Biometrics defines biometric operations for the CLI.
//
// Contract:
//   - EmbeddingStatus: whether a face is enrolled for the current user.
//   - Enroll: capture one still from the camera and store it as the user's face.
//   - EnrollNewUser: same, for an account created moments ago (no session yet).
//   - DeleteEmbedding: remove the enrolled face.
//   - PinStatus / CreatePin / DeletePin: manage the second factor.
//
// Every failure is an *apperr.Error.
type Biometrics interface {
	EmbeddingStatus(ctx context.Context) (bool, error)
	Enroll(ctx context.Context) (int64, error)
	EnrollNewUser(ctx context.Context, userID int64) (int64, error)
	DeleteEmbedding(ctx context.Context) error
	PinStatus(ctx context.Context) (*models.PinStatus, error)
	CreatePin(ctx context.Context, pin string) error
	DeletePin(ctx context.Context) error
}

// BiometricsClient is the part of the boundary client used here.
type BiometricsClient interface {
	EmbeddingStatus(ctx context.Context) (*models.EmbeddingStatus, error)
	PutEmbedding(ctx context.Context, img models.Image) (*models.Enrollment, error)
	EnrollFace(ctx context.Context, userID int64, img models.Image) (*models.Enrollment, error)
	DeleteEmbedding(ctx context.Context) error
	PinStatus(ctx context.Context) (*models.PinStatus, error)
	CreatePin(ctx context.Context, pin string) error
	DeletePin(ctx context.Context) error
}

type biometrics struct {
	client BiometricsClient
	camera face.Camera
	log    logging.Logger
}

// NewBiometrics constructs a Biometrics service bound to the given client and camera.
func NewBiometrics(client BiometricsClient, camera face.Camera, log logging.Logger) Biometrics {
	if log == nil {
		log = logging.Nop()
	}
	return &biometrics{client: client, camera: camera, log: log}
}

func (b *biometrics) EmbeddingStatus(ctx context.Context) (bool, error) {
	st, err := b.client.EmbeddingStatus(ctx)
	if err != nil {
		return false, apperr.Normalize(err, msgEmbeddingStatusFailed, false)
	}
	return st.HasEmbedding, nil
}

func (b *biometrics) Enroll(ctx context.Context) (int64, error) {
	img, err := b.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	res, err := b.client.PutEmbedding(ctx, img)
	if err != nil {
		return 0, apperr.Normalize(err, msgEnrollFailed, false)
	}
	b.log.Info(ctx, "face enrolled", "embedding_id", res.EmbeddingID)
	return res.EmbeddingID, nil
}

func (b *biometrics) EnrollNewUser(ctx context.Context, userID int64) (int64, error) {
	img, err := b.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	res, err := b.client.EnrollFace(ctx, userID, img)
	if err != nil {
		return 0, apperr.Normalize(err, msgEnrollFailed, false)
	}
	b.log.Info(ctx, "face enrolled for new account", "user_id", userID, "embedding_id", res.EmbeddingID)
	return res.EmbeddingID, nil
}

func (b *biometrics) DeleteEmbedding(ctx context.Context) error {
	if err := b.client.DeleteEmbedding(ctx); err != nil {
		return apperr.Normalize(err, msgEmbeddingDeleteFailed, false)
	}
	return nil
}

func (b *biometrics) PinStatus(ctx context.Context) (*models.PinStatus, error) {
	st, err := b.client.PinStatus(ctx)
	if err != nil {
		return nil, apperr.Normalize(err, msgPinStatusFailed, false)
	}
	return st, nil
}

// CreatePin validates pin locally, then binds it to the enrolled face.
func (b *biometrics) CreatePin(ctx context.Context, pin string) error {
	if err := face.ValidatePIN(pin); err != nil {
		return err
	}

	has, err := b.EmbeddingStatus(ctx)
	if err != nil {
		return err
	}
	if !has {
		return &apperr.Error{Kind: apperr.ValidationFailure, Message: "Enroll your face before setting a PIN", Cause: ErrNoEmbedding}
	}

	if err := b.client.CreatePin(ctx, pin); err != nil {
		return apperr.Normalize(err, msgPinCreateFailed, false)
	}
	return nil
}

func (b *biometrics) DeletePin(ctx context.Context) error {
	if err := b.client.DeletePin(ctx); err != nil {
		return apperr.Normalize(err, msgPinDeleteFailed, false)
	}
	return nil
}

// snapshot opens the camera, takes one still and always releases it.
func (b *biometrics) snapshot(ctx context.Context) (models.Image, error) {
	feed, err := b.camera.Open(ctx)
	if err != nil {
		return models.Image{}, apperr.Capability(msgCameraUnavailable, err)
	}
	defer func() {
		if err := feed.Close(); err != nil {
			b.log.Warn(ctx, "camera release failed", "error", err)
		}
	}()

	img, err := feed.Capture(ctx)
	if err != nil {
		return models.Image{}, apperr.Capability(msgCaptureFailed, err)
	}
	return img, nil
}
