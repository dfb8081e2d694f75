package face

import (
	"context"

	"github.com/dmitrijs2005/facegate/internal/client/models"
)

// Camera acquires a live feed.
type Camera interface {
	Open(ctx context.Context) (Feed, error)
}

// Feed is a live camera stream. Close must be safe to call more than once.
type Feed interface {
	Capture(ctx context.Context) (models.Image, error)
	Close() error
}
