// Package camera provides face.Camera implementations for a terminal client.
package camera

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/facegate/internal/client/face"
	"github.com/dmitrijs2005/facegate/internal/client/models"
)

const defaultFilename = "capture.jpg"

var (
	ErrNoDevice = errors.New("no camera source configured")
	ErrClosed   = errors.New("camera feed closed")
	ErrNotImage = errors.New("source is not an image")
)

// FileCamera serves a still image from disk as if it were a live frame.
type FileCamera struct {
	path string
}

func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path}
}

func (c *FileCamera) Open(ctx context.Context) (face.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.path == "" {
		return nil, ErrNoDevice
	}
	fi, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("open camera source: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("open camera source: %s is a directory", c.path)
	}
	return &fileFeed{path: c.path}, nil
}

type fileFeed struct {
	path string

	mu     sync.Mutex
	closed bool
}

func (f *fileFeed) Capture(ctx context.Context) (models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return models.Image{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return models.Image{}, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return models.Image{}, fmt.Errorf("read frame: %w", err)
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return models.Image{}, fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	name := defaultFilename
	if ct != "image/jpeg" {
		name = filepath.Base(f.path)
	}
	return models.Image{Data: data, Filename: name, ContentType: ct}, nil
}

func (f *fileFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
