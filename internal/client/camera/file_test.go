package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestFileCamera_CapturesJPEG(t *testing.T) {
	p := writeFile(t, "me.jpg", jpegHeader)
	ctx := context.Background()

	feed, err := NewFileCamera(p).Open(ctx)
	require.NoError(t, err)

	img, err := feed.Capture(ctx)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", img.ContentType)
	require.Equal(t, defaultFilename, img.Filename)
	require.Equal(t, jpegHeader, img.Data)

	require.NoError(t, feed.Close())
	require.NoError(t, feed.Close())
	_, err = feed.Capture(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestFileCamera_PNGKeepsName(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	p := writeFile(t, "face.png", png)

	feed, err := NewFileCamera(p).Open(context.Background())
	require.NoError(t, err)
	img, err := feed.Capture(context.Background())
	require.NoError(t, err)
	require.Equal(t, "image/png", img.ContentType)
	require.Equal(t, "face.png", img.Filename)
}

func TestFileCamera_Unavailable(t *testing.T) {
	_, err := NewFileCamera("").Open(context.Background())
	require.ErrorIs(t, err, ErrNoDevice)

	_, err = NewFileCamera(filepath.Join(t.TempDir(), "missing.jpg")).Open(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewFileCamera(t.TempDir()).Open(context.Background())
	require.Error(t, err)
}

func TestFileCamera_RejectsNonImage(t *testing.T) {
	p := writeFile(t, "notes.txt", []byte("hello"))
	feed, err := NewFileCamera(p).Open(context.Background())
	require.NoError(t, err)

	_, err = feed.Capture(context.Background())
	require.ErrorIs(t, err, ErrNotImage)
}

func TestFileCamera_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileCamera("x").Open(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
