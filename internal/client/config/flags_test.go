package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://h:9/api", "-d", "x.db", "-s", "memory", "-t", "5", "-camera", "me.jpg"},
			expected: &Config{
				ServerURL: "http://h:9/api", DatabasePath: "x.db", StoreBackend: "memory",
				RequestTimeout: 5 * time.Second, CameraSource: "me.jpg",
			},
		},
		{
			name:     "config flag and unknown flags are ignored",
			args:     []string{"cmd", "-c", "cfg.json", "-x", "-a", "http://h/api"},
			expected: &Config{ServerURL: "http://h/api"},
		},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
