package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/facegate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string      boundary base URL
//	-d string      SQLite database path
//	-s string      store backend (sqlite, memory, redis)
//	-t int         request timeout in seconds
//	-camera string still image served by the file camera
//
// os.Args is filtered with flagx.FilterArgs first so -c/-config and flags
// owned by other components do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-camera"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "boundary base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "database path")
	fs.StringVar(&cfg.StoreBackend, "s", cfg.StoreBackend, "token store backend (sqlite, memory, redis)")
	fs.StringVar(&cfg.CameraSource, "camera", cfg.CameraSource, "still image used as camera")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
