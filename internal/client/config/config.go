package config

import "time"

// Config holds runtime settings for the facegate CLI.
type Config struct {
	// ServerURL is the base URL of the identity and verification boundary.
	ServerURL string `env:"SERVER_URL"`
	// DatabasePath is the SQLite file used by the sqlite store backend.
	DatabasePath string `env:"DATABASE_PATH"`
	// StoreBackend is one of sqlite, memory or redis.
	StoreBackend string `env:"STORE"`
	RedisURL     string `env:"REDIS_URL"`
	// StoreSecret, when set, seals stored tokens at rest.
	StoreSecret    string        `env:"STORE_SECRET"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	// CameraSource is the still image the file camera serves.
	CameraSource string `env:"CAMERA"`
	LogLevel     string `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000/api"
	c.DatabasePath = "facegate.db"
	c.StoreBackend = "sqlite"
	c.RedisURL = ""
	c.StoreSecret = ""
	c.RequestTimeout = 12 * time.Second
	c.CameraSource = ""
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a .env file, the environment, JSON (if present) and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
