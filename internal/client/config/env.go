package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "FACEGATE_"

// parseEnv loads ./.env when present, then overlays variables named
// FACEGATE_<TAG>. Unset variables leave the current value alone. Panics on
// values that do not parse.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
