package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/facegate/internal/flagx"
	"github.com/dmitrijs2005/facegate/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals use
// timex.Duration so they may be written as "12s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DatabasePath   string         `json:"database_path"`
	StoreBackend   string         `json:"store_backend"`
	RedisURL       string         `json:"redis_url"`
	StoreSecret    string         `json:"store_secret"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	CameraSource   string         `json:"camera_source"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays Config with the non-empty values of the JSON file named
// by -c or -config. Without either flag nothing changes. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.StoreBackend, jc.StoreBackend)
	setString(&cfg.RedisURL, jc.RedisURL)
	setString(&cfg.StoreSecret, jc.StoreSecret)
	setString(&cfg.CameraSource, jc.CameraSource)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
