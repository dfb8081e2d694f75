// Package config loads runtime configuration for the facegate CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory, if present.
//  3. Environment variables prefixed with FACEGATE_ (FACEGATE_SERVER_URL,
//     FACEGATE_STORE, FACEGATE_REDIS_URL, FACEGATE_REQUEST_TIMEOUT, ...).
//  4. Optional JSON file selected via -c or -config.
//  5. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string      boundary base URL
//	-d string      SQLite database path
//	-s string      token store backend
//	-t int         request timeout (seconds)
//	-camera string still image used as camera
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8000/api",
//	  "database_path": "facegate.db",
//	  "store_backend": "sqlite",
//	  "redis_url": "redis://localhost:6379/0",
//	  "store_secret": "",
//	  "request_timeout": "12s",
//	  "camera_source": "face.jpg",
//	  "log_level": "info"
//	}
package config
