// Package config provides configuration parsing for the querysync server.
//
// The configuration is stored in querysync.json. This package handles
// loading, saving, defaults and validation, and builds the slog logger the
// configuration describes.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 7070,
//	    "readTimeout": "10s",
//	    "writeTimeout": "10s"
//	  },
//	  "metrics": {"enabled": true, "namespace": "querysync", "path": "/metrics"},
//	  "tracing": {"enabled": false},
//	  "log": {"level": "debug", "format": "json"},
//	  "params": [
//	    {"key": "page", "context": "users", "type": "number", "default": "1", "min": 1, "max": 50},
//	    {"key": "tab", "context": "users", "deps": ["users_page"]}
//	  ]
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.NewLogger(os.Stderr)
package config
