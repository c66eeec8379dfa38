// Package config handles configuration loading for lore-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	upstream:
//	  token: "${LORE_ARCHIVE_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	upstream:
//	  timeout: "10s"
//	sessions:
//	  idle_ttl: "30m"
//	dispatch:
//	  call_timeout: "30s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Upstream archive API:
//
//	upstream:
//	  base_url: "http://localhost:9000"
//	  token: "${LORE_ARCHIVE_TOKEN}"
//	  timeout: "30s"
//
// Session lifecycle:
//
//	sessions:
//	  idle_ttl: "30m"
//
// Authentication (OAuth compatibility endpoints):
//
//	auth:
//	  jwt_secret: "${LORE_JWT_SECRET}"
//
// Invocation ledger (optional, empty path disables it):
//
//	database:
//	  path: "/var/lib/lore/gateway.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/lore/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
