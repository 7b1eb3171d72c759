// Package config handles configuration loading for comm-relay.
//
// Configuration is loaded from YAML files with environment variable
// expansion. Values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${RELAY_JWT_SECRET}"
//
// Duration values use Go's time.ParseDuration syntax:
//
//	relay:
//	  store_timeout: "5s"
//	  read_timeout: "60s"
//
// Sections:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  allowed_origins: ["https://app.example.com"]
//
//	database:
//	  path: "/var/lib/comm-relay/relay.db"
//
//	auth:
//	  jwt_secret: "${RELAY_JWT_SECRET}"   # required
//	  token_ttl: "24h"
//
//	relay:
//	  send_buffer: 128
//	  store_timeout: "5s"
//	  read_timeout: "60s"
//	  write_timeout: "10s"
//	  ping_interval: "30s"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
