// Package config handles configuration loading for finassist.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	model:
//	  api_key: "${FINASSIST_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	chat:
//	  stream_timeout: "2m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8100"   # API, SSE stream and web page
//
// Model endpoint (OpenAI-compatible; omit the whole section to run in
// demo mode with a scripted client):
//
//	model:
//	  base_url: "http://localhost:11434/v1/"
//	  api_key: "${FINASSIST_API_KEY}"
//	  name: "llama3.1:8b"
//
// Chat behavior:
//
//	chat:
//	  conversations:          # allow-list; omit to accept any id
//	    - "general"
//	  identities_path: "identities.toml"
//	  stream_timeout: "2m"
//
// Database (transcript ledger; omit path to disable persistence):
//
//	database:
//	  path: "/var/lib/finassist/transcript.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - server.http_addr is set
//   - model.base_url is set whenever model.name is set
//   - Duration format validity
//
// # Usage
//
//	cfg, err := config.Load("/etc/finassist/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
