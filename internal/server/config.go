package server

import "time"

// Config holds the HTTP API settings plus the bits of system state the
// health endpoint reports.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// AllowedOrigins configures CORS. Empty means allow all.
	AllowedOrigins []string

	// RetentionTTL is reported by the health endpoint.
	RetentionTTL time.Duration

	// ModelConfigured, HIBPConfigured and ShodanConfigured surface which
	// optional integrations have credentials.
	ModelConfigured  bool
	HIBPConfigured   bool
	ShodanConfigured bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8000",
		AllowedOrigins: []string{"*"},
		RetentionTTL:   24 * time.Hour,
	}
}
