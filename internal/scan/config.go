package scan

import "time"

// Config holds orchestrator tuning knobs.
type Config struct {
	// Concurrency caps how many probes run at once per scan.
	Concurrency int

	// ProbeTimeout bounds a single probe, misbehaving probes included.
	ProbeTimeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:  10,
		ProbeTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConfig().Concurrency
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultConfig().ProbeTimeout
	}
	return c
}
