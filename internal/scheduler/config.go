package scheduler

import "time"

// Config defines the scheduler loop configuration.
type Config struct {
	// PollInterval is the time between evaluation ticks.
	PollInterval time.Duration
	// DeviceTimeout bounds the recognition poll and each handler call
	// within one tick.
	DeviceTimeout time.Duration
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  time.Second,
		DeviceTimeout: 5 * time.Second,
	}
}
