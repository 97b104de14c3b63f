package app

import (
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval is how often the project directory is rescanned when
// file notifications are unavailable.
const DefaultPollInterval = 250 * time.Millisecond

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Dir string // project directory

	// Listen is the address of the socket.io hub. Empty disables it.
	Listen          string
	HealthcheckPort int
	PollInterval    time.Duration

	MCP         bool   // serve MCP on stdio
	JournalPath string // sqlite build journal, empty disables it
	AutoPlay    bool
	Colors      bool

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Dir == "" {
		return nil, errors.New("Dir is a required configuration field and cannot be empty")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollInterval < 10*time.Millisecond {
		return nil, fmt.Errorf("poll interval %s is too short, minimum is 10ms", cfg.PollInterval)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}
