package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePath string // hcl scene file

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Overrides of the scene file. Zero values keep the file's setting.
	Iterations int
	Seed       *uint64
	OutputDir  string

	// Simulate answers the generator's requests in-process instead of
	// connecting to the real services.
	Simulate bool
	// Visualize renders the overlay of this iteration and exits. Negative
	// disables it.
	Visualize int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenePath == "" {
		return nil, errors.New("ScenePath is a required configuration field and cannot be empty")
	}
	if cfg.Iterations < 0 {
		return nil, errors.New("iterations override must not be negative")
	}
	return &cfg, nil
}
