package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvInputDir  = "LEEREADY_INPUT_DIR"
	EnvOutputDir = "LEEREADY_OUTPUT_DIR"
	EnvLogLevel  = "LEEREADY_LOG_LEVEL"
	EnvWorkers   = "LEEREADY_WORKERS"
)

// ApplyEnv loads an optional .env file and applies LEEREADY_* overrides.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load() // best-effort
	if v := os.Getenv(EnvInputDir); v != "" {
		c.Input.Dir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Output.Workers = n
	}
	return nil
}
