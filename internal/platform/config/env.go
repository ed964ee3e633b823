package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads a host command's configuration from MATCHSIM_*
// environment variables; flag parsing layers on top of the result.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
