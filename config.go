// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config carries the environment-driven settings of a cleaner. How the token
// itself is obtained is up to the caller; this only reads it from the
// environment.
type Config struct {
	// Token is the slack token to act with.
	Token string `env:"SLACK_TOKEN,required"`
	// SleepFor is the self-throttle delay applied after every delete call.
	SleepFor time.Duration `env:"SLACK_CLEANER_SLEEP_FOR" envDefault:"0s"`
	// PageSize is the page limit requested from paginated API methods.
	PageSize int `env:"SLACK_CLEANER_PAGE_SIZE" envDefault:"200"`
	// LogFile enables debug logging to the given file.
	LogFile string `env:"SLACK_CLEANER_LOG_FILE"`
}

// LoadConfig reads the configuration from the environment, honoring an
// optional .env file in the working directory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	return cfg, nil
}

// NewFromEnv builds a SlackCleaner from the environment, see Config for the
// recognized variables.
func NewFromEnv() (*SlackCleaner, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	return New(cfg.Token, &Options{
		SleepFor: cfg.SleepFor,
		PageSize: cfg.PageSize,
		LogFile:  cfg.LogFile,
	})
}
