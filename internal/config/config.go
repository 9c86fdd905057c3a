// Package config reads fygallery settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"fygallery/internal/storage"
)

// Config holds every tunable of the application.
type Config struct {
	DataDir      string        `env:"FYGALLERY_DATA_DIR"`
	Backend      string        `env:"FYGALLERY_BACKEND" envDefault:"bolt"`
	Fallback     string        `env:"FYGALLERY_FALLBACK" envDefault:"blob"`
	BlobQuota    int64         `env:"FYGALLERY_BLOB_QUOTA" envDefault:"5242880"`
	OpenTimeout  time.Duration `env:"FYGALLERY_OPEN_TIMEOUT" envDefault:"1s"`
	SaveDebounce time.Duration `env:"FYGALLERY_SAVE_DEBOUNCE" envDefault:"250ms"`
	ExportLimit  int64         `env:"FYGALLERY_EXPORT_LIMIT" envDefault:"4718592"`

	Intake struct {
		FullMax      int     `env:"FYGALLERY_FULL_MAX" envDefault:"2200"`
		FullQuality  float64 `env:"FYGALLERY_FULL_QUALITY" envDefault:"0.85"`
		ThumbMax     int     `env:"FYGALLERY_THUMB_MAX" envDefault:"800"`
		ThumbQuality float64 `env:"FYGALLERY_THUMB_QUALITY" envDefault:"0.82"`
		Workers      int     `env:"FYGALLERY_INTAKE_WORKERS" envDefault:"4"`
	}

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the given .env files (or ./.env when none are given and it
// exists) and parses the environment. Variables already set win over the
// files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration from environment: %w", err)
	}
	if cfg.DataDir == "" {
		dir, err := storage.DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	var errs []error
	for name, kind := range map[string]string{"FYGALLERY_BACKEND": c.Backend, "FYGALLERY_FALLBACK": c.Fallback} {
		switch kind {
		case storage.KindBolt, storage.KindSQLite, storage.KindBlob:
		case "":
			if name == "FYGALLERY_BACKEND" {
				errs = append(errs, fmt.Errorf("%s cannot be empty", name))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown backend %q", name, kind))
		}
	}
	if c.Intake.FullMax <= 0 || c.Intake.ThumbMax <= 0 {
		errs = append(errs, errors.New("profile max edges must be positive"))
	}
	for _, q := range []float64{c.Intake.FullQuality, c.Intake.ThumbQuality} {
		if q <= 0 || q > 1 {
			errs = append(errs, fmt.Errorf("quality %v out of range (0, 1]", q))
		}
	}
	if c.Intake.Workers < 1 {
		c.Intake.Workers = 1
	}
	if c.ExportLimit <= 0 {
		errs = append(errs, errors.New("FYGALLERY_EXPORT_LIMIT must be positive"))
	}
	if c.SaveDebounce < 0 {
		c.SaveDebounce = 0
	}
	return errors.Join(errs...)
}

// StorageOptions converts the configuration into storage.Options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Dir:         c.DataDir,
		Kind:        c.Backend,
		Fallback:    c.Fallback,
		BlobQuota:   c.BlobQuota,
		OpenTimeout: c.OpenTimeout,
	}
}
