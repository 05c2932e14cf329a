package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultPath is consulted when Load is called with an empty path.
	DefaultPath = "configs/dispatch-sim.yaml"

	envPrefix = "DDX_"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Looper  LooperConfig  `koanf:"looper"`
	Metrics MetricsConfig `koanf:"metrics"`
	Sim     SimConfig     `koanf:"sim"`
}

type LooperConfig struct {
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`
	StopTimeout  time.Duration `koanf:"stop_timeout" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Meter   string `koanf:"meter"`
}

type SimConfig struct {
	ScenarioPath string `koanf:"scenario_path"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// DDX_-prefixed environment variables, in that precedence order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Looper: LooperConfig{
			PollInterval: time.Millisecond,
			StopTimeout:  5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Meter:   "deterministic-dispatch",
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = DefaultPath
	}
	// Config file is optional; anything beyond a missing file is real.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Double underscore nests (DDX_LOOPER__POLL_INTERVAL ->
	// looper.poll_interval); single underscores stay part of the key.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
