package scenario

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Step operations understood by the runner.
const (
	OpSend      = "send"
	OpAdvance   = "advance"
	OpDispatch  = "dispatch"
	OpStartAuto = "start_auto"
	OpStopAuto  = "stop_auto"
)

// Step is one scripted action against the looper.
type Step struct {
	Op     string        `koanf:"op" validate:"required,oneof=send advance dispatch start_auto stop_auto"`
	Tag    int           `koanf:"tag"`
	Delay  time.Duration `koanf:"delay" validate:"gte=0"`
	Amount time.Duration `koanf:"amount" validate:"gte=0"`
}

// Scenario is a named sequence of steps replayed against a looper.
type Scenario struct {
	Name  string `koanf:"name" validate:"required"`
	Steps []Step `koanf:"steps" validate:"required,min=1,dive"`
}

// LoadFile reads and validates a YAML scenario file.
func LoadFile(path string) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading scenario %s: %w", path, err)
	}

	var sc Scenario
	if err := k.Unmarshal("", &sc); err != nil {
		return nil, fmt.Errorf("unmarshaling scenario %s: %w", path, err)
	}

	if err := validator.New().Struct(&sc); err != nil {
		return nil, fmt.Errorf("validating scenario %s: %w", path, err)
	}

	return &sc, nil
}
