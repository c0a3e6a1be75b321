package config

import (
	"errors"
	"fmt"
	"os"
	"route-planning-service/internal/domain"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Policy holds the tunable business rules of the planner.
type Policy struct {
	FuelPricePerLiter float64             `yaml:"fuel_price_per_liter"`
	ManagementFee     float64             `yaml:"management_fee"`
	DwellBuffer       time.Duration       `yaml:"dwell_buffer"`
	Timezone          string              `yaml:"timezone"`
	MaxIntermediates  int                 `yaml:"max_intermediates"`
	Transitions       map[string][]string `yaml:"transitions"`
}

func DefaultPolicy() Policy {
	return Policy{
		FuelPricePerLiter: 1.5,
		ManagementFee:     0,
		DwellBuffer:       24 * time.Hour,
		Timezone:          "UTC",
		MaxIntermediates:  3,
	}
}

// LoadPolicy reads a YAML policy file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("load policy: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("load policy: parse %q: %w", path, err)
	}

	if p.DwellBuffer < 0 {
		return Policy{}, fmt.Errorf("load policy: dwell_buffer must not be negative")
	}
	if p.MaxIntermediates < 0 {
		return Policy{}, fmt.Errorf("load policy: max_intermediates must not be negative")
	}
	if _, err := p.Location(); err != nil {
		return Policy{}, fmt.Errorf("load policy: %w", err)
	}
	if _, err := p.TransitionPolicy(); err != nil {
		return Policy{}, fmt.Errorf("load policy: %w", err)
	}

	return p, nil
}

func (p Policy) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// TransitionPolicy returns the configured table, or the default one when
// the policy file does not define transitions.
func (p Policy) TransitionPolicy() (domain.TransitionPolicy, error) {
	if len(p.Transitions) == 0 {
		return domain.DefaultTransitionPolicy(), nil
	}

	table := make(map[domain.SegmentState][]domain.SegmentState, len(p.Transitions))
	for from, tos := range p.Transitions {
		f, err := domain.ParseSegmentState(from)
		if err != nil {
			return domain.TransitionPolicy{}, err
		}
		for _, to := range tos {
			t, err := domain.ParseSegmentState(to)
			if err != nil {
				return domain.TransitionPolicy{}, err
			}
			table[f] = append(table[f], t)
		}
	}
	return domain.NewTransitionPolicy(table), nil
}

// CostParams carries the tariffs and the scheduling calendar, so dwell
// nights are counted on the same local dates the schedule is laid out on.
func (p Policy) CostParams() (domain.CostParams, error) {
	loc, err := p.Location()
	if err != nil {
		return domain.CostParams{}, err
	}
	return domain.CostParams{
		FuelPricePerLiter: p.FuelPricePerLiter,
		ManagementFee:     p.ManagementFee,
		Location:          loc,
	}, nil
}
