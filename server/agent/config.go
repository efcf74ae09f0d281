package agent

import (
	"errors"
	"fmt"
	"math"
)

// Config holds the learning parameters and the reward shaping terms.
type Config struct {
	Alpha   float64 `json:"alpha"`   // learning rate
	Gamma   float64 `json:"gamma"`   // discount
	Epsilon float64 `json:"epsilon"` // exploration rate

	HitReward float64 `json:"hit_reward"` // paid for a hit that raised the total without busting
	Bonus18   float64 `json:"bonus_18"`   // added to a win finishing on 18 or 19
	Bonus20   float64 `json:"bonus_20"`   // added to a win finishing on 20 or 21
}

func DefaultConfig() Config {
	return Config{
		Alpha:     0.1,
		Gamma:     0.9,
		Epsilon:   0.1,
		HitReward: 0.1,
		Bonus18:   0.2,
		Bonus20:   0.5,
	}
}

var ErrConfig = errors.New("invalid agent configuration")

type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func (c Config) Validate() error {
	unit := []struct {
		name string
		v    float64
	}{
		{"alpha", c.Alpha},
		{"gamma", c.Gamma},
		{"epsilon", c.Epsilon},
	}
	for _, p := range unit {
		if math.IsNaN(p.v) || p.v < 0 || p.v > 1 {
			return &ConfigError{Field: p.name, Value: p.v, Reason: "must be within [0, 1]"}
		}
	}
	shaping := []struct {
		name string
		v    float64
	}{
		{"hit_reward", c.HitReward},
		{"bonus_18", c.Bonus18},
		{"bonus_20", c.Bonus20},
	}
	for _, p := range shaping {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v < 0 {
			return &ConfigError{Field: p.name, Value: p.v, Reason: "must be a finite non-negative number"}
		}
	}
	return nil
}
