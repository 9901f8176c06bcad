package optic

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Mode names an analysis mode.
type Mode string

const (
	ModeEnergy     Mode = "energy"
	ModeRayTrace   Mode = "ray_trace"
	ModeGhostFocus Mode = "ghost_focus"
)

// Modes lists the supported analysis modes.
var Modes = []Mode{ModeEnergy, ModeRayTrace, ModeGhostFocus}

// ParseMode accepts mode names case-insensitively, with '-' or '_'.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", ConfigError("parse mode", fmt.Errorf("unknown analysis mode %q", s))
}

func (m Mode) String() string { return string(m) }

// RayTraceConfig holds the ray filters applied to every bundle leaving a
// node and the refractive index of the medium between nodes.
type RayTraceConfig struct {
	MinEnergy      units.Energy `yaml:"min_energy" json:"min_energy" validate:"finite,gte=0"`
	MaxBounces     int          `yaml:"max_bounces" json:"max_bounces" validate:"gte=0"`
	MaxRefractions int          `yaml:"max_refractions" json:"max_refractions" validate:"gte=0"`
	AmbientIndex   float64      `yaml:"ambient_index" json:"ambient_index" validate:"finite,gte=1"`
}

// DefaultRayTraceConfig drops rays below 1 pJ and rays with more than a
// thousand bounces or refractions. Nodes sit in vacuum.
func DefaultRayTraceConfig() RayTraceConfig {
	return RayTraceConfig{
		MinEnergy:      units.Picojoule(1),
		MaxBounces:     1000,
		MaxRefractions: 1000,
		AmbientIndex:   1,
	}
}

// Validate checks the configuration.
func (c RayTraceConfig) Validate() error {
	if err := validation.Struct(c); err != nil {
		return ConfigError("validate ray trace config", err)
	}
	return nil
}

// Filter removes rays failing the configured limits and returns how many
// were removed.
func (c RayTraceConfig) Filter(b *ray.Bundle) int {
	if b == nil {
		return 0
	}
	return b.FilterEnergy(c.MinEnergy) + b.FilterBounces(c.MaxBounces) + b.FilterRefractions(c.MaxRefractions)
}

// GhostFocusConfig configures ghost focus analysis.
type GhostFocusConfig struct {
	// MaxBounces bounds the number of reflected generations.
	MaxBounces int            `yaml:"max_bounces" json:"max_bounces" validate:"gte=0,lte=100"`
	RayTrace   RayTraceConfig `yaml:"ray_trace" json:"ray_trace"`
}

// DefaultGhostFocusConfig follows one reflected generation.
func DefaultGhostFocusConfig() GhostFocusConfig {
	return GhostFocusConfig{MaxBounces: 1, RayTrace: DefaultRayTraceConfig()}
}

// Validate checks the configuration.
func (c GhostFocusConfig) Validate() error {
	if err := validation.Struct(c); err != nil {
		return ConfigError("validate ghost focus config", err)
	}
	return nil
}
