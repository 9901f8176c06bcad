package analyzer

import (
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Spec is the serialisable form of an analyzer as stored in documents.
// Missing configurations take their defaults.
type Spec struct {
	Mode       optic.Mode              `yaml:"mode" json:"mode"`
	RayTrace   *optic.RayTraceConfig   `yaml:"ray_trace,omitempty" json:"ray_trace,omitempty"`
	GhostFocus *optic.GhostFocusConfig `yaml:"ghost_focus,omitempty" json:"ghost_focus,omitempty"`
}

// Validate checks the spec without building an analyzer.
func (s Spec) Validate() error {
	modes := make([]string, len(optic.Modes))
	for i, m := range optic.Modes {
		modes[i] = m.String()
	}
	err := validation.NewConfigValidator("analyzer").
		Required("mode", s.Mode.String()).
		OneOf("mode", s.Mode.String(), modes).
		When(s.RayTrace != nil, func(cv *validation.ConfigValidator) {
			cv.Custom("ray_trace", s.RayTrace.Validate)
		}).
		When(s.GhostFocus != nil, func(cv *validation.ConfigValidator) {
			cv.Custom("ghost_focus", s.GhostFocus.Validate)
		}).
		Validate()
	if err != nil {
		return optic.ConfigError("validate analyzer", err)
	}
	return nil
}

// Build returns the analyzer described by the spec. opts are applied
// after the spec's configurations.
func (s Spec) Build(opts ...Option) (*Analyzer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var own []Option
	if s.RayTrace != nil {
		own = append(own, WithRayTraceConfig(*s.RayTrace))
	}
	if s.GhostFocus != nil {
		own = append(own, WithGhostFocusConfig(*s.GhostFocus))
	}
	return New(s.Mode, append(own, opts...)...)
}

// Spec returns the serialisable form of the analyzer. Configurations equal
// to their defaults are omitted.
func (a *Analyzer) Spec() Spec {
	s := Spec{Mode: a.mode}
	if a.rayTrace != optic.DefaultRayTraceConfig() {
		cfg := a.rayTrace
		s.RayTrace = &cfg
	}
	if a.ghostFocus != optic.DefaultGhostFocusConfig() {
		cfg := a.ghostFocus
		s.GhostFocus = &cfg
	}
	return s
}
