package spectrum

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// wire is the serialised form shared by the YAML and JSON codecs.
type wire struct {
	WavelengthsUM []float64 `yaml:"wavelengths_um,flow" json:"wavelengths_um"`
	Values        []float64 `yaml:"values,flow" json:"values"`
}

func (s *Spectrum) toWire() wire {
	return wire{
		WavelengthsUM: append([]float64(nil), s.lambdas...),
		Values:        append([]float64(nil), s.values...),
	}
}

func (s *Spectrum) fromWire(w wire) error {
	if len(w.WavelengthsUM) != len(w.Values) {
		return fmt.Errorf("%d wavelengths but %d values: %w", len(w.WavelengthsUM), len(w.Values), ErrInvalidRange)
	}
	if len(w.WavelengthsUM) < 2 {
		return ErrTooSmall
	}
	for i := 1; i < len(w.WavelengthsUM); i++ {
		if w.WavelengthsUM[i] <= w.WavelengthsUM[i-1] {
			return fmt.Errorf("sample %d: wavelengths must be strictly ascending: %w", i, ErrInvalidRange)
		}
	}
	s.lambdas = w.WavelengthsUM
	s.values = w.Values
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s *Spectrum) MarshalYAML() (any, error) {
	return s.toWire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Spectrum) UnmarshalYAML(node *yaml.Node) error {
	var w wire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return s.fromWire(w)
}

// MarshalJSON implements json.Marshaler.
func (s *Spectrum) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Spectrum) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return s.fromWire(w)
}
