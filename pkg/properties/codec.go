package properties

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/aperture"
	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/refractive"
)

// Encode returns the serialisable form of a property value.
func Encode(v any) any {
	switch v := v.(type) {
	case coating.Coating:
		return v.Spec()
	case aperture.Aperture:
		return v.Spec()
	case refractive.Model:
		return v.Spec()
	case geom.Isometry:
		return v.Spec()
	case uuid.UUID:
		return v.String()
	}
	return v
}

// decode reads a value of the given property type from a YAML node.
func decode(kind reflect.Type, node *yaml.Node) (any, error) {
	switch kind {
	case reflect.TypeFor[coating.Coating]():
		var s coating.Spec
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return s.Coating()
	case reflect.TypeFor[aperture.Aperture]():
		var s aperture.Spec
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return s.Aperture()
	case reflect.TypeFor[refractive.Model]():
		var s refractive.Spec
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return s.Model()
	case reflect.TypeFor[geom.Isometry]():
		var s geom.IsometrySpec
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return s.Isometry(), nil
	case reflect.TypeFor[uuid.UUID]():
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return uuid.Parse(s)
	}
	ptr := reflect.New(kind)
	if err := node.Decode(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// MarshalYAML writes the writable properties as an ordered mapping.
func (p *Properties) MarshalYAML() (any, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, prop := range p.All() {
		if prop.readOnly {
			continue
		}
		var value yaml.Node
		if err := value.Encode(Encode(prop.value)); err != nil {
			return nil, fmt.Errorf("property %s: %w", prop.name, err)
		}
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: prop.name}, &value)
	}
	return out, nil
}

// Apply sets the properties found in a YAML mapping. Every key must name an
// existing writable property and every value must decode to its type and
// pass its validators.
func (p *Properties) Apply(node *yaml.Node) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		prop, ok := p.props[name]
		if !ok {
			return fmt.Errorf("line %d: %s: %w", node.Content[i].Line, name, ErrUnknown)
		}
		v, err := decode(prop.kind, node.Content[i+1])
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", node.Content[i+1].Line, name, err)
		}
		if err := p.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Map returns every property, read-only ones included, in serialisable
// form. Reports use it.
func (p *Properties) Map() map[string]any {
	out := make(map[string]any, len(p.order))
	for _, prop := range p.All() {
		out[prop.name] = Encode(prop.value)
	}
	return out
}
