// Package properties implements the typed property bag every node exposes
// to editors, documents and reports.
//
// A property has a fixed type chosen at creation. Set rejects values of a
// different type and values failing the property's validators. Interface
// typed properties (coatings, apertures, refractive index models) accept
// any implementation of the interface.
package properties

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dd0wney/cluso-opticbench/pkg/aperture"
	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/refractive"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

var (
	ErrUnknown  = errors.New("unknown property")
	ErrExists   = errors.New("property already exists")
	ErrType     = errors.New("property type mismatch")
	ErrReadOnly = errors.New("property is read-only")
)

// interfaceKinds are the interface types a property can be declared as.
var interfaceKinds = []reflect.Type{
	reflect.TypeFor[coating.Coating](),
	reflect.TypeFor[aperture.Aperture](),
	reflect.TypeFor[refractive.Model](),
}

func kindOf(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for _, it := range interfaceKinds {
		if t.Implements(it) {
			return it
		}
	}
	return t
}

// Property is a named, typed and described value.
type Property struct {
	name        string
	description string
	value       any
	kind        reflect.Type
	tag         string
	check       func(any) error
	readOnly    bool
}

func (p *Property) Name() string        { return p.name }
func (p *Property) Description() string { return p.description }
func (p *Property) Value() any          { return p.value }
func (p *Property) ReadOnly() bool      { return p.readOnly }

// Type returns the declared type of the property.
func (p *Property) Type() reflect.Type { return p.kind }

func (p *Property) validate(v any) error {
	if v == nil || !reflect.TypeOf(v).AssignableTo(p.kind) {
		return fmt.Errorf("%s: want %s, got %T: %w", p.name, p.kind, v, ErrType)
	}
	if p.tag != "" {
		if err := validation.Var(v, p.tag); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	if p.check != nil {
		if err := p.check(v); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// Option configures a property at creation.
type Option func(*Property)

// WithValidation validates values with a validator tag such as
// "finite,gt=0".
func WithValidation(tag string) Option {
	return func(p *Property) { p.tag = tag }
}

// WithCheck validates values with a custom function.
func WithCheck(fn func(any) error) Option {
	return func(p *Property) { p.check = fn }
}

// ReadOnly marks a property that only its owner can change. Read-only
// properties carry results for reports and are not serialised.
func ReadOnly() Option {
	return func(p *Property) { p.readOnly = true }
}

// Properties is an ordered set of properties.
type Properties struct {
	order []string
	props map[string]*Property
}

// New returns an empty property bag.
func New() *Properties {
	return &Properties{props: make(map[string]*Property)}
}

// Create adds a property with an initial value. The value fixes the type
// and must pass the validators.
func (p *Properties) Create(name, description string, value any, opts ...Option) error {
	if _, ok := p.props[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrExists)
	}
	if value == nil {
		return fmt.Errorf("%s: nil initial value: %w", name, ErrType)
	}
	prop := &Property{name: name, description: description, value: value, kind: kindOf(value)}
	for _, opt := range opts {
		opt(prop)
	}
	if err := prop.validate(value); err != nil {
		return err
	}
	p.props[name] = prop
	p.order = append(p.order, name)
	return nil
}

// Set changes the value of a writable property.
func (p *Properties) Set(name string, value any) error {
	prop, ok := p.props[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknown)
	}
	if prop.readOnly {
		return fmt.Errorf("%s: %w", name, ErrReadOnly)
	}
	if err := prop.validate(value); err != nil {
		return err
	}
	prop.value = value
	return nil
}

// SetInternal changes the value of any property, read-only ones included.
// Node implementations use it to publish results.
func (p *Properties) SetInternal(name string, value any) error {
	prop, ok := p.props[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknown)
	}
	if err := prop.validate(value); err != nil {
		return err
	}
	prop.value = value
	return nil
}

// Get returns the value of a property.
func (p *Properties) Get(name string) (any, error) {
	prop, ok := p.props[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknown)
	}
	return prop.value, nil
}

// Get returns the value of a property as T.
func Get[T any](p *Properties, name string) (T, error) {
	var zero T
	v, err := p.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s: want %T, have %T: %w", name, zero, v, ErrType)
	}
	return t, nil
}

// Has reports whether a property exists.
func (p *Properties) Has(name string) bool {
	_, ok := p.props[name]
	return ok
}

// Property returns the named property.
func (p *Properties) Property(name string) (*Property, bool) {
	prop, ok := p.props[name]
	return prop, ok
}

// Names returns the property names in creation order.
func (p *Properties) Names() []string {
	return append([]string(nil), p.order...)
}

// Len returns the number of properties.
func (p *Properties) Len() int { return len(p.order) }

// All returns the properties in creation order.
func (p *Properties) All() []*Property {
	out := make([]*Property, len(p.order))
	for i, name := range p.order {
		out[i] = p.props[name]
	}
	return out
}

// Clone returns a copy. Values are shared; they are treated as immutable.
func (p *Properties) Clone() *Properties {
	c := New()
	for _, name := range p.order {
		prop := *p.props[name]
		c.props[name] = &prop
		c.order = append(c.order, name)
	}
	return c
}
