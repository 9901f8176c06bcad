package optic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies errors raised while building or analysing a graph.
type Kind int

const (
	// KindConfiguration covers invalid graphs and parameters.
	KindConfiguration Kind = iota
	// KindAnalysis covers node-local computation failures.
	KindAnalysis
	// KindData covers payloads that do not fit the analysis mode.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAnalysis:
		return "analysis"
	case KindData:
		return "data"
	}
	return "unknown"
}

// Kind sentinels, matched by errors.Is against any *Error of that kind.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAnalysis      = errors.New("analysis error")
	ErrData          = errors.New("data error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindAnalysis:
		return ErrAnalysis
	case KindData:
		return ErrData
	}
	return ErrConfiguration
}

// Error provides structured information about a failed graph operation.
type Error struct {
	Kind     Kind
	Op       string    // operation that failed, e.g. "connect", "analyze"
	NodeID   uuid.UUID // node involved, if any
	NodeName string
	Port     string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error: %s", e.Kind, e.Op)
	if e.NodeID != uuid.Nil || e.NodeName != "" {
		fmt.Fprintf(&b, " node %q (%s)", e.NodeName, e.NodeID)
	}
	if e.Port != "" {
		fmt.Fprintf(&b, " port %q", e.Port)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel of this error's kind or
// matches its cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == e.Kind.sentinel() {
		return true
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a configuration error builder for the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op}}
}

func (b *ErrorBuilder) Configuration() *ErrorBuilder {
	b.err.Kind = KindConfiguration
	return b
}

func (b *ErrorBuilder) Analysis() *ErrorBuilder {
	b.err.Kind = KindAnalysis
	return b
}

func (b *ErrorBuilder) Data() *ErrorBuilder {
	b.err.Kind = KindData
	return b
}

// Node sets the node the error refers to.
func (b *ErrorBuilder) Node(id uuid.UUID, name string) *ErrorBuilder {
	b.err.NodeID = id
	b.err.NodeName = name
	return b
}

// Port sets the port name.
func (b *ErrorBuilder) Port(name string) *ErrorBuilder {
	b.err.Port = name
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Causef sets a formatted cause. It supports %w.
func (b *ErrorBuilder) Causef(format string, args ...any) *ErrorBuilder {
	b.err.Cause = fmt.Errorf(format, args...)
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() *Error {
	e := b.err
	return &e
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return b.Build()
}

// NodeError attaches a node to err. An *Error keeps its kind and gains
// the node if it has none; other errors become analysis errors, or data
// errors when they wrap ErrData.
func NodeError(op string, id uuid.UUID, name string, err error) error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		if oe.NodeID != uuid.Nil {
			return err
		}
		c := *oe
		c.NodeID, c.NodeName = id, name
		return &c
	}
	b := NewError(op).Node(id, name).Cause(err)
	if errors.Is(err, ErrData) {
		return b.Data().Err()
	}
	return b.Analysis().Err()
}

// ConfigError creates a configuration error with a cause.
func ConfigError(op string, cause error) error {
	return NewError(op).Configuration().Cause(cause).Err()
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsAnalysis reports whether err is an analysis error.
func IsAnalysis(err error) bool { return errors.Is(err, ErrAnalysis) }

// IsData reports whether err is a data error.
func IsData(err error) bool { return errors.Is(err, ErrData) }
