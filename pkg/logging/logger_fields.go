package logging

import (
	"time"

	"github.com/google/uuid"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func Component(name string) Field {
	return String("component", name)
}

func NodeID(id uuid.UUID) Field {
	return String("node_id", id.String())
}

func NodeName(name string) Field {
	return String("node_name", name)
}

func NodeType(t string) Field {
	return String("node_type", t)
}

func Port(name string) Field {
	return String("port", name)
}

// Mode names the analysis mode (energy, raytrace, ghostfocus).
func Mode(m string) Field {
	return String("mode", m)
}

// Pass is the ghost-focus bounce generation.
func Pass(n int) Field {
	return Int("pass", n)
}

func Rays(n int) Field {
	return Int("rays", n)
}

// Energy logs an energy value in joules.
func Energy(joules float64) Field {
	return Float64("energy_j", joules)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
