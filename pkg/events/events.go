// Package events distributes analysis progress: an in-process bus and,
// with the nng or zmq build tags, network publishers for remote
// dashboards.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topics published by analyzers.
const (
	TopicAnalysisStarted  = "analysis.started"
	TopicNodeResolved     = "node.resolved"
	TopicGhostPass        = "ghost.pass"
	TopicAnalysisFinished = "analysis.finished"
)

// TopicAll subscribes to every topic.
const TopicAll = "*"

// ErrClosed is returned when subscribing to or publishing on a closed
// publisher.
var ErrClosed = errors.New("publisher closed")

// Event is one progress notification.
type Event struct {
	Topic     string    `json:"topic"`
	Run       uuid.UUID `json:"run"`
	Time      time.Time `json:"time"`
	Mode      string    `json:"mode,omitempty"`
	Node      string    `json:"node,omitempty"`
	NodeType  string    `json:"node_type,omitempty"`
	Direction string    `json:"direction,omitempty"`
	Pass      int       `json:"pass,omitempty"`
	Energy    float64   `json:"energy_j,omitempty"`
	Rays      int       `json:"rays,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Encode returns the wire form of an event.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses the wire form of an event.
func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher accepts events. Publish must not block the analysis.
type Publisher interface {
	Publish(e Event) error
	Close() error
}

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close() error        { return nil }

// Fanout publishes every event to all of its publishers.
type Fanout []Publisher

// Publish forwards e to every publisher and joins their errors.
func (f Fanout) Publish(e Event) error {
	var errs []error
	for _, p := range f {
		errs = append(errs, p.Publish(e))
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ErrUnsupportedTransport is returned by Open for transports not compiled
// into the binary.
var ErrUnsupportedTransport = errors.New("event transport not supported by this build")

// transports holds the network publishers compiled in with build tags.
var transports = map[string]func(addr string) (Publisher, error){}

// Open returns a network publisher for transport "nng" or "zmq".
func Open(transport, addr string) (Publisher, error) {
	open, ok := transports[transport]
	if !ok {
		return nil, fmt.Errorf("%q: %w", transport, ErrUnsupportedTransport)
	}
	return open(addr)
}
