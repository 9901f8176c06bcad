//go:build nng

package events

import (
	"fmt"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

func init() {
	transports["nng"] = func(addr string) (Publisher, error) { return NewNNGPublisher(addr) }
}

// NNGPublisher publishes events on an NNG pub socket. Each message is the
// topic, a space and the JSON encoded event, so subscribers can filter by
// topic prefix.
type NNGPublisher struct {
	sock mangos.Socket
}

// NewNNGPublisher listens on addr, for example "tcp://127.0.0.1:40899".
func NewNNGPublisher(addr string) (*NNGPublisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create pub socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &NNGPublisher{sock: sock}, nil
}

func (p *NNGPublisher) Publish(e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	msg := append([]byte(e.Topic+" "), data...)
	if err := p.sock.Send(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Topic, err)
	}
	return nil
}

func (p *NNGPublisher) Close() error {
	return p.sock.Close()
}
