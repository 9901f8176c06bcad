//go:build zmq

package events

import (
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

func init() {
	transports["zmq"] = func(addr string) (Publisher, error) { return NewZMQPublisher(addr) }
}

// ZMQPublisher publishes events on a ZeroMQ PUB socket as two-frame
// messages: the topic and the JSON encoded event.
type ZMQPublisher struct {
	sock *zmq.Socket
}

// NewZMQPublisher binds a PUB socket to addr, for example "tcp://*:40898".
func NewZMQPublisher(addr string) (*ZMQPublisher, error) {
	sock, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Bind(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to bind PUB socket: %w", err)
	}
	return &ZMQPublisher{sock: sock}, nil
}

func (p *ZMQPublisher) Publish(e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	if _, err := p.sock.SendMessage(e.Topic, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Topic, err)
	}
	return nil
}

func (p *ZMQPublisher) Close() error {
	return p.sock.Close()
}
