package events

import (
	"context"
	"sync"
)

// Bus is an in-process publisher. Subscribers receive events of their
// topic on a buffered channel; events are dropped for subscribers whose
// buffer is full.
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	buffer      int
}

// Subscription receives the events of one topic.
type Subscription struct {
	topic     string
	channel   chan Event
	bus       *Bus
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewBus returns a bus whose subscriptions buffer the given number of
// events. A non-positive buffer uses 256.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
		buffer:      buffer,
	}
}

func (b *Bus) closed() bool {
	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	return b.isShutdown
}

// Subscribe registers a subscription to topic, or to all topics with
// TopicAll. It ends when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	if b.closed() {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Event, b.buffer),
		bus:     b,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers e to the subscribers of its topic and of TopicAll.
// The subscriber set is copied so that no lock is held while sending.
func (b *Bus) Publish(e Event) error {
	if b.closed() {
		return ErrClosed
	}

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscribers[e.Topic])+len(b.subscribers[TopicAll]))
	for sub := range b.subscribers[e.Topic] {
		subs = append(subs, sub)
	}
	for sub := range b.subscribers[TopicAll] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.channel <- e:
		default:
		}
	}
	return nil
}

// SubscriberCount returns the number of subscribers of a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Close ends all subscriptions. Closing twice is a no-op.
func (b *Bus) Close() error {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic, subs := range b.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
	return nil
}

// Events returns the channel of the subscription. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.channel
}

// Unsubscribe ends the subscription.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if subs := s.bus.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
