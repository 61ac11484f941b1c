package stream

import (
	"context"
	"sync"
	"time"
)

// DeliveryEvent announces a message landing in a mailbox. It carries only
// envelope metadata; subscribers fetch bodies through the API.
type DeliveryEvent struct {
	Owner      string    `json:"owner"`
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

type subscriber struct {
	owner string
	ch    chan DeliveryEvent
}

// Stream fan-outs delivery events to active subscribers (SSE clients). Each
// subscriber only receives events for its own mailbox.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for the given owner and returns a channel
// which will receive that owner's events. The channel is closed when the
// provided context ends.
func (s *Stream) Subscribe(ctx context.Context, owner string) <-chan DeliveryEvent {
	ch := make(chan DeliveryEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{owner: owner, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to the owner's subscribers.
func (s *Stream) Publish(evt DeliveryEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.owner != evt.Owner {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking delivery.
		}
	}
}
