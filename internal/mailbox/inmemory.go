package mailbox

import (
	"context"
	"sync"
	"time"

	"mailbridge.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Useful for
// tests and single-node deployments without Postgres.
type InMemory struct {
	mu   sync.RWMutex
	msgs []Message
	byID map[string]int // id -> index into msgs
	seq  uint64
}

// NewInMemory creates an empty mailbox store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]int)}
}

func (s *InMemory) Append(ctx context.Context, msg Message) (Message, error) {
	if msg.Owner == "" || msg.From == "" {
		return Message{}, ErrInvalidMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = ids.New()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	s.seq++
	msg.Sequence = s.seq
	s.byID[msg.ID] = len(s.msgs)
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *InMemory) List(ctx context.Context, owner string, limit int, afterSeq uint64) ([]Message, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []Message
	var last uint64
	for _, m := range s.msgs {
		if m.Owner != owner || m.Sequence <= afterSeq {
			continue
		}
		res = append(res, copyMessage(m))
		last = m.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}

func (s *InMemory) Find(ctx context.Context, owner, id string) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Message{}, ErrNotFound
	}
	m := s.msgs[idx]
	if m.Owner != owner {
		// Ownership mismatch is reported exactly like absence.
		return Message{}, ErrNotFound
	}
	return copyMessage(m), nil
}

func (s *InMemory) Delete(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok || s.msgs[idx].Owner != owner {
		return ErrNotFound
	}
	s.msgs = append(s.msgs[:idx], s.msgs[idx+1:]...)
	delete(s.byID, id)
	for i := idx; i < len(s.msgs); i++ {
		s.byID[s.msgs[i].ID] = i
	}
	return nil
}

// copyMessage deep-copies the slices so callers cannot mutate stored state.
func copyMessage(m Message) Message {
	out := m
	out.To = append([]string(nil), m.To...)
	out.Attachments = append([]Attachment(nil), m.Attachments...)
	return out
}
