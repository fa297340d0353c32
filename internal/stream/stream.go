package stream

import (
	"context"
	"sync"
	"time"
)

// AccessEvent describes one turnstile movement for the live occupancy
// feed.
type AccessEvent struct {
	ID        string    `json:"id"`
	SedeID    int64     `json:"sede_id"`
	SocioID   int64     `json:"socio_id"`
	AccesoID  int64     `json:"acceso_id"`
	Direction string    `json:"direction"` // "entrada" or "salida"
	Aforo     int       `json:"aforo"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs access events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	ch     chan AccessEvent
	sedeID int64 // 0 subscribes to every facility
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for one facility (0 for all) and
// returns a channel which will receive events. The channel is closed
// when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context, sedeID int64) <-chan AccessEvent {
	ch := make(chan AccessEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{ch: ch, sedeID: sedeID}
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

// Publish fan-outs the event to matching subscribers. Slow consumers
// miss events rather than blocking the publisher.
func (s *Stream) Publish(evt AccessEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.sedeID != 0 && sub.sedeID != evt.SedeID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribers reports the current subscriber count.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
