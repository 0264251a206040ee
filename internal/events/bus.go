package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is the envelope written to the journal and delivered to subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// Sink receives every emitted event. The journal implements this.
type Sink interface {
	Append(ev Event) error
}

// Bus handles event emission: it logs each event, appends it to the
// configured sinks and fans it out to in-process subscribers (the SSE
// stream). Subscribers with full channels are skipped rather than blocking
// an entry point.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	sinks       []Sink
	log         zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[int]chan Event),
		log:         log.With().Str("service", "events").Logger(),
	}
}

// AddSink registers a sink that receives every event.
func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Emit builds the envelope for data, journals it and delivers it.
func (b *Bus) Emit(data EventData) Event {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	payload, _ := json.Marshal(data)
	b.log.Info().
		Str("event_type", string(ev.Type)).
		Str("event_id", ev.ID).
		RawJSON("event", payload).
		Msg("Event emitted")

	b.mu.RLock()
	sinks := b.sinks
	subs := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Append(ev); err != nil {
			b.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to journal event")
		}
	}

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn().Str("event_type", string(ev.Type)).Msg("Subscriber channel full, event dropped")
		}
	}

	return ev
}

// Subscribe returns a channel receiving all subsequent events and an
// unsubscribe function.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}

	return ch, cancel
}
