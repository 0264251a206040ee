package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
)

// Invoker receives the payload of a due self-invocation.
type Invoker func(payload []byte)

// registration is one booked deferred invocation.
type registration struct {
	handle  domain.ScheduleHandle
	slot    time.Time
	payload []byte
}

// SlotScheduler is an in-memory implementation of domain.DeferredScheduler.
// Execution happens in discrete slots; slot fees vary deterministically with
// the slot index so the cheapest-slot search is observable in tests. Due
// registrations are dispatched by a cron tick once Start is called, or
// manually through FireDue.
type SlotScheduler struct {
	mu           sync.Mutex
	slotInterval time.Duration
	searchSlots  int
	baseCost     uint64
	costStep     uint64
	nextHandle   domain.ScheduleHandle
	pending      []registration
	invoker      Invoker
	cron         *cron.Cron
	log          zerolog.Logger
}

// NewSlotScheduler creates a slot scheduler. searchSlots bounds the quote
// search window; fees are baseCost plus a per-slot congestion component of
// up to costStep*4.
func NewSlotScheduler(slotInterval time.Duration, searchSlots int, baseCost, costStep uint64, log zerolog.Logger) *SlotScheduler {
	if searchSlots < 1 {
		searchSlots = 1
	}
	return &SlotScheduler{
		slotInterval: slotInterval,
		searchSlots:  searchSlots,
		baseCost:     baseCost,
		costStep:     costStep,
		nextHandle:   1,
		log:          log.With().Str("component", "slot_scheduler").Logger(),
	}
}

// SetInvoker wires the callback receiving due payloads. Must be set before
// Start.
func (s *SlotScheduler) SetInvoker(inv Invoker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoker = inv
}

// Quote finds the cheapest slot in the search window starting at notBefore.
func (s *SlotScheduler) Quote(_ context.Context, notBefore time.Time, _ uint64) (domain.ScheduleQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.slotAfter(notBefore)
	best := domain.ScheduleQuote{Slot: first, Cost: s.slotCost(first)}
	for i := 1; i < s.searchSlots; i++ {
		slot := first.Add(time.Duration(i) * s.slotInterval)
		if cost := s.slotCost(slot); cost < best.Cost {
			best = domain.ScheduleQuote{Slot: slot, Cost: cost}
		}
	}
	return best, nil
}

// Register books a deferred invocation at the quoted slot.
func (s *SlotScheduler) Register(_ context.Context, quote domain.ScheduleQuote, _ uint64, payload []byte) (domain.ScheduleHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quote.Slot.IsZero() {
		return 0, fmt.Errorf("quote has no slot")
	}

	handle := s.nextHandle
	s.nextHandle++

	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.pending = append(s.pending, registration{handle: handle, slot: quote.Slot, payload: buf})

	s.log.Debug().
		Uint64("handle", uint64(handle)).
		Time("slot", quote.Slot).
		Uint64("cost", quote.Cost).
		Msg("Deferred invocation registered")

	return handle, nil
}

// Start begins dispatching due registrations on a cron tick.
func (s *SlotScheduler) Start() {
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return
	}
	s.cron = cron.New(cron.WithSeconds())
	s.mu.Unlock()

	_, err := s.cron.AddFunc("@every 1s", func() {
		s.FireDue(time.Now())
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to register dispatch tick")
		return
	}
	s.cron.Start()
	s.log.Info().Dur("slot_interval", s.slotInterval).Msg("Slot scheduler started")
}

// Stop halts dispatching.
func (s *SlotScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Slot scheduler stopped")
	}
}

// FireDue dispatches every registration whose slot is at or before now.
// Exposed for deterministic tests.
func (s *SlotScheduler) FireDue(now time.Time) {
	s.mu.Lock()
	var due []registration
	var remaining []registration
	for _, reg := range s.pending {
		if !reg.slot.After(now) {
			due = append(due, reg)
		} else {
			remaining = append(remaining, reg)
		}
	}
	s.pending = remaining
	inv := s.invoker
	s.mu.Unlock()

	if inv == nil {
		return
	}
	for _, reg := range due {
		s.log.Debug().Uint64("handle", uint64(reg.handle)).Msg("Dispatching deferred invocation")
		inv(reg.payload)
	}
}

// PendingCount returns the number of registrations not yet dispatched.
func (s *SlotScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// slotAfter aligns t up to the next slot boundary.
func (s *SlotScheduler) slotAfter(t time.Time) time.Time {
	interval := int64(s.slotInterval)
	aligned := (t.UnixNano()/interval + 1) * interval
	return time.Unix(0, aligned)
}

// slotCost is a deterministic congestion model: cost cycles with the slot
// index so neighbouring slots have different fees.
func (s *SlotScheduler) slotCost(slot time.Time) uint64 {
	index := uint64(slot.UnixNano() / int64(s.slotInterval))
	return s.baseCost + (index%5)*s.costStep
}
