package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoundCreated  EventType = "round_created"
	EventTypeRoundSettled  EventType = "round_settled"
	EventTypeRoundResult   EventType = "round_result"
	EventTypeBalanceChange EventType = "balance_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// Publisher accepts events for delivery. Delivery is best effort.
type Publisher interface {
	Publish(event Event) error
}

// RoundCreatedEvent announces a newly opened round
type RoundCreatedEvent struct {
	RoundID         int64     `json:"round_id"`
	Period          string    `json:"period"`
	Interval        string    `json:"interval"`
	SerialNumber    int64     `json:"serial_number"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	RemainingMs     int64     `json:"remaining_ms"`
	BettingClosesAt time.Time `json:"betting_closes_at"`
}

func (e RoundCreatedEvent) Type() EventType {
	return EventTypeRoundCreated
}

// RoundSettledEvent is sent once a round's settlement has committed. It
// carries no result so listeners can close betting before the reveal.
type RoundSettledEvent struct {
	RoundID   int64     `json:"round_id"`
	Period    string    `json:"period"`
	Interval  string    `json:"interval"`
	SettledAt time.Time `json:"settled_at"`
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}

// RoundResultEvent carries the drawn digit and settlement totals
type RoundResultEvent struct {
	RoundID      int64           `json:"round_id"`
	Period       string          `json:"period"`
	Interval     string          `json:"interval"`
	ResultNumber int             `json:"result_number"`
	Colors       []string        `json:"colors"`
	Size         string          `json:"size"`
	BetCount     int             `json:"bet_count"`
	WinnerCount  int             `json:"winner_count"`
	TotalStake   decimal.Decimal `json:"total_stake"`
	TotalPayout  decimal.Decimal `json:"total_payout"`
	SettledAt    time.Time       `json:"settled_at"`
}

func (e RoundResultEvent) Type() EventType {
	return EventTypeRoundResult
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64                  `json:"user_id"`
	OldBalance      decimal.Decimal        `json:"old_balance"`
	NewBalance      decimal.Decimal        `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    decimal.Decimal        `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching within the process
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Publish emits the event to all handlers. It never fails.
func (b *Bus) Publish(event Event) error {
	b.Emit(context.Background(), event)
	return nil
}

// Emit calls every registered handler asynchronously
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits, then hands them to the real publisher in order.
type TransactionalBus struct {
	real    Publisher
	pending []Event
}

func NewTransactionalBus(real Publisher) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish queues the event
func (b *TransactionalBus) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
	return nil
}

// Flush is called after a successful commit. Publish failures are logged and
// the remaining events are still delivered.
func (b *TransactionalBus) Flush() {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	for _, ev := range b.pending {
		if err := b.real.Publish(ev); err != nil {
			log.WithFields(log.Fields{
				"eventType": ev.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of queued events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
