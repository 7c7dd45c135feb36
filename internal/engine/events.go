package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"solswap-engine/internal/model"
)

// EventKind tags what happened during one loop iteration.
type EventKind string

const (
	EventTick     EventKind = "tick"
	EventOrder    EventKind = "order"
	EventPosition EventKind = "position"
	EventBalance  EventKind = "balance"
	EventError    EventKind = "error"
)

// Event is one observation the loop publishes for ambient consumers
// (internal/tui, and cmd/engine's stats adapter behind internal/statusapi)
// to read without ever blocking the loop.
type Event struct {
	Kind     EventKind
	At       time.Time
	Tick     *model.TickerData
	Order    *model.Order
	Position *model.Position
	Balance  *decimal.Decimal
	Err      error
}

// eventBus is a bounded, drop-oldest fan-out of one channel. The loop
// never blocks on a slow or absent consumer: a full channel drops its
// oldest pending event to make room, matching the teacher's TUI message
// channels (internal/tui/model.go sends on buffered channels and ignores
// a full one) generalized to drop-oldest rather than drop-newest, since a
// stale tick is less useful to an operator dashboard than the latest one.
type eventBus struct {
	ch chan Event
}

func newEventBus(size int) *eventBus {
	if size <= 0 {
		size = 64
	}
	return &eventBus{ch: make(chan Event, size)}
}

func (b *eventBus) publish(ev Event) {
	for {
		select {
		case b.ch <- ev:
			return
		default:
		}
		select {
		case <-b.ch:
		default:
		}
	}
}

// Events returns the channel ambient consumers read from.
func (e *Engine) Events() <-chan Event {
	return e.events.ch
}
