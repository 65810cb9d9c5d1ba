// Package notify carries settlement outcomes to the outside world. The engine
// emits Events to a Sink after each commit; the durable Outbox sink stores
// them in Postgres, and the Dispatcher fans them out to Kafka and live
// websocket subscribers.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType names a settlement outcome.
type EventType string

const (
	EntryEliminated       EventType = "entry.eliminated"
	EntryWon              EventType = "entry.won"
	EntryLost             EventType = "entry.lost"
	InstanceCompleted     EventType = "instance.completed"
	InstanceRoundAdvanced EventType = "instance.round_advanced"
)

// Event is one outcome notification.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	InstanceID string         `json:"game_instance_id"`
	EntryID    string         `json:"entry_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Round      int            `json:"round,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps a fresh id and time.
func NewEvent(t EventType, instanceID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		InstanceID: instanceID,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink receives events. Delivery failures are reported to the caller but
// never roll back settled state.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, []Event) error { return nil }

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
