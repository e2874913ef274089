package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcher_DeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var first, second int
	d.Subscribe(EventUserWithdrawn, func(_ context.Context, _ Event) error {
		first++
		return errors.New("boom")
	})
	d.Subscribe(EventUserWithdrawn, func(_ context.Context, _ Event) error {
		second++
		return nil
	})

	err := d.Publish(context.Background(), Event{
		ID:        "e1",
		Type:      EventUserWithdrawn,
		UserID:    1,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if first != 1 || second != 1 {
		t.Fatalf("expected both handlers invoked despite first failing, got %d/%d", first, second)
	}
}

func TestDispatcher_IgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()

	var calls int
	d.Subscribe(EventUserRegistered, func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventUserWithdrawn, UserID: 1}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("handler for a different event type was invoked")
	}
}
