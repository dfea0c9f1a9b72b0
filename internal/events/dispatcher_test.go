package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherInvokesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	d.Subscribe(EventUserApproved, func(ctx context.Context, event Event) error {
		seen = append(seen, event.Email)
		return nil
	})
	d.Subscribe(EventUserApproved, func(ctx context.Context, event Event) error {
		seen = append(seen, event.Email)
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventUserApproved, Email: "a@x.com"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("handlers invoked %d times, want 2", len(seen))
	}
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	ran := false
	d.Subscribe(EventUserRejected, func(ctx context.Context, event Event) error {
		return errors.New("handler failed")
	})
	d.Subscribe(EventUserRejected, func(ctx context.Context, event Event) error {
		ran = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventUserRejected}); err != nil {
		t.Fatalf("Publish surfaced a handler error: %v", err)
	}
	if !ran {
		t.Fatal("later handler skipped after earlier failure")
	}
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()
	ran := false
	d.Subscribe(EventUserCreated, func(ctx context.Context, event Event) error {
		ran = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventUserSuspended}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ran {
		t.Fatal("handler invoked for unrelated event type")
	}
}
