package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
)

type stubPublisher struct {
	calls []int64
	err   error
}

func (p *stubPublisher) PublishWithdrawal(_ context.Context, userID int64, _ time.Time) error {
	p.calls = append(p.calls, userID)
	return p.err
}

func TestNotificationService_ForwardsWithdrawal(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &stubPublisher{}
	NewNotificationService(dispatcher, publisher, zap.NewNop()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "e1",
		Type:      events.EventUserWithdrawn,
		UserID:    7,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(publisher.calls) != 1 || publisher.calls[0] != 7 {
		t.Fatalf("expected one publish for user 7, got %v", publisher.calls)
	}
}

func TestNotificationService_PublisherFailureSwallowed(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &stubPublisher{err: errors.New("channel down")}
	NewNotificationService(dispatcher, publisher, zap.NewNop()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventUserWithdrawn,
		UserID:    7,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("publisher failure must not surface: %v", err)
	}
}
