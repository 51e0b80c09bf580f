package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/rs/zerolog"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func TestBus_PublishReachesAllHandlers(t *testing.T) {
	bus := NewBus(testLogger())

	var first, second atomic.Int64
	bus.Subscribe(MessageCreated{}, func(ctx context.Context, event Event) error {
		first.Add(1)
		return nil
	})
	bus.Subscribe(MessageCreated{}, func(ctx context.Context, event Event) error {
		second.Add(1)
		return nil
	})

	bus.Publish(context.Background(), MessageCreated{MessageID: 1, SenderID: 2, ReceiverID: 3})
	bus.Wait()

	if first.Load() != 1 || second.Load() != 1 {
		t.Fatalf("expected both handlers invoked once, got %d and %d", first.Load(), second.Load())
	}
}

func TestBus_HandlerFailureDoesNotBlockSiblings(t *testing.T) {
	bus := NewBus(testLogger())

	var delivered atomic.Int64
	bus.Subscribe(PartyApplied{}, func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(PartyApplied{}, func(ctx context.Context, event Event) error {
		panic("handler exploded")
	})
	bus.Subscribe(PartyApplied{}, func(ctx context.Context, event Event) error {
		delivered.Add(1)
		return nil
	})

	bus.Publish(context.Background(), PartyApplied{PartyID: 10, ApplicantID: 20})
	bus.Wait()

	if delivered.Load() != 1 {
		t.Fatalf("expected healthy handler to run, got %d invocations", delivered.Load())
	}
}

func TestBus_PublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus(testLogger())

	bus.Publish(context.Background(), PostReplyCreated{PostID: 1})
	bus.Wait()
}

func TestBus_HandlerSurvivesCancelledPublisherContext(t *testing.T) {
	bus := NewBus(testLogger())

	errCh := make(chan error, 1)
	bus.Subscribe(PartyMemberStatusChanged{}, func(ctx context.Context, event Event) error {
		errCh <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, PartyMemberStatusChanged{PartyID: 1, MemberID: 2})
	bus.Wait()

	if err := <-errCh; err != nil {
		t.Fatalf("expected handler context to survive cancellation, got %v", err)
	}
}
