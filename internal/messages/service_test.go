package messages

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	paginationpkg "github.com/roomdang/roomdang-backend/pkg/pagination"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	createFn func(ctx context.Context, message *models.Message) error
	listFn   func(ctx context.Context, params listMessagesParams) ([]models.Message, *paginationpkg.Cursor, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, message *models.Message) error {
	if f.createFn != nil {
		return f.createFn(ctx, message)
	}
	message.ID = 11
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listMessagesParams) ([]models.Message, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

type fakeMembers map[int64]string

func (f fakeMembers) Nickname(ctx context.Context, memberID int64) (string, error) {
	nickname, ok := f[memberID]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return nickname, nil
}

func testBus() *events.Bus {
	return events.NewBus(logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}))
}

func TestService_SendPublishesAfterCommit(t *testing.T) {
	bus := testBus()
	var received atomic.Pointer[events.MessageCreated]
	bus.Subscribe(events.MessageCreated{}, func(ctx context.Context, event events.Event) error {
		payload := event.(events.MessageCreated)
		received.Store(&payload)
		return nil
	})

	svc, err := NewService(fakeTxRunner{}, &fakeRepository{}, fakeMembers{2: "Kai", 3: "Zoe"}, bus)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	message, err := svc.Send(context.Background(), SendParams{SenderID: 2, ReceiverID: 3, Content: "hello"})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	bus.Wait()

	event := received.Load()
	if event == nil {
		t.Fatal("expected MessageCreated published")
	}
	if event.MessageID != message.ID {
		t.Fatalf("expected message id %d, got %d", message.ID, event.MessageID)
	}
	if event.SenderNickname != "Kai" || event.ReceiverNickname != "Zoe" {
		t.Fatalf("unexpected nicknames in event: %+v", event)
	}
}

func TestService_SendValidation(t *testing.T) {
	svc, err := NewService(fakeTxRunner{}, &fakeRepository{}, fakeMembers{}, testBus())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	cases := []struct {
		name   string
		params SendParams
	}{
		{"missing sender", SendParams{ReceiverID: 3, Content: "hi"}},
		{"missing receiver", SendParams{SenderID: 2, Content: "hi"}},
		{"self message", SendParams{SenderID: 2, ReceiverID: 2, Content: "hi"}},
		{"blank content", SendParams{SenderID: 2, ReceiverID: 3, Content: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Send(context.Background(), tc.params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestService_SendFailedPersistDoesNotPublish(t *testing.T) {
	bus := testBus()
	var published atomic.Int64
	bus.Subscribe(events.MessageCreated{}, func(ctx context.Context, event events.Event) error {
		published.Add(1)
		return nil
	})

	repo := &fakeRepository{
		createFn: func(ctx context.Context, message *models.Message) error {
			return pkgerrors.New(pkgerrors.CodeDependency, "db down")
		},
	}
	svc, err := NewService(fakeTxRunner{}, repo, fakeMembers{2: "Kai", 3: "Zoe"}, bus)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Send(context.Background(), SendParams{SenderID: 2, ReceiverID: 3, Content: "hi"}); err == nil {
		t.Fatal("expected persistence error")
	}
	bus.Wait()

	if published.Load() != 0 {
		t.Fatal("no event may be published when the write failed")
	}
}
