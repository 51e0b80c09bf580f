package boards

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	post  *models.Post
	reply *models.PostReply
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = 8
	f.post = post
	return nil
}

func (f *fakeRepository) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	if f.post != nil && f.post.ID == postID {
		return f.post, nil
	}
	return nil, nil
}

func (f *fakeRepository) CreateReply(ctx context.Context, reply *models.PostReply) error {
	reply.ID = 5
	f.reply = reply
	return nil
}

func testBus() *events.Bus {
	return events.NewBus(logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}))
}

func TestService_CreateReplyNotifiesPostOwner(t *testing.T) {
	bus := testBus()
	var received atomic.Pointer[events.PostReplyCreated]
	bus.Subscribe(events.PostReplyCreated{}, func(ctx context.Context, event events.Event) error {
		payload := event.(events.PostReplyCreated)
		received.Store(&payload)
		return nil
	})

	svc, err := NewService(fakeTxRunner{}, &fakeRepository{}, bus)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	post, err := svc.CreatePost(context.Background(), CreatePostParams{AuthorID: 42, Title: "Hints", Content: "any tips?"})
	if err != nil {
		t.Fatalf("unexpected post error: %v", err)
	}

	reply, err := svc.CreateReply(context.Background(), CreateReplyParams{PostID: post.ID, AuthorID: 99, Content: "try the painting"})
	if err != nil {
		t.Fatalf("unexpected reply error: %v", err)
	}
	bus.Wait()

	event := received.Load()
	if event == nil {
		t.Fatal("expected PostReplyCreated published")
	}
	if event.PostOwnerID != 42 || event.ReplyID != reply.ID || event.PostTitle != "Hints" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestService_SelfReplyDoesNotNotify(t *testing.T) {
	bus := testBus()
	var published atomic.Int64
	bus.Subscribe(events.PostReplyCreated{}, func(ctx context.Context, event events.Event) error {
		published.Add(1)
		return nil
	})

	svc, err := NewService(fakeTxRunner{}, &fakeRepository{}, bus)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	post, err := svc.CreatePost(context.Background(), CreatePostParams{AuthorID: 42, Title: "Hints", Content: "any tips?"})
	if err != nil {
		t.Fatalf("unexpected post error: %v", err)
	}
	if _, err := svc.CreateReply(context.Background(), CreateReplyParams{PostID: post.ID, AuthorID: 42, Content: "never mind"}); err != nil {
		t.Fatalf("unexpected reply error: %v", err)
	}
	bus.Wait()

	if published.Load() != 0 {
		t.Fatal("self replies must not notify")
	}
}

func TestService_CreateReplyUnknownPost(t *testing.T) {
	svc, err := NewService(fakeTxRunner{}, &fakeRepository{}, testBus())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.CreateReply(context.Background(), CreateReplyParams{PostID: 1, AuthorID: 99, Content: "hello"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
