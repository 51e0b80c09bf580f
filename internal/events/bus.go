package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/roomdang/roomdang-backend/pkg/enums"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

// Event is the closed set of domain events the bus carries. Only the
// types declared in this package implement it.
type Event interface {
	EventName() string
}

// MessageCreated fires after a direct message is committed.
type MessageCreated struct {
	MessageID        int64
	SenderID         int64
	SenderNickname   string
	ReceiverID       int64
	ReceiverNickname string
	Content          string
}

func (MessageCreated) EventName() string { return "message.created" }

// PostReplyCreated fires after a board reply is committed.
type PostReplyCreated struct {
	ReplyID      int64
	PostID       int64
	PostTitle    string
	PostOwnerID  int64
	ReplyContent string
}

func (PostReplyCreated) EventName() string { return "post.reply.created" }

// PartyApplied fires after a member's application to a party is committed.
type PartyApplied struct {
	PartyID           int64
	PartyTitle        string
	HostID            int64
	ApplicantID       int64
	ApplicantNickname string
}

func (PartyApplied) EventName() string { return "party.applied" }

// PartyMemberStatusChanged fires after a host accepts or rejects an applicant.
type PartyMemberStatusChanged struct {
	PartyID      int64
	PartyTitle   string
	MemberID     int64
	HostID       int64
	HostNickname string
	NewStatus    enums.PartyMemberStatus
}

func (PartyMemberStatusChanged) EventName() string { return "party.member.status.changed" }

// Handler consumes a single event. Handlers own their failure modes; an
// error returned here is logged and never reaches the publisher.
type Handler func(ctx context.Context, event Event) error

// Bus fans domain events out to subscribed handlers. Each handler runs
// on its own goroutine so a slow or failing handler cannot stall the
// publishing transaction or its sibling handlers.
type Bus struct {
	logg *logger.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler

	wg sync.WaitGroup
}

func NewBus(logg *logger.Logger) *Bus {
	return &Bus{
		logg:     logg,
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the given event type. Registration
// happens during startup; it is not safe to race with Publish.
func (b *Bus) Subscribe(event Event, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	name := event.EventName()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish delivers the event to every subscribed handler asynchronously.
// The caller's context is not propagated; handlers get a detached context
// so request cancellation cannot abort side effects already committed.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	subscribed := b.handlers[event.EventName()]
	b.mu.RUnlock()

	if len(subscribed) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range subscribed {
		b.wg.Add(1)
		go b.dispatch(detached, event, handler)
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, handler Handler) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logg.Error(ctx, "event handler panicked", fmt.Errorf("panic: %v", r))
		}
	}()

	ctx = b.logg.WithField(ctx, "event", event.EventName())
	if err := handler(ctx, event); err != nil {
		b.logg.Error(ctx, "event handler failed", err)
	}
}

// Wait blocks until all in-flight handlers finish. Used on shutdown and
// in tests.
func (b *Bus) Wait() {
	b.wg.Wait()
}
