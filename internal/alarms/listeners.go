package alarms

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

const previewLimit = 50

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// preview strips embedded markup and bounds the text so alarm bodies stay
// short no matter how long the triggering content was.
func preview(content string) string {
	plain := strings.TrimSpace(markupPattern.ReplaceAllString(content, ""))
	runes := []rune(plain)
	if len(runes) <= previewLimit {
		return plain
	}
	return string(runes[:previewLimit]) + "..."
}

// Publisher is the optional broker hop between listeners and the live
// stream. Absent a broker, listeners push straight to the dispatcher.
type Publisher interface {
	Publish(ctx context.Context, event NotificationEvent) error
}

// Listeners translates domain events into persisted alarms plus a live
// push. Every failure is absorbed here; the triggering feature never
// learns about alarm trouble.
type Listeners struct {
	store      Service
	dispatcher *Dispatcher
	publisher  Publisher
	logg       *logger.Logger
}

func NewListeners(store Service, dispatcher *Dispatcher, publisher Publisher, logg *logger.Logger) *Listeners {
	return &Listeners{
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
		logg:       logg,
	}
}

// Register wires each domain event to its listener on the bus.
func (l *Listeners) Register(bus *events.Bus) {
	bus.Subscribe(events.MessageCreated{}, l.onMessageCreated)
	bus.Subscribe(events.PostReplyCreated{}, l.onPostReplyCreated)
	bus.Subscribe(events.PartyApplied{}, l.onPartyApplied)
	bus.Subscribe(events.PartyMemberStatusChanged{}, l.onPartyMemberStatusChanged)
}

func (l *Listeners) onMessageCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.(events.MessageCreated)
	if !ok {
		return nil
	}

	relID := payload.MessageID
	l.deliver(ctx, CreateParams{
		ReceiverID: payload.ReceiverID,
		Title:      "New message received",
		Content:    fmt.Sprintf("%s: %s", payload.SenderNickname, preview(payload.Content)),
		AlarmType:  enums.AlarmTypeMessage,
		RelID:      &relID,
	})
	return nil
}

func (l *Listeners) onPostReplyCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.(events.PostReplyCreated)
	if !ok {
		return nil
	}

	relID := payload.PostID
	l.deliver(ctx, CreateParams{
		ReceiverID: payload.PostOwnerID,
		Title:      "New reply on your post",
		Content:    fmt.Sprintf("\"%s\" has a new reply: %s", payload.PostTitle, preview(payload.ReplyContent)),
		AlarmType:  enums.AlarmTypePostReply,
		RelID:      &relID,
	})
	return nil
}

func (l *Listeners) onPartyApplied(ctx context.Context, event events.Event) error {
	payload, ok := event.(events.PartyApplied)
	if !ok {
		return nil
	}

	relID := payload.PartyID
	l.deliver(ctx, CreateParams{
		ReceiverID: payload.HostID,
		Title:      "New party application",
		Content:    fmt.Sprintf("%s applied to \"%s\"", payload.ApplicantNickname, preview(payload.PartyTitle)),
		AlarmType:  enums.AlarmTypeSubscribe,
		RelID:      &relID,
	})
	return nil
}

func (l *Listeners) onPartyMemberStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.(events.PartyMemberStatusChanged)
	if !ok {
		return nil
	}

	var content string
	switch payload.NewStatus {
	case enums.PartyMemberStatusAccepted:
		content = fmt.Sprintf("You were accepted to \"%s\"", preview(payload.PartyTitle))
	case enums.PartyMemberStatusCancelled, enums.PartyMemberStatusRejected:
		content = fmt.Sprintf("Your application to \"%s\" was declined", preview(payload.PartyTitle))
	default:
		return nil
	}

	relID := payload.PartyID
	l.deliver(ctx, CreateParams{
		ReceiverID: payload.MemberID,
		Title:      "Party application update",
		Content:    content,
		AlarmType:  enums.AlarmTypeSubscribe,
		RelID:      &relID,
	})
	return nil
}

// deliver persists the alarm in the store's own unit of work and then
// attempts a live push. Failures are logged with enough context to
// diagnose and never escape.
func (l *Listeners) deliver(ctx context.Context, params CreateParams) {
	ctx = l.logg.WithFields(ctx, map[string]any{
		"receiver_id": params.ReceiverID,
		"alarm_type":  params.AlarmType,
	})

	alarm, err := l.store.Create(ctx, params)
	if err != nil {
		l.logg.Error(ctx, "persist alarm failed", err)
		return
	}

	if l.publisher != nil {
		event := NewNotificationEvent(NotificationEvent{
			EventID:    strconv.FormatInt(alarm.ID, 10),
			ReceiverID: alarm.ReceiverID,
			Title:      alarm.Title,
			Content:    alarm.Content,
			AlarmType:  alarm.AlarmType,
			RelID:      alarm.RelID,
		})
		if err := l.publisher.Publish(ctx, event); err != nil {
			l.logg.Error(ctx, "publish notification event failed", err)
		}
		return
	}

	if err := l.dispatcher.SendNotification(ctx, alarm.ReceiverID, *alarm); err != nil {
		l.logg.Error(ctx, "push notification failed", err)
	}
}
