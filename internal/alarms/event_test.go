package alarms

import (
	"testing"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/enums"
)

func TestNotificationEvent_Defaults(t *testing.T) {
	event := NewNotificationEvent(NotificationEvent{
		ReceiverID: 7,
		Title:      "title",
		Content:    "content",
		AlarmType:  enums.AlarmTypeMessage,
	})

	if event.EventID == "" {
		t.Fatal("expected generated event id")
	}
	if event.Timestamp.IsZero() {
		t.Fatal("expected generated timestamp")
	}
	if event.Priority != 3 {
		t.Fatalf("expected default priority 3, got %d", event.Priority)
	}
	if event.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", event.RetryCount)
	}
}

func TestNotificationEvent_WithRetryDoesNotMutateOriginal(t *testing.T) {
	original := NewNotificationEvent(NotificationEvent{
		ReceiverID: 7,
		AlarmType:  enums.AlarmTypeSubscribe,
		Timestamp:  time.Now().UTC().Add(-time.Minute),
	})

	retried := original.WithRetry()

	if original.RetryCount != 0 {
		t.Fatalf("original retry count mutated to %d", original.RetryCount)
	}
	if retried.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", retried.RetryCount)
	}
	if !retried.Timestamp.After(original.Timestamp) {
		t.Fatal("expected refreshed timestamp on retry copy")
	}
	if retried.EventID != original.EventID {
		t.Fatal("retry copy must keep the event id")
	}
}

func TestNotificationEvent_MaxRetryReached(t *testing.T) {
	event := NotificationEvent{RetryCount: 2}
	if event.MaxRetryReached() {
		t.Fatal("retry count 2 must not be classified max-retry")
	}
	if !event.WithRetry().MaxRetryReached() {
		t.Fatal("retry count 3 must be classified max-retry")
	}
}

func TestNotificationEvent_RoutingKey(t *testing.T) {
	cases := []struct {
		name     string
		event    NotificationEvent
		expected string
	}{
		{
			name:     "high priority message",
			event:    NotificationEvent{AlarmType: enums.AlarmTypeMessage, Priority: 1},
			expected: "notification.message.high",
		},
		{
			name:     "normal priority message",
			event:    NotificationEvent{AlarmType: enums.AlarmTypeMessage, Priority: 4},
			expected: "notification.message.normal",
		},
		{
			name:     "boundary priority is high",
			event:    NotificationEvent{AlarmType: enums.AlarmTypePartyApply, Priority: 2},
			expected: "notification.party_apply.high",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.RoutingKey(); got != tc.expected {
				t.Fatalf("expected routing key %q, got %q", tc.expected, got)
			}
		})
	}
}
