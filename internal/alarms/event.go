package alarms

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roomdang/roomdang-backend/pkg/enums"
)

const (
	// maxRetryCount caps broker redelivery attempts.
	maxRetryCount = 3
	// highPriorityThreshold splits routing keys into high and normal tiers.
	highPriorityThreshold = 2

	defaultPriority = 3
)

// NotificationEvent is the wire payload for the async delivery path. Values
// are immutable once built; retries produce fresh copies via WithRetry.
type NotificationEvent struct {
	EventID    string          `json:"eventId"`
	Timestamp  time.Time       `json:"timestamp"`
	ReceiverID int64           `json:"receiverId"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	AlarmType  enums.AlarmType `json:"alarmType"`
	RelID      *int64          `json:"relId,omitempty"`
	RelURL     string          `json:"relUrl,omitempty"`
	RetryCount int             `json:"retryCount"`
	Priority   int             `json:"priority"`
}

// NewNotificationEvent fills in generated fields (event id, timestamp,
// default priority) where the caller left them zero.
func NewNotificationEvent(event NotificationEvent) NotificationEvent {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Priority == 0 {
		event.Priority = defaultPriority
	}
	return event
}

// WithRetry returns a copy carrying one more delivery attempt and a fresh
// timestamp. The receiver is left untouched.
func (e NotificationEvent) WithRetry() NotificationEvent {
	next := e
	next.RetryCount = e.RetryCount + 1
	next.Timestamp = time.Now().UTC()
	return next
}

// MaxRetryReached reports whether the event must not be redelivered again.
func (e NotificationEvent) MaxRetryReached() bool {
	return e.RetryCount >= maxRetryCount
}

// HighPriority reports whether the event lands in the high routing tier.
func (e NotificationEvent) HighPriority() bool {
	return e.Priority <= highPriorityThreshold
}

// RoutingKey derives the broker routing key from category and priority tier.
func (e NotificationEvent) RoutingKey() string {
	tier := "normal"
	if e.HighPriority() {
		tier = "high"
	}
	return fmt.Sprintf("notification.%s.%s", strings.ToLower(string(e.AlarmType)), tier)
}
