package alarms

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/config"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

const connectEventName = "connect"

// Dispatcher bridges persisted alarms to the live SSE path. It holds no
// state of its own beyond the registry it fronts.
type Dispatcher struct {
	registry *Registry
	logg     *logger.Logger
	cfg      config.SSEConfig
}

func NewDispatcher(registry *Registry, logg *logger.Logger, cfg config.SSEConfig) (*Dispatcher, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "connection registry required")
	}
	return &Dispatcher{registry: registry, logg: logg, cfg: cfg}, nil
}

type connectPayload struct {
	MemberID    int64  `json:"memberId"`
	ConnectedAt string `json:"connectedAt"`
}

// Subscribe registers a fresh live stream for the member, superseding any
// prior one, and sends the connect handshake so the client knows the
// stream is live. A handshake failure tears the stream down again.
func (d *Dispatcher) Subscribe(ctx context.Context, memberID int64, emitter *Emitter) error {
	if memberID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	if emitter == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "emitter required")
	}

	d.registry.Remove(ctx, memberID)
	stored := d.registry.Save(memberID, emitter)

	handshake := connectPayload{
		MemberID:    memberID,
		ConnectedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := stored.Send(strconv.FormatInt(memberID, 10), connectEventName, handshake); err != nil {
		d.registry.evict(ctx, memberID, stored)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send connect handshake")
	}

	d.logg.Info(d.logg.WithMemberID(ctx, memberID), "sse subscription established")
	return nil
}

// Serve blocks until the client disconnects, the stream times out, or the
// emitter is superseded. Heartbeat comments keep proxies from idling the
// connection out; a failed heartbeat evicts the stream.
func (d *Dispatcher) Serve(ctx context.Context, memberID int64, emitter *Emitter) {
	timeout := d.cfg.Timeout
	if timeout <= 0 {
		timeout = time.Hour
	}
	heartbeat := d.cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.registry.evict(context.WithoutCancel(ctx), memberID, emitter)
			return
		case <-emitter.Done():
			return
		case <-deadline.C:
			d.registry.evict(ctx, memberID, emitter)
			return
		case <-ticker.C:
			if err := emitter.SendComment("heartbeat"); err != nil {
				d.registry.evict(ctx, memberID, emitter)
				return
			}
		}
	}
}

// SendNotification pushes a persisted alarm to its receiver's live stream.
// The event name is the lowercased category and the event id is the alarm
// id, so clients can resume from their last seen alarm. Registry failures
// propagate; the caller decides whether to swallow them.
func (d *Dispatcher) SendNotification(ctx context.Context, memberID int64, alarm models.Alarm) error {
	return d.registry.SendToUser(ctx, memberID, strconv.FormatInt(alarm.ID, 10), eventNameFor(alarm.AlarmType), alarm)
}

// SendEvent pushes a broker-delivered notification event, keyed by its
// event id rather than an alarm id.
func (d *Dispatcher) SendEvent(ctx context.Context, event NotificationEvent) error {
	return d.registry.SendToUser(ctx, event.ReceiverID, event.EventID, eventNameFor(event.AlarmType), event)
}

// ActiveConnectionCount exposes the registry gauge for monitoring.
func (d *Dispatcher) ActiveConnectionCount() int {
	return d.registry.ActiveConnectionCount()
}

func eventNameFor(alarmType enums.AlarmType) string {
	return strings.ToLower(string(alarmType))
}
