package alarms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/roomdang/roomdang-backend/pkg/metrics"
)

// ErrStreamSend marks a push that failed at the transport layer. The stale
// emitter has already been evicted when this surfaces.
var ErrStreamSend = errors.New("sse stream send failed")

// Registry maps a member id to their single live emitter. Independent
// members never contend; per-key operations go straight to sync.Map.
type Registry struct {
	emitters sync.Map

	logg *logger.Logger
	sse  *metrics.SSEMetrics
}

func NewRegistry(logg *logger.Logger) *Registry {
	return &Registry{logg: logg}
}

// SetMetrics attaches delivery counters. The registry works without them;
// all increments are nil-safe.
func (r *Registry) SetMetrics(sse *metrics.SSEMetrics) {
	r.sse = sse
}

// Save stores the emitter for the member, replacing any prior one. The
// replaced emitter is closed so its subscribe handler unblocks.
func (r *Registry) Save(memberID int64, emitter *Emitter) *Emitter {
	prior, replaced := r.emitters.Swap(memberID, emitter)
	if replaced {
		if old, ok := prior.(*Emitter); ok && old != emitter {
			old.Close()
		}
	}
	r.sse.IncConnectionsCreated()
	return emitter
}

// Get returns the live emitter for the member, if any.
func (r *Registry) Get(memberID int64) (*Emitter, bool) {
	value, ok := r.emitters.Load(memberID)
	if !ok {
		return nil, false
	}
	emitter, ok := value.(*Emitter)
	return emitter, ok
}

// Remove drops the member's emitter. No-op when absent.
func (r *Registry) Remove(ctx context.Context, memberID int64) {
	value, removed := r.emitters.LoadAndDelete(memberID)
	if !removed {
		return
	}
	if emitter, ok := value.(*Emitter); ok {
		emitter.Close()
	}
	if r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "member_id", memberID), "sse connection removed")
	}
}

// evict drops the member's emitter only while it is still the one that
// failed. A concurrent Save wins and must not be resurrected or removed.
func (r *Registry) evict(ctx context.Context, memberID int64, emitter *Emitter) {
	if !r.emitters.CompareAndDelete(memberID, emitter) {
		emitter.Close()
		return
	}
	emitter.Close()
	if r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "member_id", memberID), "stale sse connection evicted")
	}
}

// SendToUser pushes one named event to the member's live stream. An absent
// stream is the normal offline case: counted as failed, no error. A
// transport failure evicts the stream and surfaces ErrStreamSend.
func (r *Registry) SendToUser(ctx context.Context, memberID int64, eventID, eventName string, payload any) error {
	emitter, ok := r.Get(memberID)
	if !ok {
		r.sse.IncNotificationsFailed()
		return nil
	}

	if err := emitter.Send(eventID, eventName, payload); err != nil {
		r.sse.IncNotificationsFailed()
		r.evict(ctx, memberID, emitter)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", ErrStreamSend, err), "push notification")
	}

	r.sse.IncNotificationsSent()
	return nil
}

// ActiveConnectionCount returns the number of live streams at the instant
// of the call. Approximate under concurrent mutation; fine for a gauge.
func (r *Registry) ActiveConnectionCount() int {
	total := 0
	r.emitters.Range(func(_, _ any) bool {
		total++
		return true
	})
	return total
}
