package alarms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/roomdang/roomdang-backend/pkg/metrics"
	"github.com/rs/zerolog"
)

// brokenWriter fails every write, standing in for a client whose pipe broke.
type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = http.Header{}
	}
	return b.header
}

func (b *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func (b *brokenWriter) WriteHeader(int) {}

func (b *brokenWriter) Flush() {}

func registryLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func newTestEmitter(t *testing.T, w http.ResponseWriter) *Emitter {
	t.Helper()
	emitter, err := NewEmitter(w)
	if err != nil {
		t.Fatalf("unexpected emitter error: %v", err)
	}
	return emitter
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRegistry_SaveReplacesPriorEmitter(t *testing.T) {
	registry := NewRegistry(registryLogger())

	firstRecorder := httptest.NewRecorder()
	first := registry.Save(42, newTestEmitter(t, firstRecorder))

	secondRecorder := httptest.NewRecorder()
	second := registry.Save(42, newTestEmitter(t, secondRecorder))

	current, ok := registry.Get(42)
	if !ok || current != second {
		t.Fatal("expected latest emitter to be stored")
	}

	select {
	case <-first.Done():
	default:
		t.Fatal("expected replaced emitter to be closed")
	}

	if err := registry.SendToUser(context.Background(), 42, "1", "message", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if firstRecorder.Body.Len() != 0 {
		t.Fatal("push must not reach the replaced emitter")
	}
	if secondRecorder.Body.Len() == 0 {
		t.Fatal("push must reach the current emitter")
	}
}

func TestRegistry_SendFailureEvictsEmitter(t *testing.T) {
	registry := NewRegistry(registryLogger())
	reg := prometheus.NewRegistry()
	registry.SetMetrics(metrics.NewSSEMetrics(reg, registry.ActiveConnectionCount))

	registry.Save(42, newTestEmitter(t, &brokenWriter{}))

	err := registry.SendToUser(context.Background(), 42, "1", "message", map[string]string{"k": "v"})
	if err == nil {
		t.Fatal("expected delivery error for broken stream")
	}
	if !errors.Is(err, ErrStreamSend) {
		t.Fatalf("expected ErrStreamSend, got %v", err)
	}

	if _, ok := registry.Get(42); ok {
		t.Fatal("expected broken emitter to be evicted")
	}
	if got := counterValue(t, reg, "notifications_failed_total"); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
}

func TestRegistry_SendToOfflineUserIsNotAnError(t *testing.T) {
	registry := NewRegistry(registryLogger())
	reg := prometheus.NewRegistry()
	registry.SetMetrics(metrics.NewSSEMetrics(reg, registry.ActiveConnectionCount))

	if err := registry.SendToUser(context.Background(), 99, "1", "message", nil); err != nil {
		t.Fatalf("offline user must not produce an error, got %v", err)
	}

	if got := counterValue(t, reg, "notifications_failed_total"); got != 1 {
		t.Fatalf("expected failed counter 1, got %v", got)
	}
	if got := counterValue(t, reg, "notifications_sent_total"); got != 0 {
		t.Fatalf("expected sent counter 0, got %v", got)
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	registry := NewRegistry(registryLogger())

	registry.Save(42, newTestEmitter(t, httptest.NewRecorder()))
	registry.Remove(context.Background(), 42)
	registry.Remove(context.Background(), 42)

	if _, ok := registry.Get(42); ok {
		t.Fatal("expected emitter removed")
	}
	if registry.ActiveConnectionCount() != 0 {
		t.Fatalf("expected no active connections, got %d", registry.ActiveConnectionCount())
	}
}
