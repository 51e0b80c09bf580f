package alarms

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
)

// Emitter is one live SSE stream. Writes are serialized under a mutex
// because the registry may push from many goroutines at once.
type Emitter struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
	closed  bool
}

// NewEmitter prepares an SSE stream over the given response writer. The
// transport must support flushing; buffered-only writers cannot carry a
// live stream.
func NewEmitter(w http.ResponseWriter) (*Emitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Emitter{
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// Send writes one SSE frame (id, event, data) and flushes it to the client.
func (e *Emitter) Send(eventID, eventName string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("emitter closed")
	}

	if _, err := fmt.Fprintf(e.writer, "id: %s\nevent: %s\ndata: %s\n\n", eventID, eventName, payload); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	e.flusher.Flush()
	return nil
}

// SendComment writes an SSE comment line, used as a heartbeat to keep
// intermediaries from idling out the connection.
func (e *Emitter) SendComment(comment string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("emitter closed")
	}

	if _, err := fmt.Fprintf(e.writer, ": %s\n\n", comment); err != nil {
		return fmt.Errorf("write sse comment: %w", err)
	}
	e.flusher.Flush()
	return nil
}

// Done is closed once the emitter is shut down.
func (e *Emitter) Done() <-chan struct{} {
	return e.done
}

// Close marks the emitter unusable and releases anyone waiting on Done.
// Safe to call more than once.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.done)
}
