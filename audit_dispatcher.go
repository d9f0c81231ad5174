package authstate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// auditDispatcher moves events from Engine operations to a sink on one
// background goroutine. A nil dispatcher is inert.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	// mu guards closed and the send side of queue.
	mu       sync.RWMutex
	closed   bool
	queue    chan AuditEvent
	finished chan struct{}
	dropped  atomic.Uint64
}

// auditRecord is what an Engine operation knows about an event; the
// dispatcher stamps id and time.
type auditRecord struct {
	kind    string
	success bool
	userID  string
	email   string
	err     error
	meta    map[string]string
}

// newAuditDispatcher returns nil when audit is disabled or there is no sink.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled || sink == nil {
		return nil
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		finished:   make(chan struct{}),
	}
	go d.drain()
	return d
}

// drain delivers until Close closes the queue, then returns.
func (d *auditDispatcher) drain() {
	defer close(d.finished)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

func (d *auditDispatcher) record(ctx context.Context, r auditRecord) {
	if d == nil {
		return
	}
	d.Emit(ctx, AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: r.kind,
		UserID:    r.userID,
		Email:     r.email,
		Success:   r.success,
		Error:     string(auditErrorCode(r.err)),
		Metadata:  r.meta,
	})
}

// Emit queues event. With dropIfFull a full queue drops the event; otherwise
// Emit waits for room or for ctx. Events after Close are discarded.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, waits for queued events to reach the sink and is
// idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.finished
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
