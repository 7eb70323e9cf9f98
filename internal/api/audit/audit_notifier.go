package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-logistics-backoffice/app/observability/metrics"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const writeTimeout = 5 * time.Second

// Notifier is the one-way audit channel. Notify never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, event types.AuditEvent)
}

var (
	_ Notifier = (*SyncNotifier)(nil)
	_ Notifier = (*AsyncNotifier)(nil)
)

// stamp fills the identity fields the caller leaves empty.
func stamp(event types.AuditEvent) types.AuditEvent {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return event
}

// SyncNotifier writes inline and logs sink failures instead of returning them.
type SyncNotifier struct {
	sink   Sink
	logger *slog.Logger
}

func NewSyncNotifier(sink Sink, logger *slog.Logger) *SyncNotifier {
	return &SyncNotifier{sink: sink, logger: logger}
}

func (n *SyncNotifier) Notify(ctx context.Context, event types.AuditEvent) {
	event = stamp(event)
	// the request may already be cancelled; the audit row must still land
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := n.sink.Write(writeCtx, event); err != nil {
		metrics.Get().AuditEventsDropped.Add(ctx, 1)
		n.logger.ErrorContext(ctx, "Failed to write audit event",
			slog.String("event_type", string(event.EventType)),
			slog.Any("error", err))
		return
	}
	metrics.Get().AuditEventsTotal.Add(ctx, 1)
}

// AsyncNotifier hands events to a single background writer through a bounded
// buffer. Events are dropped when the buffer is full or the notifier is closed;
// every event is either written or counted in Dropped.
type AsyncNotifier struct {
	sink    Sink
	logger  *slog.Logger
	ch      chan types.AuditEvent
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	// mu orders sends against Close so nothing lands in ch after the drain.
	mu     sync.RWMutex
	closed bool
}

func NewAsyncNotifier(sink Sink, bufferSize int, logger *slog.Logger) *AsyncNotifier {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	n := &AsyncNotifier{
		sink:   sink,
		logger: logger,
		ch:     make(chan types.AuditEvent, bufferSize),
		done:   make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *AsyncNotifier) run() {
	defer n.wg.Done()
	for {
		select {
		case event := <-n.ch:
			n.write(event)
		case <-n.done:
			for {
				select {
				case event := <-n.ch:
					n.write(event)
				default:
					return
				}
			}
		}
	}
}

func (n *AsyncNotifier) write(event types.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := n.sink.Write(ctx, event); err != nil {
		metrics.Get().AuditEventsDropped.Add(ctx, 1)
		n.logger.Error("Failed to write audit event",
			slog.String("event_type", string(event.EventType)),
			slog.Any("error", err))
		return
	}
	metrics.Get().AuditEventsTotal.Add(ctx, 1)
}

func (n *AsyncNotifier) Notify(ctx context.Context, event types.AuditEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.drop(ctx, event, "Audit notifier closed, event dropped")
		return
	}
	select {
	case n.ch <- stamp(event):
	default:
		n.drop(ctx, event, "Audit buffer full, event dropped")
	}
}

func (n *AsyncNotifier) drop(ctx context.Context, event types.AuditEvent, msg string) {
	n.dropped.Add(1)
	metrics.Get().AuditEventsDropped.Add(ctx, 1)
	n.logger.WarnContext(ctx, msg, slog.String("event_type", string(event.EventType)))
}

// Close stops accepting events and drains the buffer. Later calls are no-ops.
func (n *AsyncNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.done)
	n.mu.Unlock()

	n.wg.Wait()
}

func (n *AsyncNotifier) Dropped() uint64 {
	return n.dropped.Load()
}
