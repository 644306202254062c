// Package audit delivers security events to one or more sinks. Delivery is
// best effort: a failing sink is logged and never fails the caller.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
)

const (
	// DefaultTimeout bounds a single sink write.
	DefaultTimeout = 2 * time.Second
	// DefaultBuffer is the number of events queued before Emit drops.
	DefaultBuffer = 1024
)

// Sink receives audit events.
type Sink interface {
	Write(ctx context.Context, e domain.AuditEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e domain.AuditEvent) error

func (f SinkFunc) Write(ctx context.Context, e domain.AuditEvent) error { return f(ctx, e) }

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e domain.AuditEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emitter is what the service layer holds. Emit only enqueues; a single
// worker writes to the sink, so a slow sink never delays the caller.
type Emitter struct {
	sink    Sink
	timeout time.Duration
	log     *slog.Logger
	onDrop  func(domain.AuditEvent)

	queue     chan queued
	done      chan struct{}
	stopped   chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	dropped   atomic.Uint64
}

type queued struct {
	ctx     context.Context
	event   domain.AuditEvent
	flushed chan struct{} // set for Flush markers only
}

// EmitterOptions tune delivery. Zero values pick the defaults.
type EmitterOptions struct {
	// Timeout bounds one sink write.
	Timeout time.Duration
	// Buffer is the queue length; events beyond it are dropped.
	Buffer int
	Logger *slog.Logger
	// OnDrop is called for every event the full queue turned away.
	OnDrop func(domain.AuditEvent)
}

// NewEmitter starts the delivery worker. Close stops it.
func NewEmitter(sink Sink, opts EmitterOptions) *Emitter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	em := &Emitter{
		sink:    sink,
		timeout: opts.Timeout,
		log:     opts.Logger,
		onDrop:  opts.OnDrop,
		queue:   make(chan queued, opts.Buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go em.run()
	return em
}

// Emit queues e. The caller's values are kept but its cancellation is not,
// so a client disconnect does not drop the event. A full queue drops it.
func (em *Emitter) Emit(ctx context.Context, e domain.AuditEvent) {
	if em == nil || em.sink == nil || em.closed.Load() {
		return
	}
	select {
	case em.queue <- queued{ctx: context.WithoutCancel(ctx), event: e}:
	case <-em.done:
	default:
		em.drop(ctx, e)
	}
}

func (em *Emitter) drop(ctx context.Context, e domain.AuditEvent) {
	em.dropped.Add(1)
	if em.onDrop != nil {
		em.onDrop(e)
	}
	em.log.WarnContext(ctx, "audit queue full, event dropped",
		"action", e.Action,
		"event_id", e.ID,
	)
}

// Dropped is the number of events turned away by a full queue.
func (em *Emitter) Dropped() uint64 {
	if em == nil {
		return 0
	}
	return em.dropped.Load()
}

// Flush waits until every event queued before the call has been written.
func (em *Emitter) Flush(ctx context.Context) error {
	if em == nil || em.closed.Load() {
		return nil
	}
	marker := queued{flushed: make(chan struct{})}
	select {
	case em.queue <- marker:
	case <-em.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-marker.flushed:
		return nil
	case <-em.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and drains the queue, giving up when ctx
// ends.
func (em *Emitter) Close(ctx context.Context) error {
	if em == nil {
		return nil
	}
	em.closeOnce.Do(func() {
		em.closed.Store(true)
		close(em.done)
	})
	select {
	case <-em.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit drain: %w", ctx.Err())
	}
}

func (em *Emitter) run() {
	defer close(em.stopped)
	for {
		select {
		case q := <-em.queue:
			em.deliver(q)
		case <-em.done:
			for {
				select {
				case q := <-em.queue:
					em.deliver(q)
				default:
					return
				}
			}
		}
	}
}

func (em *Emitter) deliver(q queued) {
	if q.flushed != nil {
		close(q.flushed)
		return
	}
	ctx, cancel := context.WithTimeout(q.ctx, em.timeout)
	defer cancel()

	if err := em.sink.Write(ctx, q.event); err != nil {
		em.log.WarnContext(ctx, "audit delivery failed",
			"action", q.event.Action,
			"event_id", q.event.ID,
			"error", err,
		)
	}
}
