package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults match the buffering of the audit log: flush every 30s or at 10 events.
const (
	DefaultQueueSize     = 1024
	DefaultBatchSize     = 10
	DefaultFlushInterval = 30 * time.Second

	writeTimeout = 5 * time.Second
)

// Config sizes the dispatcher.
type Config struct {
	// QueueSize bounds events waiting for delivery, including a failed batch
	// held for retry.
	QueueSize int
	// BatchSize triggers an early flush.
	BatchSize int
	// FlushInterval is the periodic flush and retry period.
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > c.QueueSize {
		c.BatchSize = c.QueueSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	return c
}

// Dispatcher buffers events and hands them to a Writer in batches.
type Dispatcher struct {
	cfg Config
	w   Writer
	log *slog.Logger
	now func() time.Time

	queue    chan Event
	flushNow chan chan struct{}
	stop     chan struct{}
	done     chan struct{}

	closed   atomic.Bool
	closeMu  sync.Mutex
	dropped  atomic.Uint64
	written  atomic.Uint64
	failures atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher starts a dispatcher writing to w.
func NewDispatcher(cfg Config, w Writer, log *slog.Logger, opts ...Option) *Dispatcher {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	d := &Dispatcher{
		cfg:      cfg,
		w:        w,
		log:      log.With("component", "audit_dispatcher"),
		now:      func() time.Time { return time.Now().UTC() },
		queue:    make(chan Event, cfg.QueueSize),
		flushNow: make(chan chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	go d.loop()
	return d
}

// Record implements session.AuditSink. It never blocks.
func (d *Dispatcher) Record(action, userID string, details map[string]any) {
	if d.closed.Load() {
		d.drop(1, "closed")
		return
	}

	now := d.now()
	ev := Event{
		ID:        newEventID(now),
		Action:    action,
		UserID:    userID,
		Details:   copyDetails(details),
		CreatedAt: now,
	}
	select {
	case d.queue <- ev:
	default:
		d.drop(1, "queue_full")
	}
}

// Dropped returns the number of events discarded so far.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Written returns the number of events handed successfully to the Writer.
func (d *Dispatcher) Written() uint64 { return d.written.Load() }

// WriteFailures returns the number of failed batch writes.
func (d *Dispatcher) WriteFailures() uint64 { return d.failures.Load() }

// Flush asks the loop to write everything queued so far and waits for the
// attempt to finish or ctx to end.
func (d *Dispatcher) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case d.flushNow <- ack:
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, drains the queue with a final write and waits
// for the loop to exit or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeMu.Lock()
	if d.closed.Load() {
		d.closeMu.Unlock()
		return ErrClosed
	}
	d.closed.Store(true)
	close(d.stop)
	d.closeMu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	var (
		pending []Event
		failing bool
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := d.write(pending); err != nil {
			failing = true
			pending = d.trim(pending)
			return
		}
		failing = false
		pending = pending[:0]
	}

	for {
		select {
		case ev := <-d.queue:
			pending = append(pending, ev)
			if failing {
				pending = d.trim(pending)
			} else if len(pending) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case ack := <-d.flushNow:
			pending = d.drain(pending)
			flush()
			close(ack)
		case <-d.stop:
			pending = d.drain(pending)
			flush()
			if len(pending) > 0 {
				d.drop(len(pending), "shutdown")
			}
			return
		}
	}
}

func (d *Dispatcher) drain(pending []Event) []Event {
	for {
		select {
		case ev := <-d.queue:
			pending = append(pending, ev)
		default:
			return pending
		}
	}
}

func (d *Dispatcher) write(batch []Event) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.failures.Add(1)
			d.log.Error("audit.write.panic", "panic", r)
			err = errWriterPanic
		}
	}()

	if err := d.w.Write(ctx, batch); err != nil {
		d.failures.Add(1)
		d.log.Warn("audit.write.fail", "err", err, "batch", len(batch))
		return err
	}
	d.written.Add(uint64(len(batch)))
	d.log.Debug("audit.write.ok", "batch", len(batch))
	return nil
}

// trim caps a retained batch at the queue capacity, dropping the oldest.
func (d *Dispatcher) trim(pending []Event) []Event {
	over := len(pending) - d.cfg.QueueSize
	if over <= 0 {
		return pending
	}
	d.drop(over, "retry_overflow")
	return append(pending[:0], pending[over:]...)
}

func (d *Dispatcher) drop(n int, reason string) {
	total := d.dropped.Add(uint64(n))
	// Log the first drop and then every 100th to keep a failing sink quiet.
	if total == uint64(n) || total%100 < uint64(n) {
		d.log.Warn("audit.event.dropped", "reason", reason, "count", n, "total", total)
	}
}
