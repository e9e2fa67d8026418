// Package broadcast fans candidates out to their resolved recipients without
// letting any one slow client stall the producer that detected the event.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivankia/aeternal/internal/eventbus"
	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/domain"
)

// Matcher resolves a candidate to the clients that must receive it. It must
// return promptly; it is bounded by a lock acquisition, never by a client's
// responsiveness.
type Matcher interface {
	Recipients(candidate domain.Candidate) []domain.Client
}

// Options represents dispatcher configuration options
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// DefaultOptions returns default dispatcher options
func DefaultOptions() Options {
	return Options{
		Workers:     20,
		QueueSize:   1024,
		SendTimeout: 5 * time.Second,
	}
}

type task struct {
	client  domain.Client
	message []byte
}

// Dispatcher is a fixed-size worker pool performing per-client sends. One
// task is queued per recipient per broadcast; a failed or slow delivery
// affects nobody but its own task.
type Dispatcher struct {
	matcher  Matcher
	tasks    chan task
	options  Options
	logger   *logging.Logger
	eventBus eventbus.Bus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Statistics
	broadcasts int64
	sent       int64
	failed     int64
	startTime  time.Time
}

// NewDispatcher creates a dispatcher delivering to clients resolved by the
// matcher.
func NewDispatcher(matcher Matcher, logger *logging.Logger, eventBus eventbus.Bus, options Options) *Dispatcher {
	if options.Workers <= 0 {
		options.Workers = DefaultOptions().Workers
	}
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultOptions().QueueSize
	}
	if options.SendTimeout <= 0 {
		options.SendTimeout = DefaultOptions().SendTimeout
	}

	return &Dispatcher{
		matcher:   matcher,
		tasks:     make(chan task, options.QueueSize),
		options:   options,
		logger:    logger,
		eventBus:  eventBus,
		startTime: time.Now(),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)

	for i := 0; i < d.options.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	d.logger.Info("dispatcher started", "workers", d.options.Workers)
}

// Stop stops the worker pool. Queued tasks are abandoned.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// Broadcast resolves the candidate's recipients and queues one delivery task
// per recipient. It returns once every task is queued; it never waits for a
// delivery to complete and never reports individual delivery failures to the
// caller. When the queue is full, submission blocks rather than drops.
func (d *Dispatcher) Broadcast(candidate domain.Candidate) error {
	recipients := d.matcher.Recipients(candidate)
	if len(recipients) == 0 {
		return nil
	}

	message, err := domain.EncodeEnvelope(candidate)
	if err != nil {
		return err
	}

	for _, client := range recipients {
		select {
		case d.tasks <- task{client: client, message: message}:
		case <-d.ctx.Done():
			return domain.ErrDispatcherStopped
		}
	}

	atomic.AddInt64(&d.broadcasts, 1)

	d.logger.Debug("broadcast queued",
		"subscription", candidate.Category.String(),
		"recipients", len(recipients),
	)

	if d.eventBus != nil {
		event := eventbus.NewEvent(
			eventbus.EventBroadcastDispatched,
			"dispatcher",
			map[string]any{
				"subscription": candidate.Category.String(),
				"recipients":   len(recipients),
			},
		)
		d.eventBus.PublishAsync(event)
	}

	return nil
}

// worker delivers queued tasks one at a time. Each attempt is bounded by the
// send timeout so a stalled connection releases its worker slot.
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case t := <-d.tasks:
			d.deliver(t)
		}
	}
}

// deliver performs one send attempt. Failures are logged and reported to the
// event bus, never escalated, never retried.
func (d *Dispatcher) deliver(t task) {
	ctx, cancel := context.WithTimeout(d.ctx, d.options.SendTimeout)
	err := t.client.Send(ctx, t.message)
	cancel()

	if err != nil {
		atomic.AddInt64(&d.failed, 1)

		d.logger.Error("failed to send to client",
			"client_id", string(t.client.ID()),
			"error", err,
		)

		if d.eventBus != nil {
			event := eventbus.NewEvent(
				eventbus.EventDeliveryFailed,
				"dispatcher",
				map[string]string{
					"client_id": string(t.client.ID()),
					"error":     err.Error(),
				},
			)
			d.eventBus.PublishAsync(event)
		}
		return
	}

	atomic.AddInt64(&d.sent, 1)
}

// Stats provides statistics about the dispatcher
type Stats struct {
	Broadcasts       int64   `json:"broadcasts"`
	DeliveriesSent   int64   `json:"deliveries_sent"`
	DeliveriesFailed int64   `json:"deliveries_failed"`
	Uptime           float64 `json:"uptime_seconds"`
}

// GetStats returns dispatcher statistics
func (d *Dispatcher) GetStats() Stats {
	return Stats{
		Broadcasts:       atomic.LoadInt64(&d.broadcasts),
		DeliveriesSent:   atomic.LoadInt64(&d.sent),
		DeliveriesFailed: atomic.LoadInt64(&d.failed),
		Uptime:           time.Since(d.startTime).Seconds(),
	}
}
