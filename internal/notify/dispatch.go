package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultDispatchInterval = 30 * time.Second
	DefaultBatchSize        = 100
	DefaultMaxAttempts      = 10
)

// Queue is the dispatcher's view of the outbox.
type Queue interface {
	ClaimDue(ctx context.Context, limit int, maxAttempts int) ([]Claimed, error)
	MarkSent(ctx context.Context, seqs []int64) error
	MarkFailed(ctx context.Context, seqs []int64, reason string, maxAttempts int) error
}

// DispatchConfig tunes the dispatch loop.
type DispatchConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Dispatcher delivers outbox events to downstream sinks. It polls on an
// interval and can be woken early by Wake (the listener calls it on NOTIFY).
type Dispatcher struct {
	queue  Queue
	target Sink
	cfg    DispatchConfig
	wake   chan struct{}
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher that publishes claimed events to target.
func NewDispatcher(queue Queue, target Sink, cfg DispatchConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultDispatchInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Dispatcher{
		queue:  queue,
		target: target,
		cfg:    cfg,
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Wake asks the loop to dispatch now. Never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run dispatches until ctx is cancelled. Intended to be called with `go`.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Event dispatcher started", "interval", d.cfg.Interval)
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-d.wake:
		case <-ctx.Done():
			d.logger.Info("Event dispatcher stopped")
			return
		}

		sent, failed, err := d.DrainOnce(ctx)
		if err != nil {
			d.logger.Error("Dispatch error", "error", err)
		} else if sent+failed > 0 {
			d.logger.Info("Dispatch batch", "sent", sent, "failed", failed)
		}
	}
}

// DrainOnce claims one batch and publishes it. A batch is delivered as a
// whole: on a sink error every claimed event goes back to the queue.
func (d *Dispatcher) DrainOnce(ctx context.Context) (sent, failed int, err error) {
	claimed, err := d.queue.ClaimDue(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, 0, err
	}
	if len(claimed) == 0 {
		return 0, 0, nil
	}

	events := make([]Event, len(claimed))
	seqs := make([]int64, len(claimed))
	for i, c := range claimed {
		events[i] = c.Event
		seqs[i] = c.Seq
	}

	if perr := d.target.Publish(ctx, events); perr != nil {
		d.logger.Warn("Publish failed", "events", len(events), "error", perr)
		if err := d.queue.MarkFailed(ctx, seqs, truncate(perr.Error(), 500), d.cfg.MaxAttempts); err != nil {
			return 0, len(claimed), fmt.Errorf("mark failed: %w", err)
		}
		return 0, len(claimed), nil
	}

	if err := d.queue.MarkSent(ctx, seqs); err != nil {
		return len(claimed), 0, fmt.Errorf("mark sent: %w", err)
	}
	return len(claimed), 0, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
