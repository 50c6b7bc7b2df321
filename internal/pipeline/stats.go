package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skymarchbot/skymarch/internal/bus"
)

// Health thresholds. Crossing one raises a developer alert; the queue also
// gets an earlier warn-only level.
const (
	queueWarnRatio  = 0.80
	queueAlertRatio = 0.95
	errorAlertRatio = 0.10
	dropAlertRatio  = 0.05

	// errorRateMinSample avoids alerting on a noisy small denominator.
	errorRateMinSample = 100
)

// HealthReporter periodically logs pipeline counters and alerts the
// developer when a threshold is crossed. Each threshold fires at most once
// per reporting cycle.
type HealthReporter struct {
	queue    *bus.Queue
	stats    *bus.Stats
	notifier *Notifier
	interval time.Duration
}

// NewHealthReporter creates a reporter over the shared queue and counters.
func NewHealthReporter(queue *bus.Queue, stats *bus.Stats, notifier *Notifier, interval time.Duration) *HealthReporter {
	return &HealthReporter{queue: queue, stats: stats, notifier: notifier, interval: interval}
}

// Run reports on the configured interval until ctx is cancelled.
func (h *HealthReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Report(ctx)
		}
	}
}

// Report takes one snapshot, logs it, and raises any threshold alerts.
func (h *HealthReporter) Report(ctx context.Context) {
	snap := h.stats.Snapshot()
	depth, capacity := h.queue.Depth(), h.queue.Capacity()

	slog.Info("pipeline stats",
		"queue_depth", depth,
		"queue_capacity", capacity,
		"received", snap.Received,
		"processed", snap.Processed,
		"dropped", snap.Dropped,
		"errors", snap.ProcessingErrors,
	)

	if capacity > 0 {
		fill := float64(depth) / float64(capacity)
		switch {
		case fill >= queueAlertRatio:
			h.notifier.Alert(ctx, fmt.Sprintf("event queue at %.0f%% capacity (%d/%d); workers cannot keep up",
				fill*100, depth, capacity), "QUEUE NEAR CAPACITY")
		case fill >= queueWarnRatio:
			slog.Warn("event queue filling up", "depth", depth, "capacity", capacity)
		}
	}

	if snap.Received >= errorRateMinSample {
		errRate := float64(snap.ProcessingErrors) / float64(snap.Received)
		if errRate > errorAlertRatio {
			h.notifier.Alert(ctx, fmt.Sprintf("processing error rate %.1f%% (%d errors / %d received)",
				errRate*100, snap.ProcessingErrors, snap.Received), "HIGH ERROR RATE")
		}
	}

	if total := snap.Received + snap.Dropped; total > 0 && snap.Dropped > 0 {
		dropRate := float64(snap.Dropped) / float64(total)
		if dropRate > dropAlertRatio {
			h.notifier.Alert(ctx, fmt.Sprintf("event drop rate %.1f%% (%d dropped / %d seen)",
				dropRate*100, snap.Dropped, total), "EVENT DROP RATE")
		}
	}
}
