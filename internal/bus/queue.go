package bus

import (
	"sync/atomic"
	"time"
)

// Queue is a fixed-capacity FIFO buffer between the stream consumer and the
// worker pool. Enqueue never blocks: a full queue drops the event and counts
// it, so a processing stall can never back-pressure the socket reader.
type Queue struct {
	ch    chan *Event
	stats *Stats
}

// NewQueue creates a queue with the given capacity, reporting into stats.
func NewQueue(capacity int, stats *Stats) *Queue {
	return &Queue{ch: make(chan *Event, capacity), stats: stats}
}

// TryEnqueue offers an event without blocking. Returns false (and counts a
// drop) when the queue is full.
func (q *Queue) TryEnqueue(ev *Event) bool {
	select {
	case q.ch <- ev:
		q.stats.Received.Add(1)
		return true
	default:
		q.stats.Dropped.Add(1)
		return false
	}
}

// Dequeue waits up to timeout for the next event. ok is false on timeout.
// A nil event with ok=true is the shutdown sentinel; the receiving worker
// must exit.
func (q *Queue) Dequeue(timeout time.Duration) (ev *Event, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev = <-q.ch:
		return ev, true
	case <-timer.C:
		return nil, false
	}
}

// EnqueueSentinel inserts one shutdown sentinel, blocking until there is
// room. Called once per worker during shutdown.
func (q *Queue) EnqueueSentinel() {
	q.ch <- nil
}

// Depth returns the number of buffered events.
func (q *Queue) Depth() int { return len(q.ch) }

// Capacity returns the queue's fixed capacity.
func (q *Queue) Capacity() int { return cap(q.ch) }

// Stats are the pipeline's shared counters. All fields are atomic; the
// health reporter snapshots them periodically.
type Stats struct {
	Received         atomic.Int64
	Processed        atomic.Int64
	Dropped          atomic.Int64
	ProcessingErrors atomic.Int64
}

// Snapshot is one point-in-time reading of the counters.
type Snapshot struct {
	Received         int64
	Processed        int64
	Dropped          int64
	ProcessingErrors int64
}

// Snapshot reads all counters at once.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Received:         s.Received.Load(),
		Processed:        s.Processed.Load(),
		Dropped:          s.Dropped.Load(),
		ProcessingErrors: s.ProcessingErrors.Load(),
	}
}
