package stack

import (
	"log/slog"
	"sync"
)

// DeliverFunc hands one outcome to the host system.
type DeliverFunc func(o Outcome) error

// AsyncHost delivers outcomes on its own goroutine so the scheduler never
// blocks on the host. Deliveries keep report order. A full queue drops the
// report, and failed deliveries are logged and not retried.
type AsyncHost struct {
	deliver DeliverFunc
	logger  *slog.Logger

	mu     sync.RWMutex
	queue  chan Outcome
	closed bool
	doneCh chan struct{}
}

// NewAsyncHost starts a delivery worker with room for size pending outcomes.
func NewAsyncHost(deliver DeliverFunc, logger *slog.Logger, size int) *AsyncHost {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 100
	}
	h := &AsyncHost{
		deliver: deliver,
		logger:  logger,
		queue:   make(chan Outcome, size),
		doneCh:  make(chan struct{}),
	}
	go h.run()
	return h
}

// ReportOutcome queues o without blocking.
func (h *AsyncHost) ReportOutcome(o Outcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		h.logger.Debug("outcome after host shutdown discarded", "id", o.ID)
		return
	}

	select {
	case h.queue <- o:
	default:
		h.logger.Warn("outcome queue full, dropping report",
			"id", o.ID,
			"effect", o.Effect,
			"trigger", o.Trigger,
		)
	}
}

// Close stops accepting outcomes and waits for queued ones to be delivered.
func (h *AsyncHost) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()

	<-h.doneCh
}

func (h *AsyncHost) run() {
	defer close(h.doneCh)
	for o := range h.queue {
		if err := h.deliver(o); err != nil {
			h.logger.Warn("failed to deliver outcome",
				"id", o.ID,
				"effect", o.Effect,
				"trigger", o.Trigger,
				"error", err,
			)
		}
	}
}
