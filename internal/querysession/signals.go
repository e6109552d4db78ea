package querysession

import (
	"context"
	"sync"
	"time"

	"dota-report-be/internal/pkg/logger"
)

type signalKind int

const (
	signalCancel signalKind = iota
	signalReset
)

func (k signalKind) String() string {
	if k == signalCancel {
		return "cancel"
	}
	return "reset"
}

type signal struct {
	kind       signalKind
	generation uint64
	ack        chan error // nil for fire-and-forget signals
}

// signalQueue delivers cancel and reset messages to the backend strictly in
// the order they were enqueued, one at a time. A reset enqueued after a
// cancel can therefore never overtake it on the wire.
type signalQueue struct {
	backend Backend
	timeout time.Duration
	logger  logger.ILogger

	mu      sync.Mutex
	pending []signal
	closed  bool

	wake     chan struct{}
	quit     chan struct{}
	finished chan struct{}
}

func newSignalQueue(backend Backend, timeout time.Duration, log logger.ILogger) *signalQueue {
	q := &signalQueue{
		backend:  backend,
		timeout:  timeout,
		logger:   log,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go q.run()
	return q
}

// enqueue never blocks. The returned channel, when requested, receives the
// delivery result exactly once.
func (q *signalQueue) enqueue(kind signalKind, generation uint64, wantAck bool) <-chan error {
	s := signal{kind: kind, generation: generation}
	if wantAck {
		s.ack = make(chan error, 1)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if s.ack != nil {
			s.ack <- ErrClosed
		}
		return s.ack
	}
	q.pending = append(q.pending, s)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return s.ack
}

func (q *signalQueue) next() (signal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return signal{}, false
	}
	s := q.pending[0]
	q.pending = q.pending[1:]
	return s, true
}

func (q *signalQueue) run() {
	defer close(q.finished)
	for {
		for {
			s, ok := q.next()
			if !ok {
				break
			}
			q.deliver(s)
		}

		select {
		case <-q.wake:
		case <-q.quit:
			// Whatever was enqueued before close still goes out.
			for {
				s, ok := q.next()
				if !ok {
					return
				}
				q.deliver(s)
			}
		}
	}
}

func (q *signalQueue) deliver(s signal) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	var err error
	switch s.kind {
	case signalCancel:
		err = q.backend.Cancel(ctx)
	case signalReset:
		err = q.backend.ResetCancel(ctx)
	}

	if err != nil {
		q.logger.Warn("QUERY_SESSION", "Backend signal not delivered", map[string]interface{}{
			"signal":     s.kind.String(),
			"generation": s.generation,
			"error":      err.Error(),
		})
	} else {
		q.logger.Debug("QUERY_SESSION", "Backend signal delivered", map[string]interface{}{
			"signal":     s.kind.String(),
			"generation": s.generation,
		})
	}

	if s.ack != nil {
		s.ack <- err
	}
}

// close stops accepting signals, delivers the ones already queued and waits
// for the worker to finish.
func (q *signalQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.finished
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.quit)
	<-q.finished
}
