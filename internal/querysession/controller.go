// Package querysession owns the single logical "current query" of one user.
//
// A Controller serializes every operation and every asynchronous completion
// onto one loop goroutine. Each session gets a generation number; anything
// that arrives for a generation other than the latest is dropped, which is
// what keeps a slow, superseded response from ever reaching the renderer.
package querysession

import (
	"context"
	"sync"
	"time"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/pkg/logger"
)

const module = "QUERY_SESSION"

type Options struct {
	PollInitialDelay time.Duration
	PollInterval     time.Duration
	// NoticeTimeout bounds each cancel or reset delivery. Zero disables the
	// bound.
	NoticeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInitialDelay <= 0 {
		o.PollInitialDelay = 500 * time.Millisecond
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	return o
}

// Snapshot is a consistent view of the controller taken on its loop.
type Snapshot struct {
	Generation    uint64
	Status        Status
	Active        bool
	PollerRunning bool
	Progress      ProgressState
}

type Controller struct {
	backend  Backend
	renderer Renderer
	opts     Options
	logger   logger.ILogger
	signals  *signalQueue

	// Owned by the loop goroutine.
	lastGeneration uint64
	session        *Session
	poller         *poller
	progress       ProgressState
	closed         bool

	baseCtx    context.Context
	baseCancel context.CancelFunc

	tasks     chan func()
	quit      chan struct{}
	loopDone  chan struct{}
	workers   sync.WaitGroup
	closeOnce sync.Once
}

func NewController(backend Backend, renderer Renderer, opts Options, log logger.ILogger) *Controller {
	opts = opts.withDefaults()
	baseCtx, baseCancel := context.WithCancel(context.Background())

	c := &Controller{
		backend:    backend,
		renderer:   renderer,
		opts:       opts,
		logger:     log,
		signals:    newSignalQueue(backend, opts.NoticeTimeout, log),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		tasks:      make(chan func(), 64),
		quit:       make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case task := <-c.tasks:
			task()
		case <-c.quit:
			return
		}
	}
}

func (c *Controller) post(task func()) error {
	select {
	case <-c.quit:
		return ErrClosed
	default:
	}
	select {
	case c.tasks <- task:
		return nil
	case <-c.quit:
		return ErrClosed
	}
}

// call posts task and waits until the loop has run it.
func (c *Controller) call(task func()) error {
	done := make(chan struct{})
	if err := c.post(func() { task(); close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.loopDone:
		return ErrClosed
	}
}

// StartQuery supersedes whatever is running with a new session for params.
// It returns once the request is queued; the outcome reaches the Renderer.
func (c *Controller) StartQuery(params Parameters) error {
	return c.post(func() { c.startQuery(params) })
}

// AbortCurrent cancels the active session, if any, and leaves the controller
// idle.
func (c *Controller) AbortCurrent() error {
	return c.post(c.abortCurrent)
}

func (c *Controller) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.call(func() {
		snap = Snapshot{
			Generation:    c.lastGeneration,
			Active:        c.active() != nil,
			PollerRunning: c.poller != nil,
			Progress:      c.progress,
		}
		if c.session != nil {
			snap.Status = c.session.status
		}
	})
	return snap, err
}

// Close aborts the active session, stops the poller and the loop, and
// delivers any cancel notice still queued for the backend. Later calls are
// no-ops.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		_ = c.call(c.teardown)
		close(c.quit)
		<-c.loopDone
		c.baseCancel()
		c.workers.Wait()
		c.signals.close()
	})
}

func (c *Controller) active() *Session {
	if c.session != nil && c.session.status == StatusActive {
		return c.session
	}
	return nil
}

func (c *Controller) startQuery(params Parameters) {
	if c.closed {
		return
	}
	c.cancelActive()

	c.lastGeneration++
	s := &Session{
		generation: c.lastGeneration,
		params:     params,
		status:     StatusPending,
		handle:     newNetworkHandle(c.baseCtx),
	}
	c.session = s
	c.progress = ProgressState{}

	// Queued behind any cancel issued above, so the backend sees the old
	// session's cancel before the flag is cleared for this one.
	reset := c.signals.enqueue(signalReset, s.generation, true)

	s.status = StatusActive
	c.logger.Debug(module, "Session started", map[string]interface{}{
		"generation": s.generation,
		"mode":       params.Mode,
	})
	c.renderer.Notice(s.generation, processingNotice)
	c.startPoller(s)

	c.workers.Add(1)
	go c.submit(s, reset)
}

// submit runs off the loop. It touches only the immutable parts of s.
func (c *Controller) submit(s *Session, reset <-chan error) {
	defer c.workers.Done()
	ctx := s.handle.Context()

	select {
	case err := <-reset:
		if err != nil {
			c.logger.Warn(module, "Submitting without cancellation reset", map[string]interface{}{
				"generation": s.generation,
				"error":      err.Error(),
			})
		}
	case <-ctx.Done():
	}

	var report *entity.Report
	err := ctx.Err()
	if err == nil {
		report, err = c.backend.Submit(ctx, s.params)
	}
	if s.Aborted() {
		report, err = nil, context.Canceled
	}

	_ = c.post(func() { c.onResponse(s.generation, report, err) })
}

func (c *Controller) onResponse(generation uint64, report *entity.Report, err error) {
	s := c.active()
	if generation != c.lastGeneration || s == nil || s.generation != generation {
		c.logger.Debug(module, "Discarded superseded response", map[string]interface{}{
			"generation": generation,
			"latest":     c.lastGeneration,
		})
		return
	}

	c.stopPoller()
	s.handle.release()

	switch {
	case isAbort(err):
		s.status = StatusCancelled
		c.renderer.Notice(generation, cancelledNotice)
	case err != nil:
		s.status = StatusFailed
		c.logger.Warn(module, "Query failed", map[string]interface{}{
			"generation": generation,
			"error":      err.Error(),
		})
		c.renderer.Notice(generation, failedNotice)
	case report.Empty():
		s.status = StatusCompleted
		c.renderer.Notice(generation, noDataNotice)
	default:
		s.status = StatusCompleted
		c.renderer.Render(generation, report)
	}

	c.logger.Debug(module, "Session finished", map[string]interface{}{
		"generation": generation,
		"status":     s.status.String(),
	})
}

func (c *Controller) abortCurrent() {
	if s := c.cancelActive(); s != nil {
		c.renderer.Notice(s.generation, cancelledNotice)
	}
}

// cancelActive engages both cancellation legs for the active session and
// returns it, or returns nil when nothing is active.
func (c *Controller) cancelActive() *Session {
	s := c.active()
	if s == nil {
		return nil
	}

	c.stopPoller()
	s.status = StatusCancelled
	s.handle.Abort()
	c.signals.enqueue(signalCancel, s.generation, false)

	c.logger.Debug(module, "Session cancelled", map[string]interface{}{"generation": s.generation})
	return s
}

func (c *Controller) teardown() {
	c.cancelActive()
	c.stopPoller()
	c.closed = true
}

func (c *Controller) startPoller(s *Session) {
	p := newPoller(c.baseCtx, s.generation)
	c.poller = p

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		p.run(c.backend, c.opts.PollInitialDelay, c.opts.PollInterval, func(progress entity.Progress, err error) {
			_ = c.post(func() { c.onProgress(p, progress, err) })
		})
	}()
}

func (c *Controller) stopPoller() {
	if c.poller != nil {
		c.poller.stop()
		c.poller = nil
	}
}

func (c *Controller) onProgress(p *poller, progress entity.Progress, err error) {
	s := c.active()
	if c.poller != p || s == nil || s.generation != p.generation {
		return
	}
	if err != nil {
		c.logger.Debug(module, "Progress poll failed", map[string]interface{}{
			"generation": p.generation,
			"error":      err.Error(),
		})
		return
	}

	c.progress = newProgressState(progress)
	c.renderer.Progress(s.generation, c.progress)
}
