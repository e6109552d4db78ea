package service

import (
	"context"
	"sync"
)

// activeRun is a Submit in flight on this instance.
type activeRun struct {
	id     string
	cancel context.CancelFunc
}

// runRegistry holds at most one active run per owner. Starting a run
// cancels the owner's previous one.
type runRegistry struct {
	mu   sync.Mutex
	runs map[string]*activeRun
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*activeRun)}
}

func (r *runRegistry) start(owner string, run *activeRun) {
	r.mu.Lock()
	prev := r.runs[owner]
	r.runs[owner] = run
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
}

func (r *runRegistry) finish(owner, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[owner]; ok && run.id == id {
		delete(r.runs, owner)
	}
}

// cancel stops the owner's active run and reports whether there was one.
func (r *runRegistry) cancel(owner string) bool {
	r.mu.Lock()
	run := r.runs[owner]
	r.mu.Unlock()

	if run == nil {
		return false
	}
	run.cancel()
	return true
}
