package memory

import (
	"context"
	"sync"
	"time"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type computationState struct {
	run           string
	cancelledRun  string
	cancelPending bool
	progress      entity.Progress
}

// ComputationStateRepository keeps per-owner run state in process memory.
// Owners that stay idle for an hour are purged.
type ComputationStateRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewComputationStateRepository() contract.ComputationStateRepository {
	return &ComputationStateRepository{
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

func (r *ComputationStateRepository) load(owner string) computationState {
	if x, found := r.cache.Get(owner); found {
		return x.(computationState)
	}
	return computationState{}
}

// update applies fn to the owner's state under the lock and stores it.
func (r *ComputationStateRepository) update(owner string, fn func(*computationState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.load(owner)
	fn(&state)
	r.cache.Set(owner, state, cache.DefaultExpiration)
}

func (r *ComputationStateRepository) BeginRun(_ context.Context, owner, runId string) (bool, error) {
	var pending bool
	r.update(owner, func(s *computationState) {
		pending = s.cancelPending
		*s = computationState{run: runId}
	})
	return pending, nil
}

func (r *ComputationStateRepository) EndRun(_ context.Context, owner, runId string) error {
	r.update(owner, func(s *computationState) {
		if s.run == runId {
			s.run = ""
		}
	})
	return nil
}

func (r *ComputationStateRepository) Cancel(_ context.Context, owner string) (string, error) {
	var cancelled string
	r.update(owner, func(s *computationState) {
		if s.run == "" {
			s.cancelPending = true
			return
		}
		cancelled = s.run
		s.cancelledRun = s.run
		s.progress = entity.Progress{}
	})
	return cancelled, nil
}

func (r *ComputationStateRepository) ClearPendingCancel(_ context.Context, owner string) error {
	r.update(owner, func(s *computationState) {
		s.cancelPending = false
	})
	return nil
}

func (r *ComputationStateRepository) IsCancelled(_ context.Context, owner, runId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.load(owner)
	return s.run != runId || s.cancelledRun == runId, nil
}

func (r *ComputationStateRepository) SetProgress(_ context.Context, owner, runId string, progress entity.Progress) error {
	r.update(owner, func(s *computationState) {
		if s.run == runId && s.cancelledRun != runId {
			s.progress = progress
		}
	})
	return nil
}

func (r *ComputationStateRepository) GetProgress(_ context.Context, owner string) (entity.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(owner).progress, nil
}
