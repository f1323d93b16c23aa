package utils

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs jobs on a bounded number of goroutines.
type WorkerPool struct {
	group *errgroup.Group
	ctx   context.Context
}

// NewWorkerPool creates a WorkerPool running at most maxWorkers jobs at once.
// The returned context is cancelled when a job returns an error or the parent
// is cancelled.
func NewWorkerPool(ctx context.Context, maxWorkers int) (*WorkerPool, context.Context) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	return &WorkerPool{group: g, ctx: gctx}, gctx
}

// Submit schedules job, blocking while the pool is full. Jobs submitted after
// the pool context is done are skipped and Submit returns false.
func (wp *WorkerPool) Submit(job func(ctx context.Context) error) bool {
	if wp.ctx.Err() != nil {
		return false
	}
	wp.group.Go(func() error {
		if err := wp.ctx.Err(); err != nil {
			return err
		}
		return job(wp.ctx)
	})
	return true
}

// Wait blocks until all submitted jobs have completed and returns the first
// job error, if any.
func (wp *WorkerPool) Wait() error {
	return wp.group.Wait()
}

// IDSet is a thread-safe set for tracking claimed participant IDs.
type IDSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewIDSet creates an empty IDSet.
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[string]struct{})}
}

// Add returns true if the ID was newly added, false if already present.
func (s *IDSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Size returns the number of unique IDs tracked.
func (s *IDSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
