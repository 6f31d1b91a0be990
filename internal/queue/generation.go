package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// GenerationFunc is one queued generation call.
type GenerationFunc func(ctx context.Context) (any, error)

type generationItem struct {
	ctx  context.Context
	fn   GenerationFunc
	done chan generationResult
}

type generationResult struct {
	value any
	err   error
}

// GenerationStatus is a snapshot for the status endpoint.
type GenerationStatus struct {
	QueueLength  int  `json:"queueLength"`
	IsProcessing bool `json:"isProcessing"`
}

// GenerationQueue serializes expensive generation calls so at most one runs
// at a time while any number of callers may enqueue. It is a one-place
// semaphore draining in arrival order, not a worker pool. An error from one
// call is delivered to its caller only; the queue moves on to the next item.
type GenerationQueue struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending []*generationItem
	busy    bool
}

// NewGenerationQueue creates an empty queue.
func NewGenerationQueue(logger *zap.Logger) *GenerationQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationQueue{logger: logger}
}

// Do enqueues fn and blocks until it has run and settled. Items run strictly
// in submission order; fn receives the ctx given here. Do never abandons a
// queued item: once submitted, fn will execute even if the caller's ctx
// expires first, and fn is expected to honor ctx itself.
func (g *GenerationQueue) Do(ctx context.Context, fn GenerationFunc) (any, error) {
	item := &generationItem{ctx: ctx, fn: fn, done: make(chan generationResult, 1)}

	g.mu.Lock()
	g.pending = append(g.pending, item)
	queued := len(g.pending)
	g.mu.Unlock()

	g.logger.Debug("generation call queued", zap.Int("queueLength", queued))
	g.kick()

	result := <-item.done
	return result.value, result.err
}

// Status returns the queue length and whether a call is in flight.
func (g *GenerationQueue) Status() GenerationStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GenerationStatus{QueueLength: len(g.pending), IsProcessing: g.busy}
}

// kick starts a drain pass unless one is already running or the queue is
// empty. Each pass runs exactly one item and then re-triggers.
func (g *GenerationQueue) kick() {
	g.mu.Lock()
	if g.busy || len(g.pending) == 0 {
		g.mu.Unlock()
		return
	}
	g.busy = true
	item := g.pending[0]
	g.pending = g.pending[1:]
	remaining := len(g.pending)
	g.mu.Unlock()

	go func() {
		g.logger.Debug("processing generation call", zap.Int("remaining", remaining))
		value, err := item.fn(item.ctx)
		if err != nil {
			g.logger.Warn("generation call failed", zap.Error(err))
		}
		item.done <- generationResult{value: value, err: err}

		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
		g.kick()
	}()
}
