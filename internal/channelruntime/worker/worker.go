package worker

import (
	"context"
	"sync"
)

// Pool runs one goroutine per key, so jobs sharing a key execute in
// order while distinct keys proceed in parallel. A shared semaphore
// bounds how many handlers run at once across all keys.
type Pool[J any] struct {
	mu      sync.Mutex
	workers map[string]chan J

	ctx    context.Context
	sem    chan struct{}
	buffer int
	handle func(context.Context, string, J)
}

type PoolOptions[J any] struct {
	Ctx            context.Context
	MaxConcurrency int
	QueueSize      int
	Handle         func(ctx context.Context, key string, job J)
}

func NewPool[J any](opts PoolOptions[J]) *Pool[J] {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Pool[J]{
		workers: make(map[string]chan J),
		ctx:     ctx,
		sem:     make(chan struct{}, maxConcurrency),
		buffer:  queueSize,
		handle:  opts.Handle,
	}
}

// Dispatch hands a job to the worker owning key, starting the worker on
// first use. It blocks while the key's queue is full and fails once ctx
// or the pool context is done.
func (p *Pool[J]) Dispatch(ctx context.Context, key string, job J) error {
	if ctx == nil {
		ctx = p.ctx
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}
	jobs := p.getOrStart(key)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case jobs <- job:
		return nil
	}
}

func (p *Pool[J]) getOrStart(key string) chan J {
	p.mu.Lock()
	defer p.mu.Unlock()
	if jobs, ok := p.workers[key]; ok {
		return jobs
	}
	jobs := make(chan J, p.buffer)
	p.workers[key] = jobs
	go p.run(key, jobs)
	return jobs
}

func (p *Pool[J]) run(key string, jobs <-chan J) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-jobs:
			select {
			case p.sem <- struct{}{}:
			case <-p.ctx.Done():
				return
			}
			func() {
				defer func() { <-p.sem }()
				p.handle(p.ctx, key, job)
			}()
		}
	}
}
