// Package enrich runs background enrichment requests on a fixed set of workers.
// Jobs are fire-and-forget: a failed job is logged and never retried.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrPoolClosed = errors.New("enrichment pool closed")
	ErrQueueFull  = errors.New("enrichment queue full")
)

// Job is one background request.
type Job func(ctx context.Context) error

type task struct {
	name string
	job  Job
}

type Pool struct {
	tasks   chan task
	wg      sync.WaitGroup
	workers int
	log     *slog.Logger

	closeMu sync.RWMutex
	closed  bool
}

func NewPool(workers, queue int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 16
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		tasks:   make(chan task, queue),
		workers: workers,
		log:     log,
	}
}

// Start launches the workers. They exit when ctx is done or Close is called.
func (p *Pool) Start(ctx context.Context) {
	for range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					p.run(ctx, t)
				}
			}
		}()
	}
}

func (p *Pool) run(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("background job panicked", "job", t.name, "panic", r)
		}
	}()
	if err := t.job(ctx); err != nil {
		p.log.Error("background job failed", "job", t.name, "error", err)
	}
}

// Submit queues job without blocking. A full queue drops the job.
func (p *Pool) Submit(name string, job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task{name: name, job: job}:
		return nil
	default:
		p.log.Warn("dropping background job", "job", name, "reason", "queue full")
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.closeMu.Unlock()
	p.wg.Wait()
}
