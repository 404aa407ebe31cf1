package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Task represents a unit of work to be executed
type Task func(ctx context.Context) error

// Result contains the result of a task execution
type Result struct {
	Index int   // Index of the task in the input slice
	Error error // Error if task failed
}

// Pool runs tasks on a fixed number of concurrent workers.
// Submit blocks until a slot is free, so tasks start in submission order.
type Pool struct {
	workers   int
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	results   []Result
	ctx       context.Context
}

// Config contains configuration for a worker pool
type Config struct {
	Workers int // Number of concurrent workers
}

// NewPool creates a new worker pool
func NewPool(ctx context.Context, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return &Pool{
		workers:   cfg.Workers,
		semaphore: make(chan struct{}, cfg.Workers),
		ctx:       ctx,
	}
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.workers
}

// Submit waits for a free worker slot and starts the task on it.
// It returns an error only if the pool context ends before a slot frees up.
func (p *Pool) Submit(index int, task Task) error {
	if err := p.ctx.Err(); err != nil {
		p.record(Result{Index: index, Error: err})
		return err
	}

	// Acquire semaphore (limit concurrency)
	select {
	case p.semaphore <- struct{}{}:
	case <-p.ctx.Done():
		p.record(Result{Index: index, Error: p.ctx.Err()})
		return p.ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()

		err := task(p.ctx)
		p.record(Result{Index: index, Error: err})
	}()
	return nil
}

func (p *Pool) record(r Result) {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()
}

// Wait waits for all submitted tasks to complete and returns results ordered by index
func (p *Pool) Wait() []Result {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, len(p.results))
	copy(results, p.results)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// RetryConfig contains configuration for retry logic
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry executes a function with exponential backoff
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// RateLimitedRetry combines rate limiting and retry logic
func RateLimitedRetry(ctx context.Context, limiter *rate.Limiter, cfg RetryConfig, fn func() error) error {
	return Retry(ctx, cfg, func() error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn()
	})
}
