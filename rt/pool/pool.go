package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

var (
	// ErrClosed indicates the pool has been shut down.
	ErrClosed = errors.New("pool: closed")
	// ErrInvalidSize indicates a worker count below 1.
	ErrInvalidSize = errors.New("pool: invalid size")
)

// MaxWorkers is the largest accepted worker count.
const MaxWorkers = 1024

// Task is a unit of work. ctx is canceled only when a Shutdown deadline expires.
type Task func(ctx context.Context)

type config struct {
	queueSize int
	logger    *log.Logger
}

// Option configures a Pool.
type Option func(*config)

// WithQueueSize sets the capacity of the task queue. Default is 1024.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithLogger sets the logger used to report task panics.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Pool is a resizable worker pool.
type Pool struct {
	name string
	log  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// qmu guards closed against senders registering in senders.
	qmu     sync.RWMutex
	queue   chan Task
	closed  atomic.Bool
	closing chan struct{}
	senders sync.WaitGroup

	// mu serializes Resize.
	mu     sync.Mutex
	target int
	retire chan struct{}

	wg        sync.WaitGroup
	live      atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// New creates a pool with the given number of workers and starts them.
func New(name string, workers int, opts ...Option) (*Pool, error) {
	if err := checkSize(workers); err != nil {
		return nil, err
	}
	cfg := config{queueSize: 1024}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:   name,
		log:    cfg.logger.With("pool", name),
		ctx:    ctx,
		cancel: cancel,
		queue:   make(chan Task, cfg.queueSize),
		closing: make(chan struct{}),
		retire:  make(chan struct{}, MaxWorkers),
		target:  workers,
	}
	for i := 0; i < workers; i++ {
		p.spawn()
	}
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Size returns the target worker count.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Workers returns the number of live workers.
func (p *Pool) Workers() int { return int(p.live.Load()) }

// Pending returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int { return len(p.queue) }

// Completed returns the number of tasks that finished, including panicked ones.
func (p *Pool) Completed() int64 { return p.completed.Load() }

// Resize changes the target worker count to n.
func (p *Pool) Resize(n int) error {
	if err := checkSize(n); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}

	diff := n - p.target
	p.target = n
	switch {
	case diff > 0:
		// Cancel retirements that no worker has picked up yet before starting new workers.
		for diff > 0 {
			select {
			case <-p.retire:
				diff--
				continue
			default:
			}
			break
		}
		for ; diff > 0; diff-- {
			p.spawn()
		}
	case diff < 0:
		for ; diff < 0; diff++ {
			p.retire <- struct{}{}
		}
	}
	p.log.Debug("resized", "workers", n)
	return nil
}

// Submit enqueues t, blocking while the queue is full. A Submit blocked when
// Shutdown starts returns ErrClosed.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	if t == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.qmu.RLock()
	if p.closed.Load() {
		p.qmu.RUnlock()
		return ErrClosed
	}
	p.senders.Add(1)
	p.qmu.RUnlock()
	defer p.senders.Done()

	select {
	case p.queue <- t:
		return nil
	case <-p.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues t without blocking. It returns false if the queue is full or
// the pool is closed.
func (p *Pool) TrySubmit(t Task) bool {
	if t == nil {
		return false
	}
	p.qmu.RLock()
	defer p.qmu.RUnlock()
	if p.closed.Load() {
		return false
	}
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting tasks and waits until the queue is drained and all
// workers exited.
func (p *Pool) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	p.qmu.Lock()
	first := !p.closed.Swap(true)
	if first {
		close(p.closing)
	}
	p.qmu.Unlock()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if first {
			p.senders.Wait()
			close(p.queue)
		}
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) spawn() {
	p.wg.Add(1)
	p.live.Add(1)
	go p.work()
}

func (p *Pool) work() {
	defer p.wg.Done()
	defer p.live.Add(-1)
	for {
		select {
		case <-p.retire:
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(t)
		}
	}
}

func (p *Pool) run(t Task) {
	defer p.completed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.log.Error("task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	t(p.ctx)
}

func checkSize(n int) error {
	if n < 1 || n > MaxWorkers {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidSize, n, MaxWorkers)
	}
	return nil
}
