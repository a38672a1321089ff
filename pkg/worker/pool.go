package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ytmeta-go/pkg/logger"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// PoolConfig holds configuration for the worker pool
type PoolConfig struct {
	Workers      int
	MaxQueueSize int
	BufferSize   int
	// TaskTimeout bounds a single Execute. Zero means no per-task timeout.
	TaskTimeout time.Duration
}

// DefaultPoolConfig returns the pool settings used by the CLIs.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:      8,
		MaxQueueSize: 256,
		BufferSize:   256,
	}
}

// ConcurrentPool runs tasks on a fixed number of goroutines and delivers a
// Result for every submitted task, in completion order, on Results().
// Results is closed once Close was called and every task finished.
type ConcurrentPool struct {
	workers     int
	taskQueue   chan Task
	resultQueue chan *Result
	wg          sync.WaitGroup
	taskTimeout time.Duration

	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool

	activeWorkers atomic.Int32
	metrics       *PoolMetrics
	log           *logger.Logger
}

func NewConcurrentPool(config PoolConfig) *ConcurrentPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxQueueSize < 0 {
		config.MaxQueueSize = 0
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}

	return &ConcurrentPool{
		workers:     config.Workers,
		taskQueue:   make(chan Task, config.MaxQueueSize),
		resultQueue: make(chan *Result, config.BufferSize),
		taskTimeout: config.TaskTimeout,
		metrics:     NewPoolMetrics(),
		log:         logger.GetLogger().WithField("component", "concurrent_pool"),
	}
}

// Start launches the workers. Tasks inherit ctx.
func (p *ConcurrentPool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.log.WithField("workers", p.workers).Debug("Starting concurrent worker pool")
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
		go func() {
			p.wg.Wait()
			close(p.resultQueue)
		}()
	})
}

// Submit queues a task, blocking while the queue is full.
func (p *ConcurrentPool) Submit(ctx context.Context, task Task) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.taskQueue <- task:
		p.metrics.IncrementTasksSubmitted()
		return nil
	case <-ctx.Done():
		p.metrics.IncrementTasksRejected()
		return fmt.Errorf("submit %s: %w", task.GetID(), ctx.Err())
	}
}

// Close stops accepting tasks. Queued tasks still run.
func (p *ConcurrentPool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.taskQueue)
	})
}

// Results returns the channel for consuming results
func (p *ConcurrentPool) Results() <-chan *Result {
	return p.resultQueue
}

// Metrics snapshots the counters together with the number of live workers.
func (p *ConcurrentPool) Metrics() MetricsSnapshot {
	snap := p.metrics.GetSnapshot()
	snap.ActiveWorkers = p.activeWorkers.Load()
	return snap
}

func (p *ConcurrentPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	p.activeWorkers.Add(1)
	defer p.activeWorkers.Add(-1)

	for task := range p.taskQueue {
		p.resultQueue <- p.processTask(ctx, id, task)
	}
}

func (p *ConcurrentPool) processTask(ctx context.Context, workerID int, task Task) *Result {
	start := time.Now()

	taskCtx := ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	err := run(taskCtx, task)

	var pe *PanicError
	if errors.As(err, &pe) {
		p.log.WithFields(map[string]interface{}{
			"task_id":   task.GetID(),
			"worker_id": workerID,
			"panic":     fmt.Sprint(pe.Value),
		}).WithStack(pe.Stack).Error("Task panicked")
	}

	var data interface{}
	if rt, ok := task.(ResultTask); ok {
		data = rt.GetResult()
	}

	result := &Result{
		TaskID:    task.GetID(),
		Success:   err == nil,
		Error:     err,
		Data:      data,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	p.metrics.RecordTaskResult(*result)
	return result
}
