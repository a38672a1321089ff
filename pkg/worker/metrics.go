package worker

import (
	"sync/atomic"
	"time"
)

// PoolMetrics tracks worker pool counters with lock-free atomics.
type PoolMetrics struct {
	TasksSubmitted atomic.Uint64
	TasksCompleted atomic.Uint64
	TasksFailed    atomic.Uint64
	TasksPanicked  atomic.Uint64
	TasksRejected  atomic.Uint64

	TotalDuration atomic.Uint64 // nanoseconds
	MaxDuration   atomic.Uint64 // nanoseconds

	StartTime time.Time
}

func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{StartTime: time.Now()}
}

func (pm *PoolMetrics) IncrementTasksSubmitted() {
	pm.TasksSubmitted.Add(1)
}

func (pm *PoolMetrics) IncrementTasksRejected() {
	pm.TasksRejected.Add(1)
}

// RecordTaskResult records the result of task execution
func (pm *PoolMetrics) RecordTaskResult(result Result) {
	if result.Error != nil {
		pm.TasksFailed.Add(1)
		if _, ok := result.Error.(*PanicError); ok {
			pm.TasksPanicked.Add(1)
		}
	} else {
		pm.TasksCompleted.Add(1)
	}

	nanos := uint64(result.Duration.Nanoseconds())
	pm.TotalDuration.Add(nanos)
	for {
		current := pm.MaxDuration.Load()
		if nanos <= current || pm.MaxDuration.CompareAndSwap(current, nanos) {
			break
		}
	}
}

// GetSnapshot returns a snapshot of current metrics
func (pm *PoolMetrics) GetSnapshot() MetricsSnapshot {
	completed := pm.TasksCompleted.Load()
	failed := pm.TasksFailed.Load()
	finished := completed + failed

	var avg time.Duration
	if finished > 0 {
		avg = time.Duration(pm.TotalDuration.Load() / finished)
	}
	var successRate float64
	if finished > 0 {
		successRate = float64(completed) / float64(finished)
	}

	return MetricsSnapshot{
		TasksSubmitted:  pm.TasksSubmitted.Load(),
		TasksCompleted:  completed,
		TasksFailed:     failed,
		TasksPanicked:   pm.TasksPanicked.Load(),
		TasksRejected:   pm.TasksRejected.Load(),
		SuccessRate:     successRate,
		AverageDuration: avg,
		MaxDuration:     time.Duration(pm.MaxDuration.Load()),
		Uptime:          time.Since(pm.StartTime),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TasksSubmitted  uint64        `json:"tasks_submitted"`
	TasksCompleted  uint64        `json:"tasks_completed"`
	TasksFailed     uint64        `json:"tasks_failed"`
	TasksPanicked   uint64        `json:"tasks_panicked"`
	TasksRejected   uint64        `json:"tasks_rejected"`
	ActiveWorkers   int32         `json:"active_workers"`
	SuccessRate     float64       `json:"success_rate"`
	AverageDuration time.Duration `json:"average_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	Uptime          time.Duration `json:"uptime"`
}
