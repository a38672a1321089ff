package collector

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ytmeta-go/pkg/api"
	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
)

// Builder assembles a Scheduler with its coordinator, key pool and a fresh
// channel cache. Validation errors are collected and reported by Build.
type Builder struct {
	keys           *api.KeyPool
	factory        api.ClientFactory
	workers        int
	commentLimit   int
	ignoreComments bool
	taskTimeout    time.Duration
	runID          string
	metrics        *metrics.Recorder
	log            *logger.Logger
	errors         []error
}

func NewBuilder() *Builder {
	return &Builder{
		workers: 8,
	}
}

func (b *Builder) WithKeyPool(keys *api.KeyPool) *Builder {
	if keys == nil || keys.IsEmpty() {
		b.errors = append(b.errors, fmt.Errorf("key pool cannot be empty"))
		return b
	}
	b.keys = keys
	return b
}

func (b *Builder) WithClientFactory(factory api.ClientFactory) *Builder {
	if factory == nil {
		b.errors = append(b.errors, fmt.Errorf("client factory cannot be nil"))
		return b
	}
	b.factory = factory
	return b
}

func (b *Builder) WithWorkers(workers int) *Builder {
	if workers <= 0 {
		b.errors = append(b.errors, fmt.Errorf("workers must be positive, got %d", workers))
		return b
	}
	if workers > 256 {
		b.errors = append(b.errors, fmt.Errorf("workers cannot exceed 256, got %d", workers))
		return b
	}
	b.workers = workers
	return b
}

// WithCommentLimit caps comments per video; zero means unlimited.
func (b *Builder) WithCommentLimit(limit int) *Builder {
	if limit < 0 {
		b.errors = append(b.errors, fmt.Errorf("comment limit cannot be negative, got %d", limit))
		return b
	}
	b.commentLimit = limit
	return b
}

func (b *Builder) WithIgnoreComments(ignore bool) *Builder {
	b.ignoreComments = ignore
	return b
}

func (b *Builder) WithTaskTimeout(d time.Duration) *Builder {
	if d < 0 {
		b.errors = append(b.errors, fmt.Errorf("task timeout cannot be negative"))
		return b
	}
	b.taskTimeout = d
	return b
}

func (b *Builder) WithRunID(id string) *Builder {
	b.runID = id
	return b
}

func (b *Builder) WithMetrics(m *metrics.Recorder) *Builder {
	b.metrics = m
	return b
}

func (b *Builder) WithLogger(l *logger.Logger) *Builder {
	b.log = l
	return b
}

func (b *Builder) Build() (*Scheduler, error) {
	if b.keys == nil && len(b.errors) == 0 {
		b.errors = append(b.errors, fmt.Errorf("key pool is required"))
	}
	if b.factory == nil && len(b.errors) == 0 {
		b.errors = append(b.errors, fmt.Errorf("client factory is required"))
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("invalid collector configuration: %w", errors.Join(b.errors...))
	}

	runID := b.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := b.log
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "scheduler", "run_id": runID})

	coordinator := NewCoordinator(b.keys, b.factory, NewChannelCache(), CoordinatorOptions{
		CommentLimit:   b.commentLimit,
		IgnoreComments: b.ignoreComments,
		Metrics:        b.metrics,
	})

	return &Scheduler{
		coordinator: coordinator,
		workers:     b.workers,
		taskTimeout: b.taskTimeout,
		runID:       runID,
		metrics:     b.metrics,
		log:         log,
	}, nil
}
