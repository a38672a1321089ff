package collector

import (
	"context"
	"sync"
	"time"

	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
	"ytmeta-go/pkg/model"
	"ytmeta-go/pkg/worker"
)

// Scheduler fans targets out over a bounded worker pool and merges what
// comes back in completion order. Per-target failures are logged and
// counted; they never stop the run.
type Scheduler struct {
	coordinator *Coordinator
	workers     int
	taskTimeout time.Duration
	runID       string
	metrics     *metrics.Recorder
	log         *logger.Logger
}

func (s *Scheduler) RunID() string { return s.runID }

func (s *Scheduler) Coordinator() *Coordinator { return s.coordinator }

// Run resolves every video target and returns the merged collection.
func (s *Scheduler) Run(ctx context.Context, targets []model.Target) *Collection {
	coll := newCollection(s.runID)
	progress := logger.NewProgressReporter(len(targets), "Collecting video metadata").WithLogger(s.log)

	tasks := make([]worker.Task, len(targets))
	for i, t := range targets {
		tasks[i] = newFetchTask(s.coordinator, t)
	}

	coll.Summary.Pool = s.fanOut(ctx, tasks, func(r *worker.Result, task worker.Task) {
		res, _ := r.Data.(*Result)
		if res == nil {
			res = &Result{Target: task.(*fetchTask).target}
		}
		if !res.Outcome.Terminal() {
			res.Outcome = model.OutcomeEntityError
			res.Err = r.Error
		}

		s.logOutcome(res.Target, res.Outcome, res.Err)
		s.metrics.TargetResolved(res.Outcome.String())
		coll.add(res)
		progress.Update(1)
	})

	if n := coll.fillChannels(s.coordinator.Channels()); n > 0 {
		s.log.WithField("channels", n).Debug("Channels recovered from cache")
	}
	coll.Summary.FinishedAt = time.Now()
	coll.Summary.ExhaustedKeys = keyNames(s.coordinator)
	s.logSummary(&coll.Summary)
	return coll
}

// Discover lists videos for every channel or keyword target.
func (s *Scheduler) Discover(ctx context.Context, sources []model.Target) ([]*Discovery, Summary) {
	summary := Summary{RunID: s.runID, Stage: "discover", StartedAt: time.Now()}
	progress := logger.NewProgressReporter(len(sources), "Discovering videos").WithLogger(s.log)

	tasks := make([]worker.Task, len(sources))
	for i, t := range sources {
		tasks[i] = newDiscoverTask(s.coordinator, t)
	}

	var out []*Discovery
	summary.Pool = s.fanOut(ctx, tasks, func(r *worker.Result, task worker.Task) {
		d, _ := r.Data.(*Discovery)
		if d == nil {
			d = &Discovery{Source: task.(*discoverTask).target}
		}
		if !d.Outcome.Terminal() {
			d.Outcome = model.OutcomeEntityError
			d.Err = r.Error
		}

		s.logOutcome(d.Source, d.Outcome, d.Err)
		summary.Record(d.Source, d.Outcome)
		out = append(out, d)
		progress.Update(1)
	})

	summary.FinishedAt = time.Now()
	summary.ExhaustedKeys = keyNames(s.coordinator)
	s.logSummary(&summary)
	return out, summary
}

// fanOut feeds tasks from a separate goroutine and drains results on the
// caller's goroutine, so onResult needs no locking. Tasks that could not be
// submitted are reported with a nil Data and the submit error.
func (s *Scheduler) fanOut(ctx context.Context, tasks []worker.Task, onResult func(*worker.Result, worker.Task)) worker.MetricsSnapshot {
	pool := worker.NewConcurrentPool(worker.PoolConfig{
		Workers:      s.workers,
		MaxQueueSize: s.workers * 2,
		BufferSize:   s.workers * 2,
		TaskTimeout:  s.taskTimeout,
	})
	pool.Start(ctx)

	byID := make(map[string]worker.Task, len(tasks))
	for _, t := range tasks {
		byID[t.GetID()] = t
	}

	var mu sync.Mutex
	var rejected []*worker.Result
	var rejectedTasks []worker.Task

	go func() {
		defer pool.Close()
		for _, t := range tasks {
			if err := pool.Submit(ctx, t); err != nil {
				mu.Lock()
				rejected = append(rejected, &worker.Result{TaskID: t.GetID(), Error: err, Timestamp: time.Now()})
				rejectedTasks = append(rejectedTasks, t)
				mu.Unlock()
			}
		}
	}()

	for r := range pool.Results() {
		onResult(r, byID[r.TaskID])
	}

	mu.Lock()
	defer mu.Unlock()
	for i, r := range rejected {
		onResult(r, rejectedTasks[i])
	}
	return pool.Metrics()
}

func (s *Scheduler) logOutcome(target model.Target, outcome model.Outcome, err error) {
	l := s.log.WithFields(map[string]interface{}{
		"target":  target.String(),
		"outcome": outcome.String(),
	})
	switch outcome {
	case model.OutcomeExcluded:
		l.Debug("Target excluded")
	case model.OutcomeEntityError:
		l.WithError(err).Warn("Target failed")
	case model.OutcomeUnresolved:
		l.WithError(err).Warn("Target unresolved, no API key left")
	}
}

func (s *Scheduler) logSummary(sum *Summary) {
	s.log.WithFields(map[string]interface{}{
		"run_id":         sum.RunID,
		"stage":          sum.Stage,
		"total":          sum.Total,
		"success":        sum.Success,
		"excluded":       sum.Excluded,
		"entity_error":   sum.EntityError,
		"unresolved":     sum.Unresolved,
		"exhausted_keys": len(sum.ExhaustedKeys),
		"duration":       sum.Duration().Round(time.Millisecond).String(),
	}).Info("Stage finished")
}

func keyNames(c *Coordinator) []string {
	var names []string
	for _, k := range c.Keys().Exhausted() {
		names = append(names, k.String())
	}
	return names
}

// ExpandTargets turns discoveries into video targets. A video reached from
// several sources is kept once, with the passthrough of its first source.
func ExpandTargets(discoveries []*Discovery, sel model.Selection, rng model.DateRange, keepPassthrough bool) []model.Target {
	seen := make(map[string]bool)
	var out []model.Target
	for _, d := range discoveries {
		if d.Outcome != model.OutcomeSuccess {
			continue
		}
		for _, id := range d.VideoIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			t := model.Target{Kind: model.TargetVideo, ID: id, Selection: sel, Range: rng}
			if keepPassthrough {
				t.Passthrough = d.Source.Passthrough.Clone()
			}
			out = append(out, t)
		}
	}
	return out
}
