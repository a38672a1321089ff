package translate

import (
	"context"
	"fmt"
	"sync"

	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/model"
	"ytmeta-go/pkg/storage"
	"ytmeta-go/pkg/worker"
)

// TranslatedSuffix is appended to the source column and table names.
const TranslatedSuffix = "_translated"

// Stats counts what happened to the rows of one table.
type Stats struct {
	Rows    int `json:"rows"`
	Kept    int `json:"kept"`
	Invalid int `json:"invalid"`
	Failed  int `json:"failed"`
}

// Pipeline translates table columns row by row on a worker pool.
type Pipeline struct {
	service *Service
	workers int
	log     *logger.Logger
}

func NewPipeline(service *Service, workers int) *Pipeline {
	if workers <= 0 {
		workers = 8
	}
	return &Pipeline{
		service: service,
		workers: workers,
		log:     logger.GetLogger().WithField("component", "translate_pipeline"),
	}
}

type rowTask struct {
	index   int
	row     *model.Record
	columns []string
	service *Service

	out     *model.Record
	invalid bool
	failed  bool
}

func (t *rowTask) Execute(ctx context.Context) error {
	out := t.row.Clone()
	for _, c := range t.columns {
		v := t.service.Text(ctx, t.row.Value(c))
		switch v {
		case InvalidText:
			t.invalid = true
		case TranslationError:
			t.failed = true
		}
		out.Set(c+TranslatedSuffix, v)
	}
	t.out = out
	return nil
}

func (t *rowTask) GetID() string          { return fmt.Sprintf("row-%d", t.index) }
func (t *rowTask) GetResult() interface{} { return t }

// Table translates every listed column of in. The returned table keeps the
// input columns plus one <column>_translated column each, in input row
// order; rows where any value came back as a sentinel are dropped.
func (p *Pipeline) Table(ctx context.Context, in *storage.Table, columns []string) (*storage.Table, Stats, error) {
	for _, c := range columns {
		if !in.HasColumn(c) {
			return nil, Stats{}, fmt.Errorf("table %s has no column %q", in.Name, c)
		}
	}

	tasks := make([]*rowTask, in.Len())
	for i, r := range in.Rows() {
		tasks[i] = &rowTask{index: i, row: r, columns: columns, service: p.service}
	}

	pool := worker.NewConcurrentPool(worker.PoolConfig{
		Workers:      p.workers,
		MaxQueueSize: p.workers * 2,
		BufferSize:   p.workers * 2,
	})
	pool.Start(ctx)

	var submitErr error
	var mu sync.Mutex
	go func() {
		defer pool.Close()
		for _, t := range tasks {
			if err := pool.Submit(ctx, t); err != nil {
				mu.Lock()
				submitErr = err
				mu.Unlock()
				return
			}
		}
	}()

	progress := logger.NewProgressReporter(len(tasks), "Translating rows").WithLogger(p.log)
	for r := range pool.Results() {
		if r.Error != nil {
			p.log.WithField("task_id", r.TaskID).WithError(r.Error).Error("Row translation aborted")
		}
		progress.Update(1)
	}

	mu.Lock()
	err := submitErr
	mu.Unlock()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("translation interrupted: %w", err)
	}

	lead := in.Columns()
	for _, c := range columns {
		lead = append(lead, c+TranslatedSuffix)
	}
	out := storage.NewTable(in.Name+TranslatedSuffix, lead...)
	stats := Stats{Rows: in.Len()}
	for _, t := range tasks {
		switch {
		case t.out == nil || t.failed:
			stats.Failed++
		case t.invalid:
			stats.Invalid++
		default:
			out.Append(t.out)
			stats.Kept++
		}
	}

	p.log.WithFields(map[string]interface{}{
		"table":   in.Name,
		"rows":    stats.Rows,
		"kept":    stats.Kept,
		"invalid": stats.Invalid,
		"failed":  stats.Failed,
	}).Info("Translation finished")
	return out, stats, nil
}
