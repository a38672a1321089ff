package collector

import (
	"context"

	"ytmeta-go/pkg/model"
)

// fetchTask resolves one video target on the worker pool.
type fetchTask struct {
	coordinator *Coordinator
	target      model.Target
	result      *Result
}

func newFetchTask(c *Coordinator, target model.Target) *fetchTask {
	return &fetchTask{
		coordinator: c,
		target:      target,
		result:      &Result{Target: target, Outcome: model.OutcomePending},
	}
}

func (t *fetchTask) Execute(ctx context.Context) error {
	t.result = t.coordinator.Resolve(ctx, t.target)
	if t.result.Outcome == model.OutcomeEntityError || t.result.Outcome == model.OutcomeUnresolved {
		return t.result.Err
	}
	return nil
}

func (t *fetchTask) GetID() string          { return t.target.String() }
func (t *fetchTask) GetResult() interface{} { return t.result }

// discoverTask lists the videos of one channel or keyword target.
type discoverTask struct {
	coordinator *Coordinator
	target      model.Target
	result      *Discovery
}

func newDiscoverTask(c *Coordinator, target model.Target) *discoverTask {
	return &discoverTask{
		coordinator: c,
		target:      target,
		result:      &Discovery{Source: target, Outcome: model.OutcomePending},
	}
}

func (t *discoverTask) Execute(ctx context.Context) error {
	t.result = t.coordinator.Discover(ctx, t.target)
	if t.result.Outcome == model.OutcomeEntityError || t.result.Outcome == model.OutcomeUnresolved {
		return t.result.Err
	}
	return nil
}

func (t *discoverTask) GetID() string          { return t.target.String() }
func (t *discoverTask) GetResult() interface{} { return t.result }
