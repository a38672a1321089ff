package collector

import (
	"time"

	"ytmeta-go/pkg/model"
	"ytmeta-go/pkg/worker"
)

// Result is what one target resolved to.
type Result struct {
	Target  model.Target
	Outcome model.Outcome
	Err     error

	Video    *model.Record
	Channel  *model.Record
	Comments []*model.Record
	// CommentsDisabled distinguishes "owner turned comments off" (Comments
	// is nil) from a video with zero comments (Comments is empty).
	CommentsDisabled bool
	// SideErrors holds channel or comment failures that did not change the
	// outcome of the video itself.
	SideErrors []error

	// Attempts counts keys tried, including the one that settled it.
	Attempts int
}

// Discovery is the video id listing of one channel or keyword target.
type Discovery struct {
	Source   model.Target
	Outcome  model.Outcome
	Err      error
	VideoIDs []string
}

// Summary aggregates outcomes of a run.
type Summary struct {
	RunID            string                 `json:"run_id"`
	Stage            string                 `json:"stage"`
	Total            int                    `json:"total"`
	Success          int                    `json:"success"`
	Excluded         int                    `json:"excluded"`
	EntityError      int                    `json:"entity_error"`
	Unresolved       int                    `json:"unresolved"`
	CommentsDisabled int                    `json:"comments_disabled"`
	FailedIDs        []string               `json:"failed_ids,omitempty"`
	UnresolvedIDs    []string               `json:"unresolved_ids,omitempty"`
	ExhaustedKeys    []string               `json:"exhausted_keys,omitempty"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
	Pool             worker.MetricsSnapshot `json:"pool"`
}

// Record counts one terminal outcome.
func (s *Summary) Record(target model.Target, outcome model.Outcome) {
	s.Total++
	switch outcome {
	case model.OutcomeSuccess:
		s.Success++
	case model.OutcomeExcluded:
		s.Excluded++
	case model.OutcomeEntityError:
		s.EntityError++
		s.FailedIDs = append(s.FailedIDs, target.ID)
	case model.OutcomeUnresolved:
		s.Unresolved++
		s.UnresolvedIDs = append(s.UnresolvedIDs, target.ID)
	}
}

func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Collection is the merged output of a fan-out run.
type Collection struct {
	Videos   []*model.Record
	Comments []*model.Record
	Channels []*model.Record
	Results  []*Result
	Summary  Summary

	channelIDs map[string]bool
	// videoChannels lists channel ids of successful videos, first seen first.
	videoChannels []string
}

func newCollection(runID string) *Collection {
	return &Collection{
		Summary:    Summary{RunID: runID, Stage: "collect", StartedAt: time.Now()},
		channelIDs: make(map[string]bool),
	}
}

// add merges one result. Comments get the owning video id stamped on and
// channels are deduplicated by id.
func (c *Collection) add(res *Result) {
	c.Results = append(c.Results, res)
	c.Summary.Record(res.Target, res.Outcome)
	if res.Outcome != model.OutcomeSuccess {
		return
	}
	if res.CommentsDisabled {
		c.Summary.CommentsDisabled++
	}

	c.Videos = append(c.Videos, res.Video)
	videoID := res.Video.Value(model.FieldVideoID)
	for _, cm := range res.Comments {
		cm.Set(model.FieldVideoID, videoID)
		c.Comments = append(c.Comments, cm)
	}

	if id := res.Video.Value(model.FieldChannelID); id != "" {
		c.videoChannels = append(c.videoChannels, id)
	}
	if res.Channel != nil {
		c.addChannel(res.Channel)
	}
}

func (c *Collection) addChannel(rec *model.Record) {
	id := rec.Value(model.FieldChannelID)
	if c.channelIDs[id] {
		return
	}
	c.channelIDs[id] = true
	c.Channels = append(c.Channels, rec)
}

// fillChannels adds cached records for channels of successful videos that
// no result carried, e.g. when the fetching target ended unresolved.
func (c *Collection) fillChannels(cache *ChannelCache) int {
	added := 0
	for _, id := range c.videoChannels {
		if c.channelIDs[id] {
			continue
		}
		if rec, ok := cache.Get(id); ok {
			c.addChannel(rec)
			added++
		}
	}
	return added
}
