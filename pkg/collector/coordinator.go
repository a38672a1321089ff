package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ytmeta-go/pkg/api"
	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
	"ytmeta-go/pkg/model"
)

// Coordinator resolves a single target across the key pool. A quota signal
// retires the key and restarts the whole fetch sequence on the next one;
// anything entity-scoped ends the target on the key that saw it.
type Coordinator struct {
	keys     *api.KeyPool
	factory  api.ClientFactory
	channels *ChannelCache

	commentLimit   int
	ignoreComments bool

	mu      sync.Mutex
	clients map[int]api.Client

	metrics *metrics.Recorder
	log     *logger.Logger
}

type CoordinatorOptions struct {
	// CommentLimit caps comments per video; zero means unlimited.
	CommentLimit   int
	IgnoreComments bool
	Metrics        *metrics.Recorder
}

func NewCoordinator(keys *api.KeyPool, factory api.ClientFactory, channels *ChannelCache, opts CoordinatorOptions) *Coordinator {
	if channels == nil {
		channels = NewChannelCache()
	}
	return &Coordinator{
		keys:           keys,
		factory:        factory,
		channels:       channels,
		commentLimit:   opts.CommentLimit,
		ignoreComments: opts.IgnoreComments,
		clients:        make(map[int]api.Client),
		metrics:        opts.Metrics,
		log:            logger.GetLogger().WithField("component", "coordinator"),
	}
}

// Resolve runs the video → channel → comments sequence for a video target.
func (c *Coordinator) Resolve(ctx context.Context, target model.Target) *Result {
	res := &Result{Target: target, Outcome: model.OutcomePending}
	if target.Kind != model.TargetVideo {
		res.Outcome = model.OutcomeEntityError
		res.Err = fmt.Errorf("target %s is not a video", target)
		return res
	}

	// channel survives a discarded attempt; the claim stays with this target
	var channel *model.Record
	for {
		key, err := c.keys.Current()
		if err != nil {
			res.Outcome = model.OutcomeUnresolved
			res.Err = err
			return res
		}
		client, err := c.client(ctx, key)
		if err != nil {
			res.Outcome = model.OutcomeEntityError
			res.Err = err
			return res
		}

		res.Attempts++
		done, err := c.attempt(ctx, client, target)
		if api.IsRateLimited(err) {
			if done != nil && done.Channel != nil {
				channel = done.Channel
			}
			c.retire(key, target.String())
			continue
		}
		if done.Outcome == model.OutcomeSuccess && done.Channel == nil {
			done.Channel = channel
		}
		done.Attempts = res.Attempts
		return done
	}
}

// attempt is one try on one key. On a rate-limit error the returned result
// carries only a channel record fetched before the quota hit; a claim whose
// fetch hit the quota is released.
func (c *Coordinator) attempt(ctx context.Context, client api.Client, target model.Target) (*Result, error) {
	res := &Result{Target: target}

	video, err := client.FetchVideo(ctx, target.ID, target.Selection.Video, target.Range)
	switch {
	case api.IsRateLimited(err):
		return nil, err
	case err != nil:
		res.Outcome = model.OutcomeEntityError
		res.Err = err
		return res, nil
	case video == nil:
		res.Outcome = model.OutcomeExcluded
		return res, nil
	}

	channelID := video.Value(model.FieldChannelID)
	if channelID != "" && c.channels.Claim(channelID) {
		ch, err := client.FetchChannel(ctx, channelID, target.Selection.Channel)
		switch {
		case api.IsRateLimited(err):
			c.channels.Release(channelID)
			return nil, err
		case err != nil:
			c.log.WithFields(map[string]interface{}{
				"video_id":   target.ID,
				"channel_id": channelID,
			}).WithError(err).Warn("Channel details unavailable")
			res.SideErrors = append(res.SideErrors, err)
		default:
			c.channels.Store(channelID, ch)
			res.Channel = ch
			c.metrics.ChannelFetched()
		}
	}

	if !c.ignoreComments {
		comments, err := client.FetchComments(ctx, target.ID, target.Selection.Comment, c.commentLimit)
		switch {
		case api.IsRateLimited(err):
			return &Result{Target: target, Channel: res.Channel}, err
		case errors.Is(err, api.ErrCommentsDisabled):
			res.CommentsDisabled = true
		case err != nil:
			c.log.WithField("video_id", target.ID).WithError(err).Warn("Comments unavailable")
			res.SideErrors = append(res.SideErrors, err)
		default:
			for _, cm := range comments {
				cm.Set(model.FieldChannelID, channelID)
			}
			res.Comments = comments
			c.metrics.CommentsCollected(len(comments))
		}
	}

	if skipped := video.Merge(target.Passthrough); len(skipped) > 0 {
		c.log.WithFields(map[string]interface{}{
			"video_id": target.ID,
			"columns":  skipped,
		}).Debug("Input columns shadowed by fetched attributes")
	}

	res.Video = video
	res.Outcome = model.OutcomeSuccess
	return res, nil
}

// Discover lists the video ids of a channel or keyword target. Keys are
// taken round-robin; a quota signal mid-listing restarts it on the next key.
func (c *Coordinator) Discover(ctx context.Context, target model.Target) *Discovery {
	d := &Discovery{Source: target, Outcome: model.OutcomePending}

	q, err := model.QueryFor(target)
	if err != nil {
		d.Outcome = model.OutcomeEntityError
		d.Err = err
		return d
	}

	for {
		key, err := c.keys.Next()
		if err != nil {
			d.Outcome = model.OutcomeUnresolved
			d.Err = err
			return d
		}
		client, err := c.client(ctx, key)
		if err != nil {
			d.Outcome = model.OutcomeEntityError
			d.Err = err
			return d
		}

		ids, err := collectIDs(ctx, client, q)
		if api.IsRateLimited(err) {
			c.retire(key, q.String())
			continue
		}
		if err != nil {
			d.Outcome = model.OutcomeEntityError
			d.Err = err
			return d
		}

		d.VideoIDs = ids
		d.Outcome = model.OutcomeSuccess
		if len(ids) == 0 {
			d.Outcome = model.OutcomeExcluded
		}
		return d
	}
}

func collectIDs(ctx context.Context, client api.Client, q model.ListQuery) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for id, err := range client.ListVideoIDs(ctx, q) {
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Coordinator) retire(key api.Key, what string) {
	if !c.keys.MarkExhausted(key) {
		return
	}
	c.metrics.QuotaExhausted()
	c.log.WithFields(map[string]interface{}{
		"key":       key.String(),
		"target":    what,
		"keys_left": c.keys.LiveCount(),
	}).Warn("API key quota exhausted, rotating to next key")
}

// client returns the cached client for key, building it on first use.
func (c *Coordinator) client(ctx context.Context, key api.Key) (api.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[key.Index]; ok {
		return cl, nil
	}
	cl, err := c.factory(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for key %s: %w", key, err)
	}
	c.clients[key.Index] = cl
	return cl, nil
}

// Channels exposes the run's channel cache.
func (c *Coordinator) Channels() *ChannelCache {
	return c.channels
}

// Keys exposes the run's key pool.
func (c *Coordinator) Keys() *api.KeyPool {
	return c.keys
}
