package api

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
	"ytmeta-go/pkg/model"
)

// Client is the Data API surface bound to a single key.
//
// FetchVideo returns nil, nil when the video lies outside the date range.
// FetchComments returns ErrCommentsDisabled when the owner disabled them
// and a non-nil empty slice when there are none. Quota problems surface as
// *RateLimitError and everything entity-scoped as *RemoteError.
type Client interface {
	FetchVideo(ctx context.Context, id string, mask model.Mask, rng model.DateRange) (*model.Record, error)
	FetchChannel(ctx context.Context, id string, mask model.Mask) (*model.Record, error)
	FetchComments(ctx context.Context, videoID string, mask model.Mask, limit int) ([]*model.Record, error)
	ListVideoIDs(ctx context.Context, q model.ListQuery) iter.Seq2[string, error]
}

// ClientFactory builds the Client for one key.
type ClientFactory func(ctx context.Context, key Key) (Client, error)

const (
	searchPageSize  = 50
	commentPageSize = 100
)

var (
	videoParts   = []string{"snippet", "contentDetails", "statistics", "topicDetails"}
	channelParts = []string{"snippet", "statistics", "topicDetails"}
	commentParts = []string{"snippet", "replies"}
)

type ClientOptions struct {
	// Endpoint overrides the Data API base URL.
	Endpoint    string
	Connections *ConnectionManager
	Retry       *SimpleRetry
	Categories  *CategoryCache
	Metrics     *metrics.Recorder
	Now         func() time.Time
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Connections == nil {
		o.Connections = NewConnectionManager(DefaultConnectionConfig())
	}
	if o.Retry == nil {
		o.Retry = NewSimpleRetry(2, 500*time.Millisecond)
	}
	if o.Categories == nil {
		o.Categories = NewCategoryCache("US")
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// YouTubeClient implements Client on the YouTube Data API v3.
type YouTubeClient struct {
	key        Key
	svc        *youtube.Service
	retry      *SimpleRetry
	classifier *ErrorClassifier
	categories *CategoryCache
	metrics    *metrics.Recorder
	now        func() time.Time
	log        *logger.Logger
}

func NewYouTubeClient(ctx context.Context, key Key, opts ClientOptions) (*YouTubeClient, error) {
	opts = opts.withDefaults()

	svcOpts := []option.ClientOption{option.WithHTTPClient(opts.Connections.ClientFor(key))}
	if opts.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := youtube.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service for key %s: %w", key, err)
	}

	return &YouTubeClient{
		key:        key,
		svc:        svc,
		retry:      opts.Retry,
		classifier: NewErrorClassifier(),
		categories: opts.Categories,
		metrics:    opts.Metrics,
		now:        opts.Now,
		log:        logger.GetLogger().WithFields(map[string]interface{}{"component": "youtube_client", "key": key.String()}),
	}, nil
}

// NewClientFactory shares opts (transport, category cache, metrics) across
// every key's client.
func NewClientFactory(opts ClientOptions) ClientFactory {
	opts = opts.withDefaults()
	return func(ctx context.Context, key Key) (Client, error) {
		return NewYouTubeClient(ctx, key, opts)
	}
}

func (c *YouTubeClient) FetchVideo(ctx context.Context, id string, mask model.Mask, rng model.DateRange) (*model.Record, error) {
	const op = "videos.list"
	var resp *youtube.VideoListResponse
	err := c.call(ctx, op, id, func() error {
		var err error
		resp, err = c.svc.Videos.List(videoParts).Id(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, &RemoteError{Op: op, ID: id, Err: ErrNotFound}
	}

	v := resp.Items[0]
	published, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
	if err != nil {
		return nil, &RemoteError{Op: op, ID: id, Err: fmt.Errorf("bad publishedAt %q: %w", v.Snippet.PublishedAt, err)}
	}
	if !rng.Contains(published) {
		return nil, nil
	}

	category := ""
	if mask.Has("category") {
		category, err = c.categories.Name(ctx, v.Snippet.CategoryId, c.loadCategories)
		if err != nil {
			return nil, err
		}
	}

	return videoRecord(id, v, mask, category, c.now()), nil
}

func (c *YouTubeClient) FetchChannel(ctx context.Context, id string, mask model.Mask) (*model.Record, error) {
	const op = "channels.list"
	var resp *youtube.ChannelListResponse
	err := c.call(ctx, op, id, func() error {
		var err error
		resp, err = c.svc.Channels.List(channelParts).Id(id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &RemoteError{Op: op, ID: id, Err: ErrNotFound}
	}
	return channelRecord(id, resp.Items[0], mask, c.now()), nil
}

func (c *YouTubeClient) FetchComments(ctx context.Context, videoID string, mask model.Mask, limit int) ([]*model.Record, error) {
	const op = "commentThreads.list"
	comments := make([]*model.Record, 0)
	pageToken := ""

	for {
		var resp *youtube.CommentThreadListResponse
		err := c.call(ctx, op, videoID, func() error {
			call := c.svc.CommentThreads.List(commentParts).
				VideoId(videoID).
				TextFormat("plainText").
				MaxResults(commentPageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		extracted := c.now()
		for _, thread := range resp.Items {
			rec := commentRecord(videoID, thread, mask, extracted)
			if rec == nil {
				continue
			}
			comments = append(comments, rec)
			if limit > 0 && len(comments) >= limit {
				return comments, nil
			}
		}

		if resp.NextPageToken == "" {
			return comments, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ListVideoIDs pages through search results lazily. The sequence can be
// ranged over once; a second range yields an error.
func (c *YouTubeClient) ListVideoIDs(ctx context.Context, q model.ListQuery) iter.Seq2[string, error] {
	const op = "search.list"
	var used atomic.Bool

	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", fmt.Errorf("listing %s already consumed", q))
			return
		}
		if err := q.Validate(); err != nil {
			yield("", err)
			return
		}

		pageToken := ""
		for {
			var resp *youtube.SearchListResponse
			err := c.call(ctx, op, q.String(), func() error {
				call := c.svc.Search.List([]string{"id"}).
					Type("video").
					Order(q.Order()).
					MaxResults(searchPageSize).
					Context(ctx)
				if q.ChannelID != "" {
					call = call.ChannelId(q.ChannelID)
				} else {
					call = call.Q(q.Keyword)
				}
				if after := q.Range.After(); after != "" {
					call = call.PublishedAfter(after)
				}
				if before := q.Range.Before(); before != "" {
					call = call.PublishedBefore(before)
				}
				if pageToken != "" {
					call = call.PageToken(pageToken)
				}
				var err error
				resp, err = call.Do()
				return err
			})
			if err != nil {
				yield("", err)
				return
			}

			for _, item := range resp.Items {
				if item.Id == nil || item.Id.Kind != "youtube#video" || item.Id.VideoId == "" {
					continue
				}
				if !yield(item.Id.VideoId, nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}
			pageToken = resp.NextPageToken
		}
	}
}

func (c *YouTubeClient) loadCategories(ctx context.Context, region string) (map[string]string, error) {
	const op = "videoCategories.list"
	var resp *youtube.VideoCategoryListResponse
	err := c.call(ctx, op, region, func() error {
		var err error
		resp, err = c.svc.VideoCategories.List([]string{"snippet"}).RegionCode(region).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(resp.Items))
	for _, cat := range resp.Items {
		if cat.Snippet != nil {
			names[cat.Id] = cat.Snippet.Title
		}
	}
	return names, nil
}

// call runs fn with transient retries and converts the final error into
// the package taxonomy.
func (c *YouTubeClient) call(ctx context.Context, op, id string, fn func() error) error {
	err := c.retry.Execute(ctx, func() error {
		c.metrics.APIRequest(op)
		return fn()
	})
	if err == nil {
		return nil
	}

	switch c.classifier.Classify(err) {
	case ClassQuota:
		c.log.WithField("op", op).Warn("Quota signal received")
		return &RateLimitError{Key: c.key, Reason: Reason(err), Err: err}
	case ClassCommentsDisabled:
		return ErrCommentsDisabled
	default:
		return &RemoteError{Op: op, ID: id, StatusCode: StatusCode(err), Reason: Reason(err), Err: err}
	}
}
