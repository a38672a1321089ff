package collector

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"ytmeta-go/pkg/api"
	"ytmeta-go/pkg/model"
)

type fakeVideo struct {
	channel          string
	published        time.Time
	comments         int
	commentsDisabled bool
}

// fakeBackend stands in for the Data API. Video fetches count against a
// per-token budget; once spent, the token answers with a quota error.
type fakeBackend struct {
	mu sync.Mutex

	videos      map[string]fakeVideo
	listings    map[string][]string
	videoBudget map[string]int

	// commentQuota makes every comment fetch on the token hit the quota.
	commentQuota map[string]bool
	panicOn      string
	// beforeComments runs unlocked ahead of every comment fetch; a non-nil
	// error is returned as the fetch result.
	beforeComments func(videoID, token string) error

	videoCalls   map[string]int
	servedBy     map[string]string
	channelCalls map[string]int
	listCalls    map[string]int
	clientsBuilt int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		videos:       make(map[string]fakeVideo),
		listings:     make(map[string][]string),
		videoBudget:  make(map[string]int),
		commentQuota: make(map[string]bool),
		videoCalls:   make(map[string]int),
		servedBy:     make(map[string]string),
		channelCalls: make(map[string]int),
		listCalls:    make(map[string]int),
	}
}

func (b *fakeBackend) addVideo(id, channel string, comments int) {
	b.videos[id] = fakeVideo{
		channel:   channel,
		published: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		comments:  comments,
	}
}

func (b *fakeBackend) factory(ctx context.Context, key api.Key) (api.Client, error) {
	b.mu.Lock()
	b.clientsBuilt++
	b.mu.Unlock()
	return &fakeClient{backend: b, key: key}, nil
}

func (b *fakeBackend) served(id string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.servedBy[id]
}

func (b *fakeBackend) channelFetches(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channelCalls[id]
}

type fakeClient struct {
	backend *fakeBackend
	key     api.Key
}

func (c *fakeClient) quota() error {
	return &api.RateLimitError{Key: c.key, Reason: "quotaExceeded", Err: fmt.Errorf("403")}
}

func (c *fakeClient) FetchVideo(ctx context.Context, id string, mask model.Mask, rng model.DateRange) (*model.Record, error) {
	b := c.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == b.panicOn {
		panic("fake client blew up on " + id)
	}
	if budget, ok := b.videoBudget[c.key.Token]; ok && b.videoCalls[c.key.Token] >= budget {
		return nil, c.quota()
	}
	b.videoCalls[c.key.Token]++

	v, ok := b.videos[id]
	if !ok {
		return nil, &api.RemoteError{Op: "videos.list", ID: id, Err: api.ErrNotFound}
	}
	if !rng.Contains(v.published) {
		return nil, nil
	}
	b.servedBy[id] = c.key.Token

	rec := model.NewRecord()
	rec.Set(model.FieldVideoID, id)
	rec.Set(model.FieldChannelID, v.channel)
	for _, f := range mask.Selected() {
		switch f {
		case "title":
			rec.Set(f, "title "+id)
		case "duration":
			rec.Set(f, "60")
		default:
			rec.Set(f, "x")
		}
	}
	return rec, nil
}

func (c *fakeClient) FetchChannel(ctx context.Context, id string, mask model.Mask) (*model.Record, error) {
	b := c.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	b.channelCalls[id]++
	rec := model.NewRecord()
	rec.Set(model.FieldChannelID, id)
	if mask.Has("channel_title") {
		rec.Set("channel_title", "channel "+id)
	}
	return rec, nil
}

func (c *fakeClient) FetchComments(ctx context.Context, videoID string, mask model.Mask, limit int) ([]*model.Record, error) {
	b := c.backend
	if b.beforeComments != nil {
		if err := b.beforeComments(videoID, c.key.Token); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.commentQuota[c.key.Token] {
		return nil, c.quota()
	}
	v := b.videos[videoID]
	if v.commentsDisabled {
		return nil, api.ErrCommentsDisabled
	}
	out := make([]*model.Record, 0)
	for i := 0; i < v.comments; i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		rec := model.NewRecord()
		rec.Set("comment_id", fmt.Sprintf("%s-c%d", videoID, i))
		rec.Set("comment_display", fmt.Sprintf("comment %d", i))
		out = append(out, rec)
	}
	return out, nil
}

func (c *fakeClient) ListVideoIDs(ctx context.Context, q model.ListQuery) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		b := c.backend
		b.mu.Lock()
		source := q.ChannelID + q.Keyword
		b.listCalls[c.key.Token]++
		quota := false
		if budget, ok := b.videoBudget[c.key.Token]; ok && b.listCalls[c.key.Token] > budget {
			quota = true
		}
		ids := append([]string(nil), b.listings[source]...)
		b.mu.Unlock()

		for i, id := range ids {
			// quota hits after the first page worth of ids
			if quota && i == 1 {
				yield("", c.quota())
				return
			}
			if !yield(id, nil) {
				return
			}
		}
	}
}
