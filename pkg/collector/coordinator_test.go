package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ytmeta-go/pkg/api"
	"ytmeta-go/pkg/model"
)

func videoTarget(id string) model.Target {
	return model.Target{Kind: model.TargetVideo, ID: id, Selection: model.DefaultSelection()}
}

func newTestCoordinator(b *fakeBackend, opts CoordinatorOptions, tokens ...string) *Coordinator {
	return NewCoordinator(api.NewKeyPool(tokens), b.factory, NewChannelCache(), opts)
}

func TestCoordinator_RotatesOnQuota(t *testing.T) {
	b := newFakeBackend()
	for i := 1; i <= 10; i++ {
		b.addVideo(fmt.Sprintf("v%02d", i), "UC1", 1)
	}
	b.videoBudget["k1"] = 5

	c := newTestCoordinator(b, CoordinatorOptions{}, "k1", "k2", "k3")
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("v%02d", i)
		res := c.Resolve(context.Background(), videoTarget(id))
		if res.Outcome != model.OutcomeSuccess {
			t.Fatalf("%s: outcome = %s, err = %v", id, res.Outcome, res.Err)
		}

		want := "k1"
		if i > 5 {
			want = "k2"
		}
		if got := b.served(id); got != want {
			t.Errorf("%s served by %s, want %s", id, got, want)
		}
		wantAttempts := 1
		if i == 6 {
			wantAttempts = 2
		}
		if res.Attempts != wantAttempts {
			t.Errorf("%s: attempts = %d, want %d", id, res.Attempts, wantAttempts)
		}
	}

	exhausted := c.Keys().Exhausted()
	if len(exhausted) != 1 || exhausted[0].Token != "k1" {
		t.Errorf("exhausted keys = %v, want only k1", exhausted)
	}
	if b.clientsBuilt != 2 {
		t.Errorf("clients built = %d, want 2", b.clientsBuilt)
	}
}

func TestCoordinator_AllKeysExhausted(t *testing.T) {
	b := newFakeBackend()
	for i := 1; i <= 6; i++ {
		b.addVideo(fmt.Sprintf("v%d", i), "UC1", 0)
	}
	b.videoBudget["k1"] = 2
	b.videoBudget["k2"] = 2

	c := newTestCoordinator(b, CoordinatorOptions{}, "k1", "k2")
	var outcomes []model.Outcome
	for i := 1; i <= 6; i++ {
		res := c.Resolve(context.Background(), videoTarget(fmt.Sprintf("v%d", i)))
		outcomes = append(outcomes, res.Outcome)
		if res.Outcome == model.OutcomeUnresolved && !errors.Is(res.Err, api.ErrPoolExhausted) {
			t.Errorf("v%d: unresolved error = %v, want ErrPoolExhausted", i, res.Err)
		}
	}

	want := []model.Outcome{
		model.OutcomeSuccess, model.OutcomeSuccess,
		model.OutcomeSuccess, model.OutcomeSuccess,
		model.OutcomeUnresolved, model.OutcomeUnresolved,
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("v%d: outcome = %s, want %s", i+1, outcomes[i], want[i])
		}
	}
	if c.Keys().LiveCount() != 0 {
		t.Errorf("live keys = %d, want 0", c.Keys().LiveCount())
	}
}

func TestCoordinator_EntityErrorKeepsKey(t *testing.T) {
	b := newFakeBackend()
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1", "k2")

	res := c.Resolve(context.Background(), videoTarget("missing"))
	if res.Outcome != model.OutcomeEntityError {
		t.Fatalf("outcome = %s, want entity_error", res.Outcome)
	}
	if !errors.Is(res.Err, api.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", res.Err)
	}
	if c.Keys().LiveCount() != 2 {
		t.Errorf("live keys = %d, want 2", c.Keys().LiveCount())
	}
	if b.videoCalls["k1"] != 1 || b.videoCalls["k2"] != 0 {
		t.Errorf("video calls = %v, want one call on k1", b.videoCalls)
	}
}

func TestCoordinator_ExcludedByDateRange(t *testing.T) {
	b := newFakeBackend()
	b.addVideo("v1", "UC1", 3)
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1")

	rng, err := model.NewDateRange("2024-01-01", "2024-02-01", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	target := videoTarget("v1")
	target.Range = rng

	res := c.Resolve(context.Background(), target)
	if res.Outcome != model.OutcomeExcluded {
		t.Fatalf("outcome = %s, want excluded", res.Outcome)
	}
	if res.Video != nil || res.Comments != nil {
		t.Error("excluded target carries data")
	}
	if b.channelFetches("UC1") != 0 {
		t.Error("channel fetched for an excluded video")
	}
	if c.Channels().Has("UC1") {
		t.Error("excluded video claimed its channel")
	}
}

func TestCoordinator_ChannelFetchedOnce(t *testing.T) {
	b := newFakeBackend()
	for i := 1; i <= 5; i++ {
		b.addVideo(fmt.Sprintf("v%d", i), "UC1", 0)
	}
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1")

	withChannel := 0
	for i := 1; i <= 5; i++ {
		res := c.Resolve(context.Background(), videoTarget(fmt.Sprintf("v%d", i)))
		if res.Channel != nil {
			withChannel++
		}
	}
	if got := b.channelFetches("UC1"); got != 1 {
		t.Errorf("channel fetches = %d, want 1", got)
	}
	if withChannel != 1 {
		t.Errorf("results with channel = %d, want 1", withChannel)
	}
}

func TestCoordinator_QuotaDuringCommentsRestarts(t *testing.T) {
	b := newFakeBackend()
	b.addVideo("v1", "UC1", 2)
	b.commentQuota["k1"] = true
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1", "k2")

	res := c.Resolve(context.Background(), videoTarget("v1"))
	if res.Outcome != model.OutcomeSuccess {
		t.Fatalf("outcome = %s, err = %v", res.Outcome, res.Err)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if res.Channel == nil {
		t.Error("channel from the discarded attempt was lost")
	}
	if len(res.Comments) != 2 {
		t.Errorf("comments = %d, want 2", len(res.Comments))
	}
	if got := b.served("v1"); got != "k2" {
		t.Errorf("served by %s, want k2", got)
	}
	if got := b.channelFetches("UC1"); got != 1 {
		t.Errorf("channel fetches = %d, want 1", got)
	}
}

func TestCoordinator_ChannelKeptWhenFetcherUnresolved(t *testing.T) {
	b := newFakeBackend()
	b.addVideo("A", "UC1", 1)
	b.addVideo("B", "UC1", 1)
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1")

	// B resolves while A still holds the channel claim, then A's comment
	// fetch hits the quota on the only key.
	var resB *Result
	b.beforeComments = func(videoID, token string) error {
		if videoID != "A" {
			return nil
		}
		resB = c.Resolve(context.Background(), videoTarget("B"))
		return &api.RateLimitError{Key: api.Key{Token: token}, Reason: "quotaExceeded", Err: errors.New("403")}
	}

	resA := c.Resolve(context.Background(), videoTarget("A"))
	if resA.Outcome != model.OutcomeUnresolved {
		t.Fatalf("A outcome = %s, want unresolved", resA.Outcome)
	}
	if resB == nil || resB.Outcome != model.OutcomeSuccess {
		t.Fatalf("B result = %+v, want success", resB)
	}
	if resB.Channel != nil {
		t.Error("B fetched a channel it never claimed")
	}
	if _, ok := c.Channels().Get("UC1"); !ok {
		t.Fatal("fetched channel dropped from the cache")
	}

	coll := newCollection("test-run")
	coll.add(resA)
	coll.add(resB)
	if n := coll.fillChannels(c.Channels()); n != 1 {
		t.Errorf("fillChannels() = %d, want 1", n)
	}
	if len(coll.Channels) != 1 || coll.Channels[0].Value(model.FieldChannelID) != "UC1" {
		t.Errorf("channels = %v, want UC1", coll.Channels)
	}
	if got := b.channelFetches("UC1"); got != 1 {
		t.Errorf("channel fetches = %d, want 1", got)
	}
}

func TestCoordinator_CommentsDisabledAndEmpty(t *testing.T) {
	b := newFakeBackend()
	b.addVideo("off", "UC1", 0)
	v := b.videos["off"]
	v.commentsDisabled = true
	b.videos["off"] = v
	b.addVideo("quiet", "UC1", 0)
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1")

	off := c.Resolve(context.Background(), videoTarget("off"))
	if off.Outcome != model.OutcomeSuccess {
		t.Fatalf("disabled: outcome = %s", off.Outcome)
	}
	if !off.CommentsDisabled || off.Comments != nil {
		t.Errorf("disabled: CommentsDisabled = %v, Comments = %v", off.CommentsDisabled, off.Comments)
	}

	quiet := c.Resolve(context.Background(), videoTarget("quiet"))
	if quiet.CommentsDisabled {
		t.Error("empty: reported as disabled")
	}
	if quiet.Comments == nil || len(quiet.Comments) != 0 {
		t.Errorf("empty: Comments = %v, want empty non-nil", quiet.Comments)
	}
}

func TestCoordinator_CommentOptions(t *testing.T) {
	b := newFakeBackend()
	b.addVideo("v1", "UC1", 5)

	limited := newTestCoordinator(b, CoordinatorOptions{CommentLimit: 2}, "k1")
	res := limited.Resolve(context.Background(), videoTarget("v1"))
	if len(res.Comments) != 2 {
		t.Errorf("limited: comments = %d, want 2", len(res.Comments))
	}
	for _, cm := range res.Comments {
		if cm.Value(model.FieldChannelID) != "UC1" {
			t.Errorf("comment %s missing channel id", cm.Value("comment_id"))
		}
	}

	ignored := newTestCoordinator(b, CoordinatorOptions{IgnoreComments: true}, "k1")
	res = ignored.Resolve(context.Background(), videoTarget("v1"))
	if res.Comments != nil || res.CommentsDisabled {
		t.Errorf("ignored: Comments = %v, disabled = %v", res.Comments, res.CommentsDisabled)
	}
}

func TestCoordinator_PassthroughDoesNotOverwrite(t *testing.T) {
	b := newFakeBackend()
	b.addVideo("v1", "UC1", 0)
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1")

	target := videoTarget("v1")
	target.Passthrough = model.RecordFrom([]string{"title", "note"}, []string{"old title", "keep me"})

	res := c.Resolve(context.Background(), target)
	if got := res.Video.Value("title"); got != "title v1" {
		t.Errorf("title = %q, fetched value overwritten", got)
	}
	if got := res.Video.Value("note"); got != "keep me" {
		t.Errorf("note = %q, want passthrough value", got)
	}
}

func TestCoordinator_RejectsNonVideoTarget(t *testing.T) {
	c := newTestCoordinator(newFakeBackend(), CoordinatorOptions{}, "k1")
	res := c.Resolve(context.Background(), model.Target{Kind: model.TargetChannel, ID: "UC1"})
	if res.Outcome != model.OutcomeEntityError {
		t.Errorf("outcome = %s, want entity_error", res.Outcome)
	}
}

func TestCoordinator_DiscoverRotatesOnQuota(t *testing.T) {
	b := newFakeBackend()
	b.listings["UCa"] = []string{"a1", "a2", "a1", "a3"}
	b.videoBudget["k1"] = 0
	c := newTestCoordinator(b, CoordinatorOptions{}, "k1", "k2")

	d := c.Discover(context.Background(), model.Target{Kind: model.TargetChannel, ID: "UCa"})
	if d.Outcome != model.OutcomeSuccess {
		t.Fatalf("outcome = %s, err = %v", d.Outcome, d.Err)
	}
	want := []string{"a1", "a2", "a3"}
	if fmt.Sprint(d.VideoIDs) != fmt.Sprint(want) {
		t.Errorf("ids = %v, want %v", d.VideoIDs, want)
	}
	if !c.Keys().IsExhausted(api.Key{Index: 0, Token: "k1"}) {
		t.Error("k1 not retired after quota")
	}
}

func TestCoordinator_DiscoverEmptyListing(t *testing.T) {
	c := newTestCoordinator(newFakeBackend(), CoordinatorOptions{}, "k1")
	d := c.Discover(context.Background(), model.Target{Kind: model.TargetKeyword, ID: "nothing here"})
	if d.Outcome != model.OutcomeExcluded {
		t.Errorf("outcome = %s, want excluded", d.Outcome)
	}
}

func TestChannelCache_SingleWinner(t *testing.T) {
	cc := NewChannelCache()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cc.Claim("UC1") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
	cc.Release("UC1")
	if cc.Has("UC1") || cc.Len() != 0 {
		t.Error("release did not clear the claim")
	}
	if !cc.Claim("UC1") {
		t.Error("claim after release failed")
	}
	if _, ok := cc.Get("UC1"); ok {
		t.Error("Get() found a record before Store")
	}
	rec := model.NewRecord()
	rec.Set(model.FieldChannelID, "UC1")
	cc.Store("UC1", rec)
	if got, ok := cc.Get("UC1"); !ok || got != rec {
		t.Errorf("Get() = %v, %v after Store", got, ok)
	}
	if cc.Claim("UC1") {
		t.Error("claim succeeded on a stored channel")
	}
}
