package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"ytmeta-go/pkg/model"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

const videoJSON = `{"items":[{"id":"v1",
 "snippet":{"publishedAt":"2023-01-15T10:00:00Z","channelId":"UC1","title":"Hello","description":"d",
  "categoryId":"10","thumbnails":{"high":{"url":"http://img/h.jpg"}}},
 "contentDetails":{"duration":"PT3M32S"},
 "statistics":{"viewCount":"100","likeCount":"5","commentCount":"2"},
 "topicDetails":{"topicCategories":["https://en.wikipedia.org/wiki/Music","https://en.wikipedia.org/wiki/Pop_music"]}}]}`

func writeAPIError(w http.ResponseWriter, code int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"errors":[{"domain":"youtube","reason":%q,"message":%q}]}}`,
		code, message, reason, message)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T, handler http.Handler, token string) *YouTubeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cm := NewConnectionManagerWithTransport(ConnectionConfig{RequestTimeout: 5 * time.Second}, srv.Client().Transport)
	c, err := NewYouTubeClient(context.Background(), Key{Index: 0, Token: token}, ClientOptions{
		Endpoint:    srv.URL + "/",
		Connections: cm,
		Retry:       NewSimpleRetry(2, time.Millisecond),
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewYouTubeClient() error = %v", err)
	}
	return c
}

func TestYouTubeClient_FetchVideoSelectedFields(t *testing.T) {
	var gotKey atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.URL.Query().Get("key"))
		writeJSON(w, videoJSON)
	})
	c := newTestClient(t, mux, "secret-key")

	rec, err := c.FetchVideo(context.Background(), "v1", model.MustMask(model.EntityVideo, "title", "duration"), model.DateRange{})
	if err != nil {
		t.Fatalf("FetchVideo() error = %v", err)
	}

	want := map[string]string{
		"video_id":   "v1",
		"channel_id": "UC1",
		"title":      "Hello",
		"duration":   "212",
	}
	if got := rec.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("FetchVideo() = %v, want %v", got, want)
	}
	if gotKey.Load() != "secret-key" {
		t.Errorf("request key = %v, want secret-key", gotKey.Load())
	}
}

func TestYouTubeClient_FetchVideoAllFields(t *testing.T) {
	var categoryCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, videoJSON)
	})
	mux.HandleFunc("/youtube/v3/videoCategories", func(w http.ResponseWriter, r *http.Request) {
		categoryCalls.Add(1)
		if r.URL.Query().Get("regionCode") != "US" {
			t.Errorf("regionCode = %q, want US", r.URL.Query().Get("regionCode"))
		}
		writeJSON(w, `{"items":[{"id":"10","snippet":{"title":"Music"}}]}`)
	})
	c := newTestClient(t, mux, "k")

	mask := model.AllFields(model.EntityVideo)
	var rec *model.Record
	for i := 0; i < 2; i++ {
		var err error
		rec, err = c.FetchVideo(context.Background(), "v1", mask, model.DateRange{})
		if err != nil {
			t.Fatalf("FetchVideo() error = %v", err)
		}
	}

	checks := map[string]string{
		"category":             "Music",
		"total_views":          "100",
		"total_likes":          "5",
		"total_dislikes":       "0",
		"total_comments":       "2",
		"thumbnail":            "http://img/h.jpg",
		"published_date":       "2023-01-15T10:00:00Z",
		"topic_categories":     "https://en.wikipedia.org/wiki/Music, https://en.wikipedia.org/wiki/Pop_music",
		"video_extracted_date": "2024-03-01T09:30:00Z",
	}
	for k, want := range checks {
		if got := rec.Value(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if rec.Len() != len(model.Fields(model.EntityVideo))+2 {
		t.Errorf("record has %d fields, want catalogue plus linkage", rec.Len())
	}
	if categoryCalls.Load() != 1 {
		t.Errorf("videoCategories called %d times, want 1", categoryCalls.Load())
	}
}

func TestYouTubeClient_FetchVideoOutsideRange(t *testing.T) {
	mux := http.NewServeMux()
	var calls atomic.Int32
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, videoJSON)
	})
	c := newTestClient(t, mux, "k")

	rng, _ := model.NewDateRange("2023-02-01", "2023-03-01", fixedNow)
	rec, err := c.FetchVideo(context.Background(), "v1", model.AllFields(model.EntityVideo), rng)
	if err != nil || rec != nil {
		t.Fatalf("FetchVideo() = %v, %v; want nil, nil", rec, err)
	}
	if calls.Load() != 1 {
		t.Errorf("videos.list called %d times, want a single call", calls.Load())
	}
}

func TestYouTubeClient_FetchVideoErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantQuota bool
		wantErr   error
	}{
		{
			name: "quota",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, 403, "quotaExceeded", "The request cannot be completed because you have exceeded your quota.")
			},
			wantQuota: true,
		},
		{
			name: "empty items",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"items":[]}`)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, 403, "forbidden", "private")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/youtube/v3/videos", tt.handler)
			c := newTestClient(t, mux, "k")

			_, err := c.FetchVideo(context.Background(), "v1", model.AllFields(model.EntityVideo), model.DateRange{})
			if err == nil {
				t.Fatal("FetchVideo() expected error")
			}
			if IsRateLimited(err) != tt.wantQuota {
				t.Errorf("IsRateLimited(%v) = %v, want %v", err, !tt.wantQuota, tt.wantQuota)
			}
			if !tt.wantQuota && !IsRemote(err) {
				t.Errorf("expected RemoteError, got %T %v", err, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestYouTubeClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeAPIError(w, 503, "backendError", "backend")
			return
		}
		writeJSON(w, videoJSON)
	})
	c := newTestClient(t, mux, "k")

	if _, err := c.FetchVideo(context.Background(), "v1", model.Mask{}, model.DateRange{}); err != nil {
		t.Fatalf("FetchVideo() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestYouTubeClient_FetchChannelDefaults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"items":[{"id":"UC1","snippet":{"title":"Chan","publishedAt":"2010-05-01T00:00:00Z"},
			"statistics":{"subscriberCount":"42","videoCount":"7"}}]}`)
	})
	c := newTestClient(t, mux, "k")

	mask := model.MustMask(model.EntityChannel, "channel_title", "location", "language", "total_subscribers", "total_views", "thumbnail")
	rec, err := c.FetchChannel(context.Background(), "UC1", mask)
	if err != nil {
		t.Fatalf("FetchChannel() error = %v", err)
	}

	want := map[string]string{
		"channel_id":        "UC1",
		"channel_title":     "Chan",
		"location":          "Unknown",
		"language":          "Unknown",
		"total_subscribers": "42",
		"total_views":       "0",
		"thumbnail":         "Unknown",
	}
	if got := rec.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("FetchChannel() = %v, want %v", got, want)
	}
}

func commentPage(ids []string, next string) string {
	items := ""
	for i, id := range ids {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"snippet":{"channelId":"UC1","totalReplyCount":1,"topLevelComment":{"id":%q,
			"snippet":{"authorDisplayName":"A","authorChannelId":{"value":"UCa"},"textDisplay":"text %s",
			"textOriginal":"text %s","likeCount":3,"publishedAt":"2023-01-01T00:00:00Z","updatedAt":"2023-01-02T00:00:00Z"}}}}`,
			id, id, id)
	}
	return fmt.Sprintf(`{"nextPageToken":%q,"items":[%s]}`, next, items)
}

func TestYouTubeClient_FetchCommentsPaginates(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/commentThreads", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("videoId") != "v1" || q.Get("textFormat") != "plainText" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("pageToken") == "" {
			writeJSON(w, commentPage([]string{"c1", "c2"}, "p2"))
			return
		}
		writeJSON(w, commentPage([]string{"c3"}, ""))
	})
	c := newTestClient(t, mux, "k")

	mask := model.MustMask(model.EntityComment, "comment_id", "comment_display", "commenter_id", "comment_likes")
	comments, err := c.FetchComments(context.Background(), "v1", mask, 0)
	if err != nil {
		t.Fatalf("FetchComments() error = %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("got %d comments, want 3", len(comments))
	}
	for i, id := range []string{"c1", "c2", "c3"} {
		if comments[i].Value("comment_id") != id {
			t.Errorf("comment %d id = %s, want %s", i, comments[i].Value("comment_id"), id)
		}
	}
	first := comments[0].Map()
	want := map[string]string{
		"video_id":        "v1",
		"channel_id":      "UC1",
		"comment_id":      "c1",
		"commenter_id":    "UCa",
		"comment_display": "text c1",
		"comment_likes":   "3",
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("first comment = %v, want %v", first, want)
	}

	calls.Store(0)
	limited, err := c.FetchComments(context.Background(), "v1", mask, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || calls.Load() != 1 {
		t.Errorf("limit 2: got %d comments in %d calls, want 2 in 1", len(limited), calls.Load())
	}
}

func TestYouTubeClient_FetchCommentsDisabledVersusEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/commentThreads", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("videoId") == "off" {
			writeAPIError(w, 403, "commentsDisabled", "The video identified by the videoId parameter has disabled comments.")
			return
		}
		writeJSON(w, `{"items":[]}`)
	})
	c := newTestClient(t, mux, "k")
	mask := model.AllFields(model.EntityComment)

	disabled, err := c.FetchComments(context.Background(), "off", mask, 0)
	if !errors.Is(err, ErrCommentsDisabled) || disabled != nil {
		t.Errorf("disabled: got %v, %v; want nil, ErrCommentsDisabled", disabled, err)
	}

	empty, err := c.FetchComments(context.Background(), "quiet", mask, 0)
	if err != nil {
		t.Fatalf("empty: unexpected error %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty: got %#v, want non-nil empty slice", empty)
	}
}

func TestYouTubeClient_ListVideoIDs(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("channelId") != "UC1" || q.Get("order") != "date" || q.Get("maxResults") != "50" || q.Get("type") != "video" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("publishedAfter") != "2023-01-01T00:00:00Z" {
			t.Errorf("publishedAfter = %q", q.Get("publishedAfter"))
		}
		if q.Get("pageToken") == "" {
			writeJSON(w, `{"nextPageToken":"n","items":[
				{"id":{"kind":"youtube#video","videoId":"a"}},
				{"id":{"kind":"youtube#playlist","playlistId":"p"}},
				{"id":{"kind":"youtube#video","videoId":"b"}}]}`)
			return
		}
		writeJSON(w, `{"items":[{"id":{"kind":"youtube#video","videoId":"c"}}]}`)
	})
	c := newTestClient(t, mux, "k")

	rng, _ := model.NewDateRange("2023-01-01", "2023-12-31", fixedNow)
	seq := c.ListVideoIDs(context.Background(), model.ListQuery{ChannelID: "UC1", Range: rng})

	var ids []string
	for id, err := range seq {
		if err != nil {
			t.Fatalf("ListVideoIDs() error = %v", err)
		}
		ids = append(ids, id)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
	if calls.Load() != 2 {
		t.Errorf("search.list called %d times, want 2", calls.Load())
	}

	for _, err := range seq {
		if err == nil {
			t.Error("second iteration should report the sequence as consumed")
		}
	}
}

func TestYouTubeClient_ListVideoIDsStopsEarly(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, `{"nextPageToken":"more","items":[{"id":{"kind":"youtube#video","videoId":"a"}}]}`)
	})
	c := newTestClient(t, mux, "k")

	for id, err := range c.ListVideoIDs(context.Background(), model.ListQuery{Keyword: "golang"}) {
		if err != nil || id != "a" {
			t.Fatalf("got %q, %v", id, err)
		}
		break
	}
	if calls.Load() != 1 {
		t.Errorf("search.list called %d times, want 1 (lazy)", calls.Load())
	}
}
