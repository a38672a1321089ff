package api

import (
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"

	"ytmeta-go/pkg/model"
)

const (
	defaultCount  = "0"
	defaultString = "Unknown"
)

func videoRecord(id string, v *youtube.Video, mask model.Mask, category string, now time.Time) *model.Record {
	rec := model.NewRecord()
	rec.Set(model.FieldVideoID, id)
	rec.Set(model.FieldChannelID, v.Snippet.ChannelId)

	for _, field := range mask.Selected() {
		switch field {
		case "title":
			rec.Set(field, v.Snippet.Title)
		case "description":
			rec.Set(field, v.Snippet.Description)
		case "category":
			rec.Set(field, orUnknown(category))
		case "duration":
			rec.Set(field, videoDuration(v.ContentDetails))
		case "published_date":
			rec.Set(field, v.Snippet.PublishedAt)
		case "total_views":
			rec.Set(field, videoStat(v.Statistics, func(s *youtube.VideoStatistics) uint64 { return s.ViewCount }))
		case "total_likes":
			rec.Set(field, videoStat(v.Statistics, func(s *youtube.VideoStatistics) uint64 { return s.LikeCount }))
		case "total_dislikes":
			rec.Set(field, videoStat(v.Statistics, func(s *youtube.VideoStatistics) uint64 { return s.DislikeCount }))
		case "total_comments":
			rec.Set(field, videoStat(v.Statistics, func(s *youtube.VideoStatistics) uint64 { return s.CommentCount }))
		case "thumbnail":
			rec.Set(field, thumbnailURL(v.Snippet.Thumbnails))
		case "topic_categories":
			var topics []string
			if v.TopicDetails != nil {
				topics = v.TopicDetails.TopicCategories
			}
			rec.Set(field, strings.Join(topics, ", "))
		case "video_extracted_date":
			rec.Set(field, now.UTC().Format(time.RFC3339))
		}
	}
	return rec
}

func channelRecord(id string, ch *youtube.Channel, mask model.Mask, now time.Time) *model.Record {
	rec := model.NewRecord()
	rec.Set(model.FieldChannelID, id)

	snippet := ch.Snippet
	if snippet == nil {
		snippet = &youtube.ChannelSnippet{}
	}
	stats := ch.Statistics

	for _, field := range mask.Selected() {
		switch field {
		case "channel_title":
			rec.Set(field, snippet.Title)
		case "description":
			rec.Set(field, snippet.Description)
		case "joined_date":
			rec.Set(field, snippet.PublishedAt)
		case "location":
			rec.Set(field, orUnknown(snippet.Country))
		case "total_views":
			rec.Set(field, channelStat(stats, func(s *youtube.ChannelStatistics) uint64 { return s.ViewCount }))
		case "total_subscribers":
			rec.Set(field, channelStat(stats, func(s *youtube.ChannelStatistics) uint64 { return s.SubscriberCount }))
		case "total_videos":
			rec.Set(field, channelStat(stats, func(s *youtube.ChannelStatistics) uint64 { return s.VideoCount }))
		case "thumbnail":
			rec.Set(field, thumbnailURL(snippet.Thumbnails))
		case "language":
			rec.Set(field, orUnknown(snippet.DefaultLanguage))
		case "topic_categories":
			var topics []string
			if ch.TopicDetails != nil {
				topics = ch.TopicDetails.TopicCategories
			}
			rec.Set(field, strings.Join(topics, ", "))
		case "channel_extracted_date":
			rec.Set(field, now.UTC().Format(time.RFC3339))
		}
	}
	return rec
}

// commentRecord flattens the top-level comment of a thread. Threads without
// one are skipped.
func commentRecord(videoID string, thread *youtube.CommentThread, mask model.Mask, now time.Time) *model.Record {
	if thread == nil || thread.Snippet == nil || thread.Snippet.TopLevelComment == nil ||
		thread.Snippet.TopLevelComment.Snippet == nil {
		return nil
	}
	top := thread.Snippet.TopLevelComment
	s := top.Snippet

	rec := model.NewRecord()
	rec.Set(model.FieldVideoID, videoID)
	rec.Set(model.FieldChannelID, thread.Snippet.ChannelId)

	for _, field := range mask.Selected() {
		switch field {
		case "comment_id":
			rec.Set(field, top.Id)
		case "commenter_name":
			rec.Set(field, s.AuthorDisplayName)
		case "commenter_id":
			author := ""
			if s.AuthorChannelId != nil {
				author = s.AuthorChannelId.Value
			}
			rec.Set(field, author)
		case "comment_display":
			rec.Set(field, s.TextDisplay)
		case "comment_original":
			rec.Set(field, s.TextOriginal)
		case "comment_likes":
			rec.Set(field, strconv.FormatInt(s.LikeCount, 10))
		case "comment_total_replies":
			rec.Set(field, strconv.FormatInt(thread.Snippet.TotalReplyCount, 10))
		case "comment_published_date":
			rec.Set(field, s.PublishedAt)
		case "comment_update_date":
			rec.Set(field, s.UpdatedAt)
		case "comment_extracted_date":
			rec.Set(field, now.UTC().Format(time.RFC3339))
		}
	}
	return rec
}

func videoDuration(cd *youtube.VideoContentDetails) string {
	if cd == nil || cd.Duration == "" {
		return defaultCount
	}
	secs, err := ParseISODuration(cd.Duration)
	if err != nil {
		return defaultCount
	}
	return formatSeconds(secs)
}

func videoStat(s *youtube.VideoStatistics, get func(*youtube.VideoStatistics) uint64) string {
	if s == nil {
		return defaultCount
	}
	return strconv.FormatUint(get(s), 10)
}

func channelStat(s *youtube.ChannelStatistics, get func(*youtube.ChannelStatistics) uint64) string {
	if s == nil {
		return defaultCount
	}
	return strconv.FormatUint(get(s), 10)
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return defaultString
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return defaultString
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return defaultString
	}
	return s
}
