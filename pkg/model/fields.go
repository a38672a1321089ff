package model

import (
	"fmt"
	"sort"
	"strings"
)

// Linkage columns are always emitted regardless of the selection.
const (
	FieldVideoID   = "video_id"
	FieldChannelID = "channel_id"
	FieldKeyword   = "keyword"
)

// Entity names the record family a field belongs to.
type Entity string

const (
	EntityVideo   Entity = "video"
	EntityComment Entity = "comment"
	EntityChannel Entity = "channel"
)

var videoFields = []string{
	"title",
	"description",
	"category",
	"duration",
	"published_date",
	"total_views",
	"total_likes",
	"total_dislikes",
	"total_comments",
	"thumbnail",
	"topic_categories",
	"video_extracted_date",
}

var commentFields = []string{
	"comment_id",
	"commenter_name",
	"commenter_id",
	"comment_display",
	"comment_original",
	"comment_likes",
	"comment_total_replies",
	"comment_published_date",
	"comment_update_date",
	"comment_extracted_date",
}

var channelFields = []string{
	"channel_title",
	"description",
	"joined_date",
	"location",
	"total_views",
	"total_subscribers",
	"total_videos",
	"thumbnail",
	"language",
	"topic_categories",
	"channel_extracted_date",
}

// Fields returns the recognised field names of an entity in output order.
func Fields(e Entity) []string {
	var src []string
	switch e {
	case EntityVideo:
		src = videoFields
	case EntityComment:
		src = commentFields
	case EntityChannel:
		src = channelFields
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Mask is the validated attribute selection for one entity. The zero value
// selects nothing.
type Mask struct {
	entity  Entity
	enabled map[string]bool
}

// NewMask validates names against the catalogue. Every key must be a known
// field; a false value leaves the field unselected.
func NewMask(e Entity, selection map[string]bool) (Mask, error) {
	known := make(map[string]bool)
	for _, f := range Fields(e) {
		known[f] = true
	}
	if len(known) == 0 {
		return Mask{}, fmt.Errorf("unknown entity %q", e)
	}

	var unknown []string
	enabled := make(map[string]bool)
	for name, on := range selection {
		key := strings.ToLower(strings.TrimSpace(name))
		if !known[key] {
			unknown = append(unknown, name)
			continue
		}
		if on {
			enabled[key] = true
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Mask{}, fmt.Errorf("unknown %s attribute(s) %s; valid: %s",
			e, strings.Join(unknown, ", "), strings.Join(Fields(e), ", "))
	}
	return Mask{entity: e, enabled: enabled}, nil
}

// MustMask is NewMask for static selections; it panics on invalid names.
func MustMask(e Entity, names ...string) Mask {
	sel := make(map[string]bool, len(names))
	for _, n := range names {
		sel[n] = true
	}
	m, err := NewMask(e, sel)
	if err != nil {
		panic(err)
	}
	return m
}

// AllFields selects the whole catalogue of an entity.
func AllFields(e Entity) Mask {
	return MustMask(e, Fields(e)...)
}

func (m Mask) Has(field string) bool {
	return m.enabled[field]
}

// Any reports whether at least one field is selected.
func (m Mask) Any() bool {
	return len(m.enabled) > 0
}

// Selected returns the enabled fields in catalogue order.
func (m Mask) Selected() []string {
	var out []string
	for _, f := range Fields(m.entity) {
		if m.enabled[f] {
			out = append(out, f)
		}
	}
	return out
}

// Selection groups the three masks of a run.
type Selection struct {
	Video   Mask
	Comment Mask
	Channel Mask
}

// DefaultSelection enables every field, matching a config that lists none.
func DefaultSelection() Selection {
	return Selection{
		Video:   AllFields(EntityVideo),
		Comment: AllFields(EntityComment),
		Channel: AllFields(EntityChannel),
	}
}
