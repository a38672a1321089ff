package model

import "fmt"

// TargetKind distinguishes what a Target identifier names.
type TargetKind int

const (
	TargetVideo TargetKind = iota
	TargetChannel
	TargetKeyword
)

func (k TargetKind) String() string {
	switch k {
	case TargetVideo:
		return "video"
	case TargetChannel:
		return "channel"
	case TargetKeyword:
		return "keyword"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target is one unit of fan-out work. It is built once from the input
// table and never mutated afterwards.
type Target struct {
	Kind      TargetKind
	ID        string
	Selection Selection
	Range     DateRange
	// Passthrough carries input columns kept when keep_old_attr is set.
	Passthrough *Record
}

func (t Target) String() string {
	return t.Kind.String() + ":" + t.ID
}

// ListQuery asks for the video ids of one channel or one keyword search.
type ListQuery struct {
	ChannelID string
	Keyword   string
	Range     DateRange
}

// Order is the search ordering the platform should apply.
func (q ListQuery) Order() string {
	if q.ChannelID != "" {
		return "date"
	}
	return "relevance"
}

func (q ListQuery) String() string {
	if q.ChannelID != "" {
		return "channel:" + q.ChannelID
	}
	return "keyword:" + q.Keyword
}

// Validate rejects queries with neither or both selectors set.
func (q ListQuery) Validate() error {
	if (q.ChannelID == "") == (q.Keyword == "") {
		return fmt.Errorf("list query needs exactly one of channel id or keyword")
	}
	return nil
}

// QueryFor converts a channel or keyword target into a listing query.
func QueryFor(t Target) (ListQuery, error) {
	switch t.Kind {
	case TargetChannel:
		return ListQuery{ChannelID: t.ID, Range: t.Range}, nil
	case TargetKeyword:
		return ListQuery{Keyword: t.ID, Range: t.Range}, nil
	default:
		return ListQuery{}, fmt.Errorf("target %s cannot be listed", t)
	}
}
