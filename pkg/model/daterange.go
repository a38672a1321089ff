package model

import (
	"fmt"
	"strings"
	"time"
)

// PlatformEpoch is the earliest upload date the platform can report.
var PlatformEpoch = time.Date(2005, time.April, 23, 0, 0, 0, 0, time.UTC)

const dateLayout = "2006-01-02"

// DateRange is a UTC publication window, Start inclusive and End exclusive.
// A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses YYYY-MM-DD or RFC 3339 bounds. The end as written is
// inclusive: a date-only end covers the whole day and an RFC 3339 end its
// whole second, so End is stored as the next midnight or next second.
// Empty bounds default to PlatformEpoch and now.
func NewDateRange(start, end string, now time.Time) (DateRange, error) {
	r := DateRange{Start: PlatformEpoch, End: now.UTC()}

	if s := strings.TrimSpace(start); s != "" {
		t, _, err := parseBound(s)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid start_date %q: %w", start, err)
		}
		r.Start = t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, dateOnly, err := parseBound(s)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid end_date %q: %w", end, err)
		}
		if dateOnly {
			r.End = t.AddDate(0, 0, 1)
		} else {
			r.End = t.Truncate(time.Second).Add(time.Second)
		}
	}

	if !r.End.After(r.Start) {
		return DateRange{}, fmt.Errorf("end_date %s is not after start_date %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return r, nil
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	t = t.UTC()
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// After renders the lower bound for search queries; "" when open.
func (r DateRange) After() string {
	if r.Start.IsZero() {
		return ""
	}
	return r.Start.UTC().Format(time.RFC3339)
}

// Before renders the exclusive upper bound for search queries; "" when open.
func (r DateRange) Before() string {
	if r.End.IsZero() {
		return ""
	}
	return r.End.UTC().Format(time.RFC3339)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s]", orOpen(r.After()), orOpen(r.Before()))
}

func orOpen(s string) string {
	if s == "" {
		return "open"
	}
	return s
}
