package api

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExhausted means every key in the pool has run out of quota.
	ErrPoolExhausted = errors.New("all API keys exhausted")

	// ErrRateLimited matches any *RateLimitError through errors.Is.
	ErrRateLimited = errors.New("API key quota exceeded")

	// ErrCommentsDisabled is returned by comment fetches for videos whose
	// owner turned comments off. It is not a key problem.
	ErrCommentsDisabled = errors.New("comments disabled for video")

	// ErrNotFound marks an entity the platform returned no item for.
	ErrNotFound = errors.New("entity not found")
)

// RateLimitError reports a quota signal seen while using Key.
type RateLimitError struct {
	Key    Key
	Reason string
	Err    error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("quota exceeded for key %s (%s): %v", e.Key, e.Reason, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RemoteError is an entity-scoped failure. Switching keys will not help.
type RemoteError struct {
	Op         string
	ID         string
	StatusCode int
	Reason     string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Op, e.ID)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d", e.StatusCode)
		if e.Reason != "" {
			msg += ", " + e.Reason
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err carries a quota signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRemote reports whether err is entity-scoped.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
