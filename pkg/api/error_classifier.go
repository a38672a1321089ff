package api

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrorClass groups API failures by who can fix them.
type ErrorClass int

const (
	ClassNone             ErrorClass = iota
	ClassQuota                       // key-scoped, rotate
	ClassCommentsDisabled            // entity-scoped, not an error for callers
	ClassTransient                   // retry in place
	ClassRemote                      // entity-scoped, stop
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassQuota:
		return "quota"
	case ClassCommentsDisabled:
		return "comments_disabled"
	case ClassTransient:
		return "transient"
	default:
		return "remote"
	}
}

var quotaReasons = map[string]bool{
	"quotaexceeded":         true,
	"dailylimitexceeded":    true,
	"ratelimitexceeded":     true,
	"userratelimitexceeded": true,
}

// ErrorClassifier maps transport errors from the Data API onto ErrorClass.
type ErrorClassifier struct{}

func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// Classify inspects the googleapi error payload first and falls back to
// network error kinds.
func (c *ErrorClassifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, ErrRateLimited) {
		return ClassQuota
	}
	if errors.Is(err, ErrCommentsDisabled) {
		return ClassCommentsDisabled
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyAPIError(gerr)
	}

	if errors.Is(err, context.Canceled) {
		return ClassRemote
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "eof") {
		return ClassTransient
	}
	return ClassRemote
}

func classifyAPIError(gerr *googleapi.Error) ErrorClass {
	for _, item := range gerr.Errors {
		reason := strings.ToLower(item.Reason)
		if quotaReasons[reason] {
			return ClassQuota
		}
		if reason == "commentsdisabled" {
			return ClassCommentsDisabled
		}
	}
	if strings.Contains(strings.ToLower(gerr.Message), "quota") ||
		strings.Contains(strings.ToLower(gerr.Body), "quota") {
		return ClassQuota
	}

	switch gerr.Code {
	case 500, 502, 503, 504:
		return ClassTransient
	}
	return ClassRemote
}

// Reason extracts the first machine reason from a googleapi error.
func Reason(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && len(gerr.Errors) > 0 {
		return gerr.Errors[0].Reason
	}
	return ""
}

// StatusCode extracts the HTTP status from a googleapi error.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
