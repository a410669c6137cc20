package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"xfeed/internal/apperr"
)

// UpstreamError is a failed platform API call. Status is the upstream HTTP
// status, or 502/504 when no response arrived.
type UpstreamError struct {
	Operation string
	Status    int
	Detail    string
	cause     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed with status %d: %s", e.Operation, e.Status, e.Detail)
}

func (e *UpstreamError) StatusCode() int { return e.Status }

func (e *UpstreamError) Is(target error) bool {
	return target == apperr.ErrUpstreamUnavailable
}

func (e *UpstreamError) Unwrap() error { return e.cause }

// extractDetail pulls a human-readable message out of an API error body:
// "detail", then "title", then the first errors[].message, then the raw
// body, then fallback.
func extractDetail(body []byte, fallback string) string {
	var problem struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		switch {
		case problem.Detail != "":
			return problem.Detail
		case problem.Title != "":
			return problem.Title
		case len(problem.Errors) > 0 && problem.Errors[0].Message != "":
			return problem.Errors[0].Message
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return truncate(s, 512)
	}
	return fallback
}
