package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CompletionError is a failed completion call. Status is the HTTP status of
// the endpoint, or 0 when the request never got a response.
type CompletionError struct {
	Status  int
	Message string
	Err     error
}

func (e *CompletionError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("completion request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("completion failed: status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("completion failed: status %d", e.Status)
	}
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports a throttled call: HTTP 429, or an error message that
// mentions a rate limit.
func (e *CompletionError) IsRateLimited() bool {
	if e.Status == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "rate limit")
}

// IsRateLimited reports whether err carries a throttled CompletionError.
func IsRateLimited(err error) bool {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.IsRateLimited()
	}
	return false
}
