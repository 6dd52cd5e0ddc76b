package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ClassifyAPIError maps a platform API failure to a typed error.
//
// platform names the platform for error messages ("github", "gitlab").
// op names the operation that failed. statusCode is the HTTP status of the
// response, or zero when no response was received.
//
// Callers pass every API error through here so that the rest of the system
// only ever sees the taxonomy types; a nil err returns nil.
func ClassifyAPIError(platform, op string, statusCode int, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		// 403 can also be a rate limit on GitHub; check the message first.
		if isRateLimitMessage(err) {
			return &RateLimitError{Platform: platform}
		}
		return &AuthError{Platform: platform, Err: err}
	case http.StatusTooManyRequests:
		return &RateLimitError{Platform: platform}
	case http.StatusConflict, http.StatusMethodNotAllowed, http.StatusNotAcceptable:
		return &ConflictError{Op: op, Detail: err.Error()}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case isRateLimitMessage(err):
		return &RateLimitError{Platform: platform}
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "token") && strings.Contains(errStr, "expired"):
		return &AuthError{Platform: platform, Err: err}
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return &TimeoutError{Op: op}
	}

	return err
}

func isRateLimitMessage(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "abuse detection")
}

// WithRetryAfter annotates a rate-limit error with the platform's hint.
func WithRetryAfter(err error, d time.Duration) error {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		rl.RetryAfter = d
	}
	return err
}
