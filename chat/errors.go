// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
	"time"
)

// APIError is a structured error response from the Slack Web API.
// Slack reports most failures with HTTP 200 and {"ok":false,
// "error":"code"}; rate limits use HTTP 429 with a Retry-After header.
// Callers match on the code with errors.As or [IsAPIError]:
//
//	var apiErr *chat.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == chat.ErrCodeChannelNotFound { ... }
type APIError struct {
	// Code is the Slack error code (e.g., "channel_not_found").
	Code string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// RetryAfter is how long Slack asked us to back off. Set only for
	// rate-limited responses.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("slack: %s (%d): retry after %s", e.Code, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("slack: %s (%d)", e.Code, e.StatusCode)
}

// Slack Web API error codes Parley branches on.
const (
	ErrCodeChannelNotFound  = "channel_not_found"
	ErrCodeUserNotFound     = "user_not_found"
	ErrCodeNotInChannel     = "not_in_channel"
	ErrCodeAlreadyInChannel = "already_in_channel"
	ErrCodeNameTaken        = "name_taken"
	ErrCodeMessageNotFound  = "message_not_found"
	ErrCodeAlreadyReacted   = "already_reacted"
	ErrCodeIsArchived       = "is_archived"
	ErrCodeInvalidAuth      = "invalid_auth"
	ErrCodeRateLimited      = "rate_limited"
)

// IsAPIError checks whether err is a *APIError with the given code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
