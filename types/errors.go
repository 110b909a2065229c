package types

import (
	"errors"
	"strings"
)

// Sentinel errors shared across packages.
var (
	// ErrGroupClosed is returned when publishing state to a group that has
	// been torn down. Expected under concurrent membership churn; callers
	// racing a shutdown swallow it.
	ErrGroupClosed = errors.New("group is closed")

	// ErrGroupNotStarted is returned for group operations before Start.
	ErrGroupNotStarted = errors.New("group not started")

	// ErrConnectivity indicates a coordination service connectivity issue.
	ErrConnectivity = errors.New("coordination service connectivity error")
)

// IsNoKeysFoundError reports whether the error indicates an empty KV bucket.
//
// The NATS client returns this condition as a plain error string rather than
// a sentinel, so it is matched textually.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if the error means "no keys found"
func IsNoKeysFoundError(err error) bool {
	if err == nil {
		return false
	}

	return strings.Contains(err.Error(), "no keys found")
}
