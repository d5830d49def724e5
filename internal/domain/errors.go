package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFeedUnavailable is returned when the feed cannot be fetched (network, timeout, non-2xx)
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrFeedMalformed is returned when the feed cannot be decoded or structurally parsed
	ErrFeedMalformed = errors.New("feed malformed")

	// ErrFeedFailure aborts a sync run because no feed data could be obtained
	ErrFeedFailure = errors.New("feed failure")

	// ErrItemProcessing marks a failure scoped to a single product or variant
	ErrItemProcessing = errors.New("item processing failed")

	// ErrRemoteAPI is returned when a remote catalog API call fails
	ErrRemoteAPI = errors.New("remote catalog API request failed")

	// ErrSyncInProgress is returned when a run is requested while another is active
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrProductNotFound is returned when a remote product does not exist
	ErrProductNotFound = errors.New("product not found in remote catalog")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// APIError describes a failed remote catalog call.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports every APIError as ErrRemoteAPI.
func (e *APIError) Is(target error) bool {
	return target == ErrRemoteAPI
}

// Retryable reports whether the call may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ItemError is a failure scoped to one product (and optionally one variant).
type ItemError struct {
	Title     string
	SKU       string
	Operation string
	Err       error
}

func (e *ItemError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("%s %q (sku %s): %v", e.Operation, e.Title, e.SKU, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Operation, e.Title, e.Err)
}

func (e *ItemError) Unwrap() []error {
	return []error{ErrItemProcessing, e.Err}
}
