package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRequest signals a malformed BrowseRequest (bad URL, failed SSRF gate).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBudgetExhausted signals no tier could run within the request's budget.
	ErrBudgetExhausted = errors.New("budget exhausted")
	// ErrAllTiersFailed signals the cascade was exhausted without a valid result.
	ErrAllTiersFailed = errors.New("all tiers failed")
	// ErrTerminal signals a terminal failure (auth, rate_limit) — not worth retrying now.
	ErrTerminal = errors.New("terminal failure")
	// ErrCancelled signals a caller-initiated cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrVectorDimMismatch signals a vector dimension mismatch against the store's configured size.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnmappedPlaceholder signals an endpoint template with a placeholder lacking an extractor.
	ErrUnmappedPlaceholder = errors.New("unmapped endpoint template placeholder")
)

// AllTiersFailedError wraps ErrAllTiersFailed with the last attempt's classified reason.
type AllTiersFailedError struct {
	LastReason string
}

func (e *AllTiersFailedError) Error() string {
	return fmt.Sprintf("%s: last reason %s", ErrAllTiersFailed.Error(), e.LastReason)
}

func (e *AllTiersFailedError) Unwrap() error { return ErrAllTiersFailed }

// NewAllTiersFailed creates an AllTiersFailedError.
func NewAllTiersFailed(lastReason string) error {
	return &AllTiersFailedError{LastReason: lastReason}
}

// TerminalError wraps ErrTerminal with the reason (auth or rate_limit).
type TerminalError struct {
	Reason string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTerminal.Error(), e.Reason)
}

func (e *TerminalError) Unwrap() error { return ErrTerminal }

// NewTerminal creates a TerminalError.
func NewTerminal(reason string) error {
	return &TerminalError{Reason: reason}
}
