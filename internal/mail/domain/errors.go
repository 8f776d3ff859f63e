package domain

import "errors"

var (
	// ErrDecode marks a malformed inbound notification.
	ErrDecode = errors.New("decode error")
	// ErrUpstream marks a provider transport or auth failure while listing changes.
	ErrUpstream = errors.New("upstream error")
	// ErrEmptyHistory means the provider has no history for the cursor. Callers treat it as an empty batch.
	ErrEmptyHistory = errors.New("empty history")
	// ErrFetch marks a failure to fetch or parse a single message.
	ErrFetch = errors.New("fetch error")
	// ErrMalformedMessage marks a fetched message that can never be normalized. Refetching does not help.
	ErrMalformedMessage = errors.New("malformed message")

	// Provider level errors, mapped from API responses.
	ErrHistoryExpired = errors.New("history id expired")
	ErrUnauthorized   = errors.New("provider rejected credentials")
	ErrRateLimited    = errors.New("provider rate limited")
	ErrNotFound       = errors.New("not found")
)
