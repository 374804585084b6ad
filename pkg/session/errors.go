package session

import "errors"

var (
	// ErrSessionNotFound indicates no session exists for the id.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrSessionExpired indicates the session has passed its expiry.
	ErrSessionExpired = errors.New("session.expired")

	// ErrInvalidData indicates the data passed to CreateSession is incomplete.
	ErrInvalidData = errors.New("session.invalid_data")

	// ErrTokenGeneration indicates session id generation failed.
	ErrTokenGeneration = errors.New("session.token_generation_failed")

	// ErrStoreFailure wraps errors from a durable Store.
	ErrStoreFailure = errors.New("session.store_failure")
)
