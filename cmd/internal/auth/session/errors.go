package session

import "errors"

var (
	// ErrNotFound is returned for any id that is not a live session.
	// It deliberately covers both "never existed" and "expired or revoked".
	ErrNotFound = errors.New("session not found")

	// ErrInvalidArgument is returned when CreateSession is called without a user id.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// ErrIDGeneration is returned when no unused session id could be produced.
	ErrIDGeneration = errors.New("session id generation failed")
)
