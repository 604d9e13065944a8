package models

import "errors"

var (
	// ErrMalformedInput marks a session, sample or workout window that failed
	// shape validation. The record is dropped, never the whole run.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUpstreamUnavailable marks a failed fetch from the training-log provider.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
