package client

import "errors"

var (
	// ErrInvalidInput indicates malformed input (not a video ID/url).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFetched indicates Init was called before Prefetch completed.
	ErrNotFetched = errors.New("session not fetched")
	// ErrNoStreams indicates the session is ready but holds no stream variants.
	ErrNoStreams = errors.New("no streams")
	// ErrEmptyPayload indicates a transport call returned an empty body for a
	// required artifact.
	ErrEmptyPayload = errors.New("empty payload")
)
