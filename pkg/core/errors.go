package core

import "errors"

// Transport decode errors. They surface to the caller as a 500 and abort the request.
var (
	ErrMalformedChunkedBody   = errors.New("malformed chunked body")
	ErrMalformedContentLength = errors.New("malformed content length")
	ErrTruncatedBody          = errors.New("request body shorter than declared")
	ErrBodyTooLarge           = errors.New("request body too large")
	ErrInvalidJSON            = errors.New("invalid json")
	ErrInvalidMultipart       = errors.New("invalid multipart body")
)

// Request and pipeline errors.
var (
	ErrUnauthorized   = errors.New("invalid secret")
	ErrQueueFull      = errors.New("processing queue is full")
	ErrArtifactWrite  = errors.New("failed to write note")
	ErrDailyLogLocked = errors.New("daily note is locked")
	ErrAudioFetch     = errors.New("failed to fetch audio")
)
