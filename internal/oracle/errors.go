package oracle

import "errors"

var (
	// ErrRateLimitExhausted is returned when the API kept answering HTTP 429
	// for more consecutive attempts than the configured retry limit.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrInvalidBaseURL is returned when the API base URL cannot be used
	// to build request URLs.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidProxyURL is returned when the proxy URL is malformed or
	// uses a scheme no dialer is registered for.
	ErrInvalidProxyURL = errors.New("invalid proxy URL")
)
