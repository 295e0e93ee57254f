package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoBaseURL is returned when no API base URL is specified.
	ErrNoBaseURL = errors.New("no base URL specified: use --base-url or set it in the configuration file")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidMaxResults is returned when max_results is not positive.
	// The truncation check compares against it, so zero would make every
	// empty response look truncated.
	ErrInvalidMaxResults = errors.New("invalid max results: must be positive")

	// ErrInvalidCharlist is returned when the charlist yields no expansion characters.
	ErrInvalidCharlist = errors.New("invalid charlist: must contain at least one non-space character")

	// ErrInvalidVersion is returned when the API version is not v1, v2 or v3.
	ErrInvalidVersion = errors.New("invalid API version: must be one of v1, v2, v3")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when a cooldown or error delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: cooldowns and error delay must be non-negative")

	// ErrInvalidMaxRetries is returned when the rate-limit retry cap is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative (0 means unbounded)")

	// ErrInvalidBackoffFactor is returned when the backoff factor is below 1.
	ErrInvalidBackoffFactor = errors.New("invalid backoff factor: must be at least 1")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrNoOutputFile is returned when no result file path is configured.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrInvalidProxyURL is returned when the proxy URL is malformed or
	// uses an unsupported scheme.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: expected socks5://host:port or http://host:port")
)
