package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/acprobe/internal/log"
	"github.com/nao1215/acprobe/internal/model"
)

// Default configuration values.
// The crawl defaults mirror the behavior acprobe was modeled on: 50 results
// per page, the lowercase ASCII alphabet and the v1 endpoint.
const (
	// DefaultMaxResults is the page-size cap requested from the API.
	// A response with exactly this many suggestions is treated as truncated.
	DefaultMaxResults = 50

	// DefaultCharlist is the expansion alphabet.
	DefaultCharlist = model.DefaultCharlist

	// DefaultVersion is the API version tag.
	DefaultVersion = model.APIVersionV1

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimitCooldown is how long to wait after an HTTP 429
	// before re-issuing the identical request.
	DefaultRateLimitCooldown = 10 * time.Second

	// DefaultErrorDelay is how long to wait after any other non-200 status
	// before giving up on the query.
	DefaultErrorDelay = 1 * time.Second

	// DefaultMaxRateLimitRetries caps consecutive 429 retries for one query.
	// With the default cooldown this tolerates five minutes of throttling.
	// Zero means retry forever.
	DefaultMaxRateLimitRetries = 30

	// DefaultBackoffFactor of 1 keeps the cooldown fixed between retries.
	DefaultBackoffFactor = 1.0

	// DefaultMaxCooldown caps the cooldown when BackoffFactor grows it.
	DefaultMaxCooldown = 5 * time.Minute

	// DefaultOutputFile is where the result record is written.
	DefaultOutputFile = "discovered_names.json"

	// DefaultLogFile is the durable log file.
	DefaultLogFile = log.DefaultLogFile

	// DefaultUserAgent identifies acprobe in HTTP requests.
	DefaultUserAgent = "acprobe/1.0 (+https://github.com/nao1215/acprobe)"

	// DefaultMaxBodySize limits how much of a response body is read.
	// Autocomplete responses are small; 5MB leaves a wide margin.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "acprobe"
)

// Config holds all configuration options for acprobe.
// It is populated from defaults, the configuration file and CLI flags (in
// increasing order of precedence) and passed down explicitly.
type Config struct {
	// BaseURL is the root of the autocomplete API, e.g. "http://10.0.0.5:8000".
	// Requests go to {BaseURL}/{Version}/autocomplete.
	BaseURL string

	// MaxResults is the API page-size cap, sent as max_results.
	MaxResults int

	// Charlist is the raw alphabet. It is normalized, deduplicated and
	// sorted when the crawl starts (see model.NewAlphabet).
	Charlist string

	// Version is the API version tag.
	Version model.APIVersion

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RateLimitCooldown is the wait after an HTTP 429.
	RateLimitCooldown time.Duration

	// ErrorDelay is the wait after any other non-200 status.
	ErrorDelay time.Duration

	// MaxRateLimitRetries caps 429 retries for one query; 0 means unbounded.
	MaxRateLimitRetries int

	// BackoffFactor multiplies the cooldown after every consecutive 429.
	// 1 keeps it fixed.
	BackoffFactor float64

	// MaxCooldown caps the grown cooldown.
	MaxCooldown time.Duration

	// VerifyOrder makes the crawler check that truncated responses are
	// sorted before using them to prune expansion branches.
	VerifyOrder bool

	// OutputFile is the result record path. A ".msgpack" extension selects
	// MessagePack; anything else is written as indented JSON.
	OutputFile string

	// LogFile is the durable log file path. Empty disables it.
	LogFile string

	// Verbose enables Debug logging.
	Verbose bool

	// Quiet limits console output to warnings and errors.
	Quiet bool

	// ProxyURL routes API traffic through a SOCKS5 or HTTP proxy
	// (e.g. "socks5://127.0.0.1:9050"). Empty means direct.
	ProxyURL string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Headers are extra HTTP headers (e.g. an API key) sent with every request.
	Headers map[string]string

	// Cookie is a raw Cookie header value sent with every request.
	Cookie string

	// ConfigFilePath is the configuration file path. Empty means search
	// the default locations.
	ConfigFilePath string

	// File is the loaded configuration file, if any.
	File *File

	// SaveToDB records the session in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string

	// MarkdownReport writes the summary as Markdown instead of plain text.
	MarkdownReport bool

	// ReportFile is where the summary is written. Empty means stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxResults:          DefaultMaxResults,
		Charlist:            DefaultCharlist,
		Version:             DefaultVersion,
		Timeout:             DefaultTimeout,
		RateLimitCooldown:   DefaultRateLimitCooldown,
		ErrorDelay:          DefaultErrorDelay,
		MaxRateLimitRetries: DefaultMaxRateLimitRetries,
		BackoffFactor:       DefaultBackoffFactor,
		MaxCooldown:         DefaultMaxCooldown,
		VerifyOrder:         true,
		OutputFile:          DefaultOutputFile,
		LogFile:             DefaultLogFile,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
		Headers:             make(map[string]string),
		SaveToDB:            true,
		DBDir:               XDGDataDir(),
	}
}

// ApplyTarget overlays non-zero values from a target configuration.
// CLI flags are applied afterwards by the caller so they win.
func (c *Config) ApplyTarget(tc TargetConfig) error {
	if tc.MaxResults != 0 {
		c.MaxResults = tc.MaxResults
	}
	if tc.Charlist != "" {
		c.Charlist = tc.Charlist
	}
	if tc.Version != "" {
		v, err := model.ParseAPIVersion(tc.Version)
		if err != nil {
			return err
		}
		c.Version = v
	}
	if tc.Proxy != "" {
		c.ProxyURL = tc.Proxy
	}
	if tc.Cookie != "" {
		c.Cookie = tc.Cookie
	}
	if len(tc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(tc.Headers))
		}
		for k, v := range tc.Headers {
			c.Headers[k] = v
		}
	}
	return nil
}

// Alphabet returns the normalized expansion alphabet.
func (c *Config) Alphabet() (model.Alphabet, error) {
	return model.NewAlphabet(c.Charlist)
}

// XDGDataDir returns the XDG data directory for acprobe.
// On Linux: ~/.local/share/acprobe
// On macOS: ~/Library/Application Support/acprobe
// On Windows: %LOCALAPPDATA%\acprobe
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for acprobe.
// On Linux: ~/.config/acprobe
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors in
// errors.go, so callers can use errors.Is.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.MaxResults <= 0 {
		return ErrInvalidMaxResults
	}

	if _, err := c.Alphabet(); err != nil {
		return ErrInvalidCharlist
	}

	if !c.Version.Valid() {
		return ErrInvalidVersion
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RateLimitCooldown < 0 || c.ErrorDelay < 0 || c.MaxCooldown < 0 {
		return ErrInvalidDelay
	}

	if c.MaxRateLimitRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.BackoffFactor < 1 {
		return ErrInvalidBackoffFactor
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.OutputFile == "" {
		return ErrNoOutputFile
	}

	if c.ProxyURL != "" {
		p, err := url.Parse(c.ProxyURL)
		if err != nil || p.Host == "" {
			return ErrInvalidProxyURL
		}
		switch p.Scheme {
		case "socks5", "socks5h", "http", "https":
		default:
			return ErrInvalidProxyURL
		}
	}

	return nil
}
