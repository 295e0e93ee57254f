package model

import "time"

// CrawlStats contains counters describing how a crawl unfolded.
type CrawlStats struct {
	// Requests is the number of oracle invocations (HTTP attempts).
	Requests int64 `json:"requests"`

	// PrefixesQueried is the number of prefixes passed to the oracle.
	PrefixesQueried int `json:"prefixes_queried"`

	// TruncatedPrefixes is the number of prefixes whose result hit the
	// max_results cap and were therefore expanded.
	TruncatedPrefixes int `json:"truncated_prefixes"`

	// MaxDepth is the length (in characters) of the longest prefix queried.
	MaxDepth int `json:"max_depth"`

	// UnorderedResponses counts truncated responses whose order could not be
	// confirmed, so pruning fell back to the full alphabet range.
	UnorderedResponses int `json:"unordered_responses"`

	// IncompletePrefixes lists prefixes the oracle gave up on after
	// exhausting its rate-limit retries. Their subtrees may be missing.
	IncompletePrefixes []string `json:"incomplete_prefixes,omitempty"`
}

// Session holds everything known about a single crawl run.
// It is threaded through the pipeline steps, each of which fills in its
// part (crawl result, artifact path, history ID).
type Session struct {
	// BaseURL is the root of the autocomplete API (e.g. "http://host:8000").
	BaseURL string `json:"base_url"`

	// Version is the API version tag used for every request.
	Version APIVersion `json:"version"`

	// MaxResults is the API page-size cap.
	MaxResults int `json:"max_results"`

	// Alphabet is the expansion alphabet.
	Alphabet Alphabet `json:"charlist"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl stopped (completed or interrupted).
	FinishedAt time.Time `json:"finished_at"`

	// Result is the crawl outcome. Nil until the crawl step has run.
	Result *Result `json:"result,omitempty"`

	// Stats describes how the crawl unfolded.
	Stats CrawlStats `json:"stats"`

	// ArtifactPath is where the result record was written.
	ArtifactPath string `json:"artifact_path,omitempty"`

	// HistoryID is the ID of the session in the history database (0 if not saved).
	HistoryID int64 `json:"history_id,omitempty"`

	// Interrupted is true when the crawl was cancelled before exhausting
	// the prefix space. The result is then partial.
	Interrupted bool `json:"interrupted"`

	// Error holds the first step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewSession creates a Session for a crawl against baseURL.
func NewSession(baseURL string, version APIVersion, maxResults int, alphabet Alphabet) *Session {
	return &Session{
		BaseURL:    baseURL,
		Version:    version,
		MaxResults: maxResults,
		Alphabet:   alphabet,
	}
}

// Elapsed returns the crawl duration. It is zero until FinishedAt is set.
func (s *Session) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Complete reports whether the crawl covered the whole prefix space:
// it was not interrupted and no prefix was abandoned.
func (s *Session) Complete() bool {
	return !s.Interrupted && s.Error == nil && len(s.Stats.IncompletePrefixes) == 0
}
