package mockapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nao1215/acprobe/internal/model"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultMaxResults is used when a request has no max_results parameter.
const DefaultMaxResults = 10

// Response is the JSON body of a successful autocomplete request.
type Response struct {
	Version string   `json:"version"`
	Count   int      `json:"count"`
	Results []string `json:"results"`
}

// Server answers autocomplete queries from a fixed vocabulary.
type Server struct {
	mu   sync.RWMutex
	trie *patricia.Trie
	size int

	logger *slog.Logger

	// limitCap clamps max_results; 0 means no clamp.
	limitCap int

	// rateLimitEvery makes every n-th request fail with 429; 0 disables.
	rateLimitEvery int64

	versions []model.APIVersion

	requests atomic.Int64
	limited  atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLimitCap clamps the max_results parameter to n, the way real APIs
// refuse oversized pages.
func WithLimitCap(n int) Option {
	return func(s *Server) {
		s.limitCap = n
	}
}

// WithRateLimitEvery answers every n-th request with HTTP 429.
func WithRateLimitEvery(n int) Option {
	return func(s *Server) {
		s.rateLimitEvery = int64(n)
	}
}

// WithVersions restricts the served API versions. All versions are
// served by default.
func WithVersions(versions ...model.APIVersion) Option {
	return func(s *Server) {
		s.versions = versions
	}
}

// New creates a Server holding words. Duplicates and blank entries are
// ignored.
func New(words []string, opts ...Option) *Server {
	s := &Server{
		trie:     patricia.NewTrie(),
		logger:   slog.New(slog.DiscardHandler),
		versions: model.AllAPIVersions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Add(words...)
	return s
}

// Add inserts words into the vocabulary.
func (s *Server) Add(words ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range words {
		if w == "" {
			continue
		}
		if s.trie.Insert(patricia.Prefix(w), struct{}{}) {
			s.size++
		}
	}
}

// Len returns the vocabulary size.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Requests returns the number of autocomplete requests received,
// rate-limited ones included.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// RateLimited returns how many requests were answered with 429.
func (s *Server) RateLimited() int64 {
	return s.limited.Load()
}

// Suggest returns up to limit words starting with prefix, sorted.
func (s *Server) Suggest(prefix string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	// VisitSubtree does not promise lexicographic order, so collect
	// everything and sort before applying the limit.
	_ = s.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error { //nolint:errcheck // visitor never fails
		out = append(out, string(p))
		return nil
	})
	slices.Sort(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Handler returns the HTTP handler serving /{version}/autocomplete.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{version}/autocomplete", s.handleAutocomplete)
	return mux
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	n := s.requests.Add(1)

	version, err := model.ParseAPIVersion(r.PathValue("version"))
	if err != nil || !slices.Contains(s.versions, version) {
		http.NotFound(w, r)
		return
	}

	if s.rateLimitEvery > 0 && n%s.rateLimitEvery == 0 {
		s.limited.Add(1)
		s.logger.Debug("Simulating rate limit", "request", n)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	query := r.URL.Query().Get("query")
	limit := DefaultMaxResults
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "max_results must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}
	if s.limitCap > 0 && limit > s.limitCap {
		limit = s.limitCap
	}

	results := s.Suggest(query, limit)
	s.logger.Debug("Autocomplete", "version", version, "query", query, "limit", limit, "count", len(results))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Response{
		Version: version.String(),
		Count:   len(results),
		Results: results,
	}); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

// LoadWords reads a word list with one entry per line. Surrounding
// whitespace is trimmed; blank lines and lines starting with '#' are
// skipped. Inner spaces are kept, so multi-word names are allowed.
func LoadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	return words, nil
}
