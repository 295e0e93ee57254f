package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/acprobe/internal/model"
	"github.com/nao1215/acprobe/internal/oracle"
)

// Observer is called once for every prefix the crawler queries.
// depth is the prefix length in characters. truncated reports whether the
// answer hit the max_results cap and will be expanded.
type Observer func(prefix string, depth int, suggestions []string, truncated bool)

// requestCounter is implemented by oracles that count their own HTTP
// attempts, retries included.
type requestCounter interface {
	Requests() int64
}

// Crawler discovers every name an Oracle can return by exploring prefixes.
//
// A Crawler runs one crawl at a time. Stats and Incomplete may be called
// from other goroutines while Crawl runs.
type Crawler struct {
	oracle     oracle.Oracle
	alphabet   model.Alphabet
	maxResults int

	logger      *slog.Logger
	verifyOrder bool
	observer    Observer

	// names is owned by the goroutine running Crawl.
	names model.NameSet

	mu      sync.Mutex
	stats   model.CrawlStats
	fetches int64
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVerifyOrder enables or disables the sortedness check on truncated
// answers. It is enabled by default.
func WithVerifyOrder(verify bool) Option {
	return func(c *Crawler) {
		c.verifyOrder = verify
	}
}

// WithObserver registers a callback invoked after every query.
func WithObserver(o Observer) Option {
	return func(c *Crawler) {
		c.observer = o
	}
}

// New creates a Crawler. maxResults must equal the max_results value the
// oracle sends to the API, since truncation is detected by comparing the
// answer length against it.
func New(o oracle.Oracle, alphabet model.Alphabet, maxResults int, opts ...Option) *Crawler {
	c := &Crawler{
		oracle:      o,
		alphabet:    alphabet,
		maxResults:  maxResults,
		logger:      slog.Default(),
		verifyOrder: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl explores every single-character prefix of the alphabet (the
// separator excluded) and returns the union of all suggestions seen.
//
// If ctx is cancelled the names discovered so far are returned together
// with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context) (model.NameSet, error) {
	c.reset()
	start := time.Now()

	c.logger.Info("Starting extraction",
		"alphabet", c.alphabet.Describe(),
		"max_results", c.maxResults,
		"verify_order", c.verifyOrder)

	var err error
	for _, r := range c.alphabet.ExpansionFrom(0) {
		if err = c.explore(ctx, string(r), 1); err != nil {
			break
		}
	}

	stats := c.Stats()
	if err != nil {
		c.logger.Warn("Extraction stopped early",
			"error", err,
			"elapsed", time.Since(start).Round(time.Millisecond),
			"total_requests", stats.Requests,
			"total_names", c.names.Len())
		return c.names, err
	}

	c.logger.Info("Extraction complete",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"total_requests", stats.Requests,
		"total_names", c.names.Len(),
		"prefixes", stats.PrefixesQueried,
		"truncated", stats.TruncatedPrefixes,
		"incomplete", len(stats.IncompletePrefixes))
	return c.names, nil
}

// explore queries prefix and, when the answer is truncated, every longer
// prefix that may hold names the answer cut off.
func (c *Crawler) explore(ctx context.Context, prefix string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	suggestions, err := c.oracle.Fetch(ctx, prefix)
	c.recordFetch()
	if err != nil {
		switch {
		case errors.Is(err, oracle.ErrRateLimitExhausted):
			c.logger.Warn("Giving up on prefix", "prefix", prefix, "error", err)
			c.recordIncomplete(prefix)
			suggestions = nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("failed to fetch suggestions for %q: %w", prefix, err)
		}
	}

	added := c.names.Add(suggestions...)
	truncated := len(suggestions) == c.maxResults
	c.recordQuery(depth, truncated)

	c.logger.Info("Processing prefix",
		"prefix", prefix,
		"suggestions", len(suggestions),
		"new", added,
		"total", c.names.Len())

	if c.observer != nil {
		c.observer(prefix, depth, suggestions, truncated)
	}

	if !truncated {
		return nil
	}

	for _, r := range c.alphabet.ExpansionFrom(c.lowerBound(prefix, suggestions)) {
		if err := c.explore(ctx, prefix+string(r), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// lowerBound returns the alphabet index expansion of a truncated prefix
// starts at. It is derived from the character that follows prefix in the
// last suggestion, or 0 (full range) when that suggestion is unusable.
func (c *Crawler) lowerBound(prefix string, suggestions []string) int {
	last := suggestions[len(suggestions)-1]
	prefixLen := len([]rune(prefix))
	lastRunes := []rune(last)

	if len(lastRunes) <= prefixLen {
		c.logger.Warn("Last suggestion does not extend prefix, expanding full range",
			"prefix", prefix, "last", last)
		c.recordUnordered()
		return 0
	}

	if c.verifyOrder {
		if !strings.HasPrefix(last, prefix) || !slices.IsSorted(suggestions) {
			c.logger.Warn("Suggestions not in prefix order, expanding full range",
				"prefix", prefix, "last", last)
			c.recordUnordered()
			return 0
		}
	}

	return c.alphabet.LowerBound(lastRunes[prefixLen])
}

// Stats returns a snapshot of the crawl counters.
func (c *Crawler) Stats() model.CrawlStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.IncompletePrefixes = slices.Clone(c.stats.IncompletePrefixes)
	if rc, ok := c.oracle.(requestCounter); ok {
		stats.Requests = rc.Requests()
	} else {
		stats.Requests = c.fetches
	}
	return stats
}

// Incomplete returns the prefixes abandoned after rate-limit exhaustion.
func (c *Crawler) Incomplete() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.stats.IncompletePrefixes)
}

func (c *Crawler) reset() {
	c.names = model.NewNameSet()
	c.mu.Lock()
	c.stats = model.CrawlStats{}
	c.fetches = 0
	c.mu.Unlock()
}

func (c *Crawler) recordFetch() {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
}

func (c *Crawler) recordQuery(depth int, truncated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.PrefixesQueried++
	if truncated {
		c.stats.TruncatedPrefixes++
	}
	if depth > c.stats.MaxDepth {
		c.stats.MaxDepth = depth
	}
}

func (c *Crawler) recordUnordered() {
	c.mu.Lock()
	c.stats.UnorderedResponses++
	c.mu.Unlock()
}

func (c *Crawler) recordIncomplete(prefix string) {
	c.mu.Lock()
	c.stats.IncompletePrefixes = append(c.stats.IncompletePrefixes, prefix)
	c.mu.Unlock()
}
