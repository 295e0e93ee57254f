package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/acprobe/internal/database"
	"github.com/nao1215/acprobe/internal/model"
	"github.com/nao1215/acprobe/internal/report"
)

// Crawler is the part of crawler.Crawler the crawl step needs.
type Crawler interface {
	Crawl(ctx context.Context) (model.NameSet, error)
	Stats() model.CrawlStats
}

// CrawlStep runs the prefix crawl and stores the result in the session.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
	now     func() time.Time
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c Crawler, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, logger: logger, now: time.Now}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl. A cancelled crawl is not a step failure: the
// partial result is kept and the session is marked interrupted.
func (s *CrawlStep) Do(ctx context.Context, session *model.Session) error {
	session.StartedAt = s.now()
	names, err := s.crawler.Crawl(ctx)
	session.FinishedAt = s.now()

	session.Stats = s.crawler.Stats()
	session.Result = model.NewResult(names, session.Stats.Requests)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			session.Interrupted = true
			s.logger.Warn("Crawl interrupted, keeping partial results",
				"names", session.Result.TotalNames,
				"requests", session.Result.TotalRequests)
			return nil
		}
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

// PersistStep writes the result record to disk.
type PersistStep struct {
	path   string
	logger *slog.Logger
}

// NewPersistStep creates a step writing the result record to path.
func NewPersistStep(path string, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{path: path, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Final reports that partial results are persisted too.
func (s *PersistStep) Final() bool {
	return true
}

// Do writes session.Result to the configured path.
func (s *PersistStep) Do(_ context.Context, session *model.Session) error {
	if session.Result == nil {
		return report.ErrNoResult
	}
	if err := report.Persist(s.path, session.Result); err != nil {
		return err
	}
	session.ArtifactPath = s.path
	s.logger.Info("Results saved", "path", s.path, "names", session.Result.TotalNames)
	return nil
}

// QueryLog collects the per-prefix query log during a crawl.
// Its Observe method is meant to be passed to crawler.WithObserver.
type QueryLog struct {
	mu      sync.Mutex
	records []database.QueryRecord
}

// NewQueryLog creates an empty query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// Observe records one query.
func (l *QueryLog) Observe(prefix string, depth int, suggestions []string, truncated bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, database.QueryRecord{
		Prefix:      prefix,
		Depth:       depth,
		Suggestions: len(suggestions),
		Truncated:   truncated,
	})
}

// Records returns a copy of the recorded queries.
func (l *QueryLog) Records() []database.QueryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]database.QueryRecord, len(l.records))
	copy(out, l.records)
	return out
}

// SessionStore is the part of database.HistoryDB the history step needs.
type SessionStore interface {
	SaveSession(ctx context.Context, s *model.Session, queries []database.QueryRecord) (int64, error)
}

// HistoryStep records the session in the history database.
// Failures are logged and never fail the run: the result file has
// already been written by the time this step runs.
type HistoryStep struct {
	store  SessionStore
	log    *QueryLog
	logger *slog.Logger
}

// NewHistoryStep creates a history step. log may be nil.
func NewHistoryStep(store SessionStore, log *QueryLog, logger *slog.Logger) *HistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStep{store: store, log: log, logger: logger}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Final reports that interrupted sessions are recorded too.
func (s *HistoryStep) Final() bool {
	return true
}

// Do saves the session.
func (s *HistoryStep) Do(ctx context.Context, session *model.Session) error {
	if session.Result == nil {
		s.logger.Warn("No result to record in history")
		return nil
	}

	var queries []database.QueryRecord
	if s.log != nil {
		queries = s.log.Records()
	}

	id, err := s.store.SaveSession(ctx, session, queries)
	if err != nil {
		s.logger.Warn("Failed to record session in history", "error", err)
		return nil
	}
	session.HistoryID = id
	s.logger.Debug("Session recorded", "id", id, "queries", len(queries))
	return nil
}

// SummaryStep renders the session through a report.Writer.
type SummaryStep struct {
	writer report.Writer
}

// NewSummaryStep creates a summary step.
func NewSummaryStep(w report.Writer) *SummaryStep {
	return &SummaryStep{writer: w}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Final reports that a summary is printed for interrupted runs too.
func (s *SummaryStep) Final() bool {
	return true
}

// Do writes the summary.
func (s *SummaryStep) Do(_ context.Context, session *model.Session) error {
	if _, err := s.writer.Write(session); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
