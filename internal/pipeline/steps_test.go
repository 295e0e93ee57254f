package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/acprobe/internal/database"
	"github.com/nao1215/acprobe/internal/model"
	"github.com/nao1215/acprobe/internal/report"
)

// fakeCrawler returns a fixed set and error.
type fakeCrawler struct {
	names model.NameSet
	stats model.CrawlStats
	err   error
}

func (f *fakeCrawler) Crawl(context.Context) (model.NameSet, error) { return f.names, f.err }
func (f *fakeCrawler) Stats() model.CrawlStats                      { return f.stats }

// fakeStore records saved sessions.
type fakeStore struct {
	saved   []*model.Session
	queries []database.QueryRecord
	err     error
}

func (f *fakeStore) SaveSession(_ context.Context, s *model.Session, q []database.QueryRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, s)
	f.queries = q
	return int64(len(f.saved)), nil
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("stores result and stats", func(t *testing.T) {
		t.Parallel()

		fc := &fakeCrawler{
			names: model.NewNameSet("b", "a"),
			stats: model.CrawlStats{Requests: 7, PrefixesQueried: 3},
		}
		step := NewCrawlStep(fc, discardLogger())
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		calls := 0
		step.now = func() time.Time {
			calls++
			return start.Add(time.Duration(calls) * time.Second)
		}

		session := newTestSession()
		if err := step.Do(context.Background(), session); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if session.Result == nil || !slices.Equal(session.Result.Names, []string{"a", "b"}) {
			t.Fatalf("unexpected result %+v", session.Result)
		}
		if session.Result.TotalRequests != 7 || session.Stats.PrefixesQueried != 3 {
			t.Errorf("stats not copied: %+v / %+v", session.Result, session.Stats)
		}
		if session.Elapsed() != time.Second {
			t.Errorf("Elapsed() = %v", session.Elapsed())
		}
	})

	t.Run("cancellation keeps partial result", func(t *testing.T) {
		t.Parallel()

		fc := &fakeCrawler{names: model.NewNameSet("a"), err: context.Canceled}
		session := newTestSession()
		if err := NewCrawlStep(fc, discardLogger()).Do(context.Background(), session); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if !session.Interrupted {
			t.Error("expected session to be interrupted")
		}
		if session.Result.TotalNames != 1 {
			t.Errorf("partial result lost: %+v", session.Result)
		}
	})

	t.Run("other errors fail the step", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		fc := &fakeCrawler{err: boom}
		if err := NewCrawlStep(fc, discardLogger()).Do(context.Background(), newTestSession()); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestPersistStep(t *testing.T) {
	t.Parallel()

	t.Run("writes result", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out", "discovered_names.json")
		session := newTestSession()
		session.Result = model.NewResult(model.NewNameSet("x", "y"), 4)

		step := NewPersistStep(path, discardLogger())
		if !step.Final() {
			t.Error("persist step must be final")
		}
		if err := step.Do(context.Background(), session); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if session.ArtifactPath != path {
			t.Errorf("ArtifactPath = %q", session.ArtifactPath)
		}
		loaded, err := report.Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded.TotalNames != 2 || loaded.TotalRequests != 4 {
			t.Errorf("unexpected record %+v", loaded)
		}
	})

	t.Run("missing result", func(t *testing.T) {
		t.Parallel()

		step := NewPersistStep(filepath.Join(t.TempDir(), "x.json"), discardLogger())
		if err := step.Do(context.Background(), newTestSession()); !errors.Is(err, report.ErrNoResult) {
			t.Errorf("expected ErrNoResult, got %v", err)
		}
	})
}

func TestHistoryStep(t *testing.T) {
	t.Parallel()

	t.Run("saves session with query log", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{}
		ql := NewQueryLog()
		ql.Observe("a", 1, []string{"aa", "ab"}, true)
		ql.Observe("ab", 2, nil, false)

		session := newTestSession()
		session.Result = model.NewResult(model.NewNameSet("aa"), 2)

		if err := NewHistoryStep(store, ql, discardLogger()).Do(context.Background(), session); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if session.HistoryID != 1 {
			t.Errorf("HistoryID = %d", session.HistoryID)
		}
		want := []database.QueryRecord{
			{Prefix: "a", Depth: 1, Suggestions: 2, Truncated: true},
			{Prefix: "ab", Depth: 2, Suggestions: 0, Truncated: false},
		}
		if !slices.Equal(store.queries, want) {
			t.Errorf("queries = %+v", store.queries)
		}
	})

	t.Run("store failure is not fatal", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{err: errors.New("disk full")}
		session := newTestSession()
		session.Result = model.NewResult(model.NewNameSet("a"), 1)

		if err := NewHistoryStep(store, nil, discardLogger()).Do(context.Background(), session); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if session.HistoryID != 0 {
			t.Errorf("HistoryID = %d, want 0", session.HistoryID)
		}
	})

	t.Run("real database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		session := newTestSession()
		session.StartedAt = time.Now()
		session.FinishedAt = session.StartedAt.Add(time.Second)
		session.Result = model.NewResult(model.NewNameSet("a", "b"), 3)

		if err := NewHistoryStep(db, NewQueryLog(), discardLogger()).Do(context.Background(), session); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		names, err := db.SessionNames(context.Background(), session.HistoryID)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(names, []string{"a", "b"}) {
			t.Errorf("SessionNames() = %v", names)
		}
	})
}

func TestSummaryStep(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	session := newTestSession()
	session.Result = model.NewResult(model.NewNameSet("a"), 1)

	if err := NewSummaryStep(report.NewSimpleWriter(&buf)).Do(context.Background(), session); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !strings.Contains(buf.String(), "AUTOCOMPLETE EXTRACTION REPORT") {
		t.Errorf("unexpected summary\n%s", buf.String())
	}
}
