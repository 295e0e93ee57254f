package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/acprobe/internal/model"
)

// DBFileName is the database file name inside the data directory.
const DBFileName = "acprobe.db"

// storedTimeFormat has a fixed-width fraction so that stored timestamps
// sort chronologically as text.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryDB stores crawl sessions in SQLite.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// foreign_keys is per connection, so it goes in the DSN.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already returning an error
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already returning an error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		version TEXT NOT NULL,
		max_results INTEGER NOT NULL,
		charlist TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total_requests INTEGER NOT NULL,
		total_names INTEGER NOT NULL,
		digest TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		stats_json TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_base_url ON sessions(base_url);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Names discovered in a session
	CREATE TABLE IF NOT EXISTS names (
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		PRIMARY KEY (session_id, name)
	);

	-- Per-prefix query log
	CREATE TABLE IF NOT EXISTS queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		prefix TEXT NOT NULL,
		depth INTEGER NOT NULL,
		suggestions INTEGER NOT NULL,
		truncated INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queries_session ON queries(session_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// QueryRecord is one entry of the per-prefix query log.
type QueryRecord struct {
	Prefix      string `json:"prefix"`
	Depth       int    `json:"depth"`
	Suggestions int    `json:"suggestions"`
	Truncated   bool   `json:"truncated"`
}

// SessionRecord is the stored summary of a crawl session.
type SessionRecord struct {
	ID            int64            `json:"id"`
	BaseURL       string           `json:"base_url"`
	Version       string           `json:"version"`
	MaxResults    int              `json:"max_results"`
	Charlist      string           `json:"charlist"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	TotalRequests int64            `json:"total_requests"`
	TotalNames    int              `json:"total_names"`
	Digest        string           `json:"digest"`
	Interrupted   bool             `json:"interrupted"`
	Stats         model.CrawlStats `json:"stats"`
}

// Complete reports whether the session explored the whole prefix space.
func (r SessionRecord) Complete() bool {
	return !r.Interrupted && len(r.Stats.IncompletePrefixes) == 0
}

// SaveSession stores a session with its names and query log in one
// transaction and returns the new session ID.
func (h *HistoryDB) SaveSession(ctx context.Context, s *model.Session, queries []QueryRecord) (int64, error) {
	if s.Result == nil {
		return 0, errors.New("cannot save session without result")
	}

	statsJSON, err := json.Marshal(s.Stats)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize stats: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (base_url, version, max_results, charlist, started_at, finished_at,
		total_requests, total_names, digest, interrupted, stats_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		normalizeBaseURL(s.BaseURL),
		s.Version.String(),
		s.MaxResults,
		s.Alphabet.String(),
		s.StartedAt.UTC().Format(storedTimeFormat),
		s.FinishedAt.UTC().Format(storedTimeFormat),
		s.Result.TotalRequests,
		s.Result.TotalNames,
		s.Result.Digest(),
		boolToInt(s.Interrupted),
		string(statsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session ID: %w", err)
	}

	nameStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO names (session_id, name) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare name insert: %w", err)
	}
	defer nameStmt.Close()
	for _, name := range s.Result.Names {
		if _, err := nameStmt.ExecContext(ctx, id, name); err != nil {
			return 0, fmt.Errorf("failed to insert name: %w", err)
		}
	}

	queryStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO queries (session_id, prefix, depth, suggestions, truncated) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare query insert: %w", err)
	}
	defer queryStmt.Close()
	for _, q := range queries {
		if _, err := queryStmt.ExecContext(ctx, id, q.Prefix, q.Depth, q.Suggestions, boolToInt(q.Truncated)); err != nil {
			return 0, fmt.Errorf("failed to insert query: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	return id, nil
}

const sessionColumns = `id, base_url, version, max_results, charlist, started_at, finished_at,
	total_requests, total_names, digest, interrupted, stats_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var (
		rec         SessionRecord
		started     string
		finished    string
		interrupted int
		statsJSON   sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.BaseURL, &rec.Version, &rec.MaxResults, &rec.Charlist,
		&started, &finished, &rec.TotalRequests, &rec.TotalNames, &rec.Digest,
		&interrupted, &statsJSON)
	if err != nil {
		return SessionRecord{}, err
	}
	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished)
	rec.Interrupted = interrupted != 0
	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &rec.Stats); err != nil {
			rec.Stats = model.CrawlStats{}
		}
	}
	return rec, nil
}

// GetSession returns the session with the given ID.
func (h *HistoryDB) GetSession(ctx context.Context, id int64) (*SessionRecord, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &rec, nil
}

// ListSessions returns the sessions recorded for baseURL, newest first.
func (h *HistoryDB) ListSessions(ctx context.Context, baseURL string) ([]SessionRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT `+sessionColumns+` FROM sessions
	WHERE base_url = ?
	ORDER BY started_at DESC, id DESC
	`, normalizeBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TargetSummary describes one API that has been crawled.
type TargetSummary struct {
	BaseURL  string    `json:"base_url"`
	Sessions int       `json:"sessions"`
	LastRun  time.Time `json:"last_run"`
}

// ListTargets returns every base URL with at least one session.
func (h *HistoryDB) ListTargets(ctx context.Context) ([]TargetSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT base_url, COUNT(*), MAX(started_at) FROM sessions
	GROUP BY base_url
	ORDER BY base_url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var out []TargetSummary
	for rows.Next() {
		var ts TargetSummary
		var last string
		if err := rows.Scan(&ts.BaseURL, &ts.Sessions, &last); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		ts.LastRun = parseTimestamp(last)
		out = append(out, ts)
	}
	return out, rows.Err()
}

// SessionNames returns the names discovered in a session, sorted.
func (h *HistoryDB) SessionNames(ctx context.Context, id int64) ([]string, error) {
	return h.queryNames(ctx, `SELECT name FROM names WHERE session_id = ? ORDER BY name`, id)
}

// SessionQueries returns the query log of a session in crawl order.
func (h *HistoryDB) SessionQueries(ctx context.Context, id int64) ([]QueryRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT prefix, depth, suggestions, truncated FROM queries
	WHERE session_id = ?
	ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get queries: %w", err)
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var q QueryRecord
		var truncated int
		if err := rows.Scan(&q.Prefix, &q.Depth, &q.Suggestions, &truncated); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		q.Truncated = truncated != 0
		out = append(out, q)
	}
	return out, rows.Err()
}

// Diff lists how the vocabulary changed between two sessions.
type Diff struct {
	Old     SessionRecord `json:"old"`
	New     SessionRecord `json:"new"`
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
}

// HasChanges reports whether any name was added or removed.
func (d *Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// DiffSessions compares the names of two sessions.
// Added holds names present in newID but not oldID, Removed the reverse.
func (h *HistoryDB) DiffSessions(ctx context.Context, oldID, newID int64) (*Diff, error) {
	oldRec, err := h.GetSession(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newRec, err := h.GetSession(ctx, newID)
	if err != nil {
		return nil, err
	}

	const except = `
	SELECT name FROM names WHERE session_id = ?
	EXCEPT
	SELECT name FROM names WHERE session_id = ?
	ORDER BY name
	`
	added, err := h.queryNames(ctx, except, newID, oldID)
	if err != nil {
		return nil, err
	}
	removed, err := h.queryNames(ctx, except, oldID, newID)
	if err != nil {
		return nil, err
	}

	return &Diff{
		Old:     *oldRec,
		New:     *newRec,
		Added:   added,
		Removed: removed,
	}, nil
}

// DeleteSession removes a session with its names and query log.
func (h *HistoryDB) DeleteSession(ctx context.Context, id int64) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	return nil
}

func (h *HistoryDB) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
