package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/acprobe/internal/config"
	"github.com/nao1215/acprobe/internal/database"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// historyTimeFormat is how session timestamps are shown in listings.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// It compares recorded crawl sessions stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [base-url]",
		Short: "Compare recorded crawl sessions",
		Long: `History shows how the vocabulary of an API changed between crawls.

By default it compares the two most recent sessions recorded for the given
base URL and lists the names that appeared and vanished in between.

Examples:
  # Compare the latest two sessions
  acprobe history http://127.0.0.1:8000

  # List all sessions for an API
  acprobe history --list http://127.0.0.1:8000

  # Compare the latest session with a specific older one
  acprobe history --with-session 3 http://127.0.0.1:8000

  # Output the comparison as JSON
  acprobe history --json http://127.0.0.1:8000

  # List every API in the history database
  acprobe history --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List recorded sessions for the specified base URL")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all APIs recorded in the history database")
	cmd.Flags().Int64P("with-session", "i", 0,
		"Compare the latest session with the session of this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output the comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listTargets, err := cmd.Flags().GetBool("list-targets")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var baseURL string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("base URL is required (use --list-targets to see recorded APIs)")
		}
		baseURL = config.NormalizeBaseURL(args[0])
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return fmt.Errorf("no crawl history yet (run 'acprobe crawl' first): %w", err)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listTargets {
		return listRecordedTargets(ctx, db, out)
	}

	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if list {
		return listSessions(ctx, db, baseURL, out)
	}

	withSession, err := cmd.Flags().GetInt64("with-session")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	diff, err := compareSessions(ctx, db, baseURL, withSession)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputDiffJSON(out, diff)
	case markdownOutput:
		return outputDiffMarkdown(out, diff)
	default:
		return outputDiffText(out, diff)
	}
}

// listRecordedTargets lists every API that has at least one session.
func listRecordedTargets(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No crawled APIs found in the database.")
		fmt.Fprintln(out, "\nUse 'acprobe crawl --base-url <url>' to crawl an API.")
		return nil
	}

	fmt.Fprintf(out, "Crawled APIs (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(out, "  • %s  (%d sessions, last %s)\n",
			t.BaseURL, t.Sessions, t.LastRun.Local().Format(historyTimeFormat))
	}
	fmt.Fprintln(out, "\nUse 'acprobe history --list <url>' to see the sessions of an API.")

	return nil
}

// listSessions lists the sessions recorded for baseURL, newest first.
func listSessions(ctx context.Context, db *database.HistoryDB, baseURL string, out io.Writer) error {
	sessions, err := db.ListSessions(ctx, baseURL)
	if err != nil {
		return fmt.Errorf("failed to get session history: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintf(out, "No sessions found for %s\n", baseURL)
		fmt.Fprintln(out, "\nUse 'acprobe crawl' to crawl this API.")
		return nil
	}

	fmt.Fprintf(out, "Session history for %s (%d sessions):\n\n", baseURL, len(sessions))
	fmt.Fprintf(out, "  %-6s  %-20s  %-4s  %8s  %9s  %s\n", "ID", "Date", "Ver", "Names", "Requests", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))

	for _, s := range sessions {
		fmt.Fprintf(out, "  %-6d  %-20s  %-4s  %8d  %9d  %s\n",
			s.ID,
			s.StartedAt.Local().Format(historyTimeFormat),
			s.Version,
			s.TotalNames,
			s.TotalRequests,
			sessionStatus(s),
		)
	}

	fmt.Fprintln(out, "\nUse 'acprobe history <url>' to compare the latest two sessions.")
	fmt.Fprintln(out, "Use 'acprobe history --with-session <id> <url>' to compare with a specific session.")

	return nil
}

// sessionStatus describes whether a recorded session covered everything.
func sessionStatus(s database.SessionRecord) string {
	switch {
	case s.Interrupted:
		return "interrupted"
	case len(s.Stats.IncompletePrefixes) > 0:
		return fmt.Sprintf("incomplete (%d prefixes)", len(s.Stats.IncompletePrefixes))
	default:
		return "complete"
	}
}

// compareSessions diffs the latest session for baseURL against the
// previous one, or against withSession when it is set.
func compareSessions(ctx context.Context, db *database.HistoryDB, baseURL string, withSession int64) (*database.Diff, error) {
	sessions, err := db.ListSessions(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get session history: %w", err)
	}

	if len(sessions) == 0 {
		return nil, fmt.Errorf("no session history found for %s", baseURL)
	}

	latest := sessions[0]

	var oldID int64
	if withSession > 0 {
		other, err := db.GetSession(ctx, withSession)
		if err != nil {
			return nil, fmt.Errorf("failed to get session %d: %w", withSession, err)
		}
		if other.BaseURL != baseURL {
			return nil, fmt.Errorf("session %d belongs to %s, not %s", withSession, other.BaseURL, baseURL)
		}
		if other.ID == latest.ID {
			return nil, fmt.Errorf("session %d is the latest session; pick an older one", withSession)
		}
		oldID = other.ID
	} else {
		if len(sessions) < 2 {
			return nil, fmt.Errorf("at least 2 sessions are required for comparison (found %d)", len(sessions))
		}
		oldID = sessions[1].ID
	}

	return db.DiffSessions(ctx, oldID, latest.ID)
}

// outputDiffJSON writes the comparison as indented JSON.
func outputDiffJSON(out io.Writer, diff *database.Diff) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(diff)
}

// outputDiffText writes a human-readable comparison.
func outputDiffText(out io.Writer, diff *database.Diff) error {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    VOCABULARY COMPARISON\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "API:       %s\n", diff.New.BaseURL)
	fmt.Fprintf(&sb, "Previous:  #%d  %s  %d names\n",
		diff.Old.ID, diff.Old.StartedAt.Local().Format(historyTimeFormat), diff.Old.TotalNames)
	fmt.Fprintf(&sb, "Current:   #%d  %s  %d names\n",
		diff.New.ID, diff.New.StartedAt.Local().Format(historyTimeFormat), diff.New.TotalNames)
	fmt.Fprintf(&sb, "Change:    %s names\n\n", formatDelta(diff.New.TotalNames-diff.Old.TotalNames))

	if !diff.Old.Complete() || !diff.New.Complete() {
		sb.WriteString("[!] At least one session is incomplete; some differences may be crawl gaps.\n\n")
	}

	if !diff.HasChanges() {
		if diff.Old.Digest != "" && diff.Old.Digest == diff.New.Digest {
			sb.WriteString("No changes. Both sessions have the same vocabulary digest.\n")
		} else {
			sb.WriteString("No changes.\n")
		}
		_, err := io.WriteString(out, sb.String())
		return err
	}

	if len(diff.Added) > 0 {
		fmt.Fprintf(&sb, "New names (%d):\n", len(diff.Added))
		for _, name := range diff.Added {
			fmt.Fprintf(&sb, "  + %s\n", name)
		}
		sb.WriteString("\n")
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(&sb, "Vanished names (%d):\n", len(diff.Removed))
		for _, name := range diff.Removed {
			fmt.Fprintf(&sb, "  - %s\n", name)
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// outputDiffMarkdown writes the comparison as Markdown.
func outputDiffMarkdown(out io.Writer, diff *database.Diff) error {
	md := markdown.NewMarkdown(out)

	md.H1("Vocabulary Comparison")
	md.PlainTextf("API: %s", markdown.Code(diff.New.BaseURL))
	md.LF()

	md.Table(markdown.TableSet{
		Header: []string{"", "Session", "Date", "Names", "Requests", "Status"},
		Rows: [][]string{
			{"Previous", fmt.Sprintf("#%d", diff.Old.ID), diff.Old.StartedAt.UTC().Format(time.RFC3339),
				fmt.Sprint(diff.Old.TotalNames), fmt.Sprint(diff.Old.TotalRequests), sessionStatus(diff.Old)},
			{"Current", fmt.Sprintf("#%d", diff.New.ID), diff.New.StartedAt.UTC().Format(time.RFC3339),
				fmt.Sprint(diff.New.TotalNames), fmt.Sprint(diff.New.TotalRequests), sessionStatus(diff.New)},
		},
	})

	if !diff.HasChanges() {
		md.Note("No names were added or removed between these sessions.")
		return md.Build()
	}

	if len(diff.Added) > 0 {
		md.H2f("New names (%d)", len(diff.Added))
		md.BulletList(quoteCode(diff.Added)...)
	}
	if len(diff.Removed) > 0 {
		md.H2f("Vanished names (%d)", len(diff.Removed))
		md.BulletList(quoteCode(diff.Removed)...)
	}

	return md.Build()
}

// quoteCode wraps every name in inline code so that Markdown syntax in
// names is rendered literally.
func quoteCode(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = markdown.Code(n)
	}
	return out
}

// formatDelta formats a count change with an explicit sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}
