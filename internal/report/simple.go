package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/acprobe/internal/model"
)

// SimpleWriter outputs a human-readable summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// showNames is how many names to list; 0 lists none, -1 lists all.
	showNames int

	// verbose adds the per-initial breakdown and abandoned prefixes.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowNames lists up to n discovered names (-1 for all).
func WithShowNames(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showNames = n
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the session summary.
func (w *SimpleWriter) Write(session *model.Session) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, session)
	w.writeStats(&sb, session)
	if session.Result != nil {
		w.writeNames(&sb, session.Result)
	}
	w.writeFooter(&sb, session)

	return io.WriteString(w.output, sb.String())
}

// WriteResult outputs the two summary lines of a result record.
func (w *SimpleWriter) WriteResult(result *model.Result) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Extraction complete. Found %d names.\n", result.TotalNames)
	fmt.Fprintf(&sb, "Made %d API requests.\n", result.TotalRequests)
	if w.showNames != 0 {
		w.writeNames(&sb, result)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Session) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                  AUTOCOMPLETE EXTRACTION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Endpoint:     %s\n", endpointOf(s))
	fmt.Fprintf(sb, "Alphabet:     %s (%d characters)\n", s.Alphabet.Describe(), s.Alphabet.Len())
	fmt.Fprintf(sb, "Max results:  %d\n", s.MaxResults)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:      %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if d := s.Elapsed(); d > 0 {
		fmt.Fprintf(sb, "Duration:     %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(sb, "Status:       %s\n", statusText(s))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, s *model.Session) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	names := 0
	if s.Result != nil {
		names = s.Result.TotalNames
	}
	fmt.Fprintf(sb, "  Names found:          %d\n", names)
	fmt.Fprintf(sb, "  API requests:         %d\n", s.Stats.Requests)
	fmt.Fprintf(sb, "  Prefixes queried:     %d\n", s.Stats.PrefixesQueried)
	fmt.Fprintf(sb, "  Truncated prefixes:   %d\n", s.Stats.TruncatedPrefixes)
	fmt.Fprintf(sb, "  Deepest prefix:       %d\n", s.Stats.MaxDepth)
	if s.Stats.UnorderedResponses > 0 {
		fmt.Fprintf(sb, "  Unordered responses:  %d\n", s.Stats.UnorderedResponses)
	}
	sb.WriteString("\n")

	if w.verbose && len(s.Stats.IncompletePrefixes) > 0 {
		sb.WriteString("  Abandoned prefixes (rate limited):\n")
		for _, p := range s.Stats.IncompletePrefixes {
			fmt.Fprintf(sb, "    [!] %q\n", p)
		}
		sb.WriteString("\n")
	}

	if w.verbose && s.Result != nil && len(s.Result.Names) > 0 {
		sb.WriteString("  Names by first character:\n")
		for _, ic := range countInitials(s.Result.Names) {
			fmt.Fprintf(sb, "    %s  %d\n", ic.initial, ic.count)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeNames(sb *strings.Builder, r *model.Result) {
	if w.showNames == 0 || len(r.Names) == 0 {
		return
	}
	limit := len(r.Names)
	if w.showNames > 0 && w.showNames < limit {
		limit = w.showNames
	}
	for _, name := range r.Names[:limit] {
		fmt.Fprintf(sb, "  %s\n", name)
	}
	if limit < len(r.Names) {
		fmt.Fprintf(sb, "  ... and %d more\n", len(r.Names)-limit)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, s *model.Session) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if s.ArtifactPath != "" {
		fmt.Fprintf(sb, "Results saved to %s\n", s.ArtifactPath)
	}
	if s.HistoryID > 0 {
		fmt.Fprintf(sb, "Session recorded in history as #%d\n", s.HistoryID)
	}
	if s.Result != nil {
		fmt.Fprintf(sb, "Vocabulary digest: %s\n", s.Result.Digest())
	}
}
