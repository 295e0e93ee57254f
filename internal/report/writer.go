package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/acprobe/internal/model"
)

// Writer renders crawl sessions.
//
// Write outputs the whole session (target, statistics, status).
// WriteResult outputs only the result record.
type Writer interface {
	Write(session *model.Session) (int, error)
	WriteResult(result *model.Result) (int, error)
}

// Output format names accepted by NewWriter.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatMsgpack  = "msgpack"
)

// NewWriter returns a Writer for the named format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMsgpack:
		return NewMsgpackWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the session to every Writer, stopping at the first error.
func (m *MultiWriter) Write(session *model.Session) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(session)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteResult outputs the result to every Writer, stopping at the first error.
func (m *MultiWriter) WriteResult(result *model.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteResult(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// initialCount is the number of names starting with a given character.
type initialCount struct {
	initial string
	count   int
}

// countInitials groups sorted names by their first character, in order.
func countInitials(names []string) []initialCount {
	var out []initialCount
	for _, name := range names {
		r := []rune(name)
		if len(r) == 0 {
			continue
		}
		initial := string(r[0])
		if n := len(out); n > 0 && out[n-1].initial == initial {
			out[n-1].count++
			continue
		}
		out = append(out, initialCount{initial: initial, count: 1})
	}
	return out
}

// statusText describes how a session ended.
func statusText(s *model.Session) string {
	switch {
	case s.Interrupted:
		return "Interrupted (partial results)"
	case s.ErrorMessage != "":
		return "Error - " + s.ErrorMessage
	case len(s.Stats.IncompletePrefixes) > 0:
		return fmt.Sprintf("Incomplete (%d prefixes abandoned)", len(s.Stats.IncompletePrefixes))
	default:
		return "Complete"
	}
}

// endpointOf returns the autocomplete URL the session queried.
func endpointOf(s *model.Session) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + s.Version.String() + "/autocomplete"
}
