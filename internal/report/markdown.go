package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/acprobe/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxPieSlices keeps the distribution chart readable; larger alphabets
// only get the table.
const maxPieSlices = 12

// MarkdownWriter outputs sessions in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the session report in Markdown format.
func (w *MarkdownWriter) Write(session *model.Session) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, session)
	w.writeStats(md, session)
	w.writeStatusAlert(md, session)
	if session.Result != nil {
		w.writeDistribution(md, session.Result)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteResult outputs the result record as a Markdown summary with the
// name list.
func (w *MarkdownWriter) WriteResult(result *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Discovered Names")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Total Names", strconv.Itoa(result.TotalNames)},
			{"Total Requests", strconv.FormatInt(result.TotalRequests, 10)},
		},
	})
	md.PlainText("")
	if len(result.Names) > 0 {
		md.BulletList(result.Names...)
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Session) {
	md.H1("Autocomplete Extraction Report")
	md.PlainText("")

	rows := [][]string{
		{"Endpoint", "`" + endpointOf(s) + "`"},
		{"Alphabet", "`" + s.Alphabet.Describe() + "`"},
		{"Max Results", strconv.Itoa(s.MaxResults)},
	}
	if !s.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	if d := s.Elapsed(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(time.Millisecond).String()})
	}
	rows = append(rows, []string{"Status", statusText(s)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, s *model.Session) {
	md.H2("Summary")
	md.PlainText("")

	names := 0
	if s.Result != nil {
		names = s.Result.TotalNames
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Names Found", strconv.Itoa(names)},
			{"API Requests", strconv.FormatInt(s.Stats.Requests, 10)},
			{"Prefixes Queried", strconv.Itoa(s.Stats.PrefixesQueried)},
			{"Truncated Prefixes", strconv.Itoa(s.Stats.TruncatedPrefixes)},
			{"Deepest Prefix", strconv.Itoa(s.Stats.MaxDepth)},
			{"Unordered Responses", strconv.Itoa(s.Stats.UnorderedResponses)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatusAlert(md *markdown.Markdown, s *model.Session) {
	switch {
	case s.Interrupted:
		md.Warning("The crawl was interrupted. The name list is partial.")
	case s.ErrorMessage != "":
		md.Cautionf("The crawl failed: %s", s.ErrorMessage)
	case len(s.Stats.IncompletePrefixes) > 0:
		md.Importantf("%d prefixes were abandoned after repeated rate limiting; names under them may be missing.",
			len(s.Stats.IncompletePrefixes))
		md.PlainText("")
		md.BulletList(quoteAll(s.Stats.IncompletePrefixes)...)
	case s.Stats.UnorderedResponses > 0:
		md.Notef("%d truncated responses were not in prefix order and were expanded over the full alphabet.",
			s.Stats.UnorderedResponses)
	default:
		md.Tip("The prefix space was fully explored.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDistribution(md *markdown.Markdown, r *model.Result) {
	counts := countInitials(r.Names)
	if len(counts) == 0 {
		return
	}

	md.H2("Names by First Character")
	md.PlainText("")

	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{"`" + c.initial + "`", strconv.Itoa(c.count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Initial", "Names"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(counts) > maxPieSlices {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Name Distribution"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		chart.LabelAndIntValue(c.initial, uint64(c.count)) //nolint:gosec // count is never negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [acprobe](https://github.com/nao1215/acprobe)*")
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}
