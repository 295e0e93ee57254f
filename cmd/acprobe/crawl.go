package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nao1215/acprobe/internal/config"
	"github.com/nao1215/acprobe/internal/crawler"
	"github.com/nao1215/acprobe/internal/database"
	applog "github.com/nao1215/acprobe/internal/log"
	"github.com/nao1215/acprobe/internal/model"
	"github.com/nao1215/acprobe/internal/oracle"
	"github.com/nao1215/acprobe/internal/pipeline"
	"github.com/nao1215/acprobe/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Extract every name known to an autocomplete API",
		Long: `Crawl walks the prefix space of an autocomplete API.

Every character of the alphabet is queried as a prefix. A response holding
exactly --max-results suggestions is treated as truncated, and the prefix is
extended with the characters that can still hide unseen names. The crawl
ends when every branch has been answered in full.

The result record is written to --output (JSON by default, MessagePack for
a .msgpack extension) and the session is recorded in the history database.
Interrupting the crawl with Ctrl+C keeps the names found so far.

Examples:
  # Crawl a local API with the defaults (a-z, 50 results per page, v1)
  acprobe crawl --base-url http://127.0.0.1:8000

  # Crawl v2 with digits in the alphabet and a smaller page size
  acprobe crawl -u http://127.0.0.1:8000 --api-version v2 \
    --charlist abcdefghijklmnopqrstuvwxyz0123456789 -n 10

  # Give up on a prefix after 5 rate-limit responses, doubling the wait
  acprobe crawl -u http://127.0.0.1:8000 --max-retries 5 --backoff-factor 2

  # Write a Markdown summary next to the result record
  acprobe crawl -u http://127.0.0.1:8000 --markdown --report-file report.md

Configuration file (.acprobe) example:
  baseURL: "http://127.0.0.1:8000"
  defaults:
    maxResults: 50
  targets:
    "http://127.0.0.1:8000":
      version: "v2"
      headers:
        X-API-Key: "secret"`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Target flags
	cmd.Flags().StringP("base-url", "u", "",
		"Root URL of the autocomplete API (e.g. http://127.0.0.1:8000)")
	cmd.Flags().IntP("max-results", "n", config.DefaultMaxResults,
		"Page-size cap sent as max_results; a full page means truncation")
	cmd.Flags().String("charlist", config.DefaultCharlist,
		"Characters used to extend prefixes")
	cmd.Flags().StringP("api-version", "a", config.DefaultVersion.String(),
		"API version tag (v1, v2, v3)")

	// Transport flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("proxy", "x", "",
		"Proxy URL (socks5://, socks5h://, http://, https://)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header as 'Name: Value' (repeatable)")
	cmd.Flags().String("cookie", "",
		"Raw Cookie header value")

	// Retry flags
	cmd.Flags().Duration("rate-limit-cooldown", config.DefaultRateLimitCooldown,
		"Wait after an HTTP 429 before retrying")
	cmd.Flags().Duration("error-delay", config.DefaultErrorDelay,
		"Wait after any other non-200 response")
	cmd.Flags().Int("max-retries", config.DefaultMaxRateLimitRetries,
		"Rate-limit retries per prefix before giving up on it (0 = unbounded)")
	cmd.Flags().Float64("backoff-factor", config.DefaultBackoffFactor,
		"Multiply the cooldown by this factor after every consecutive 429")
	cmd.Flags().Duration("max-cooldown", config.DefaultMaxCooldown,
		"Upper bound for the grown cooldown")

	// Crawl behavior flags
	cmd.Flags().Bool("no-verify-order", false,
		"Trust that truncated responses are sorted without checking")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Result record path (.msgpack selects MessagePack)")
	cmd.Flags().String("log-file", config.DefaultLogFile,
		"Durable log file (empty disables it)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Only print warnings and errors to the console")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write the session summary as Markdown")
	cmd.Flags().StringP("report-file", "r", "",
		"Write the session summary to this file")
	cmd.Flags().Bool("no-history", false,
		"Do not record the session in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .acprobe in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildCrawlConfig creates a Config from defaults, the configuration file
// and the command flags, in increasing order of precedence.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; a missing default file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.File = &config.File{Targets: make(map[string]config.TargetConfig)}
	}

	cfg.BaseURL = config.NormalizeBaseURL(cfg.File.BaseURL)
	if flags.Changed("base-url") {
		baseURL, err := flags.GetString("base-url")
		if err != nil {
			return nil, err
		}
		cfg.BaseURL = config.NormalizeBaseURL(baseURL)
	}

	if err := cfg.ApplyTarget(cfg.File.GetTargetConfig(cfg.BaseURL)); err != nil {
		return nil, fmt.Errorf("invalid target configuration for %s: %w", cfg.BaseURL, err)
	}

	// Flags given on the command line win over the configuration file.
	if flags.Changed("max-results") {
		if cfg.MaxResults, err = flags.GetInt("max-results"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("charlist") {
		if cfg.Charlist, err = flags.GetString("charlist"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("api-version") {
		raw, err := flags.GetString("api-version")
		if err != nil {
			return nil, err
		}
		if cfg.Version, err = model.ParseAPIVersion(raw); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidVersion, err)
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyURL, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cookie") {
		if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
			return nil, err
		}
	}

	rawHeaders, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	headers, err := parseHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.RateLimitCooldown, err = flags.GetDuration("rate-limit-cooldown"); err != nil {
		return nil, err
	}
	if cfg.ErrorDelay, err = flags.GetDuration("error-delay"); err != nil {
		return nil, err
	}
	if cfg.MaxRateLimitRetries, err = flags.GetInt("max-retries"); err != nil {
		return nil, err
	}
	if cfg.BackoffFactor, err = flags.GetFloat64("backoff-factor"); err != nil {
		return nil, err
	}
	if cfg.MaxCooldown, err = flags.GetDuration("max-cooldown"); err != nil {
		return nil, err
	}

	noVerify, err := flags.GetBool("no-verify-order")
	if err != nil {
		return nil, err
	}
	cfg.VerifyOrder = !noVerify

	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	return cfg, nil
}

// parseHeaders parses "Name: Value" pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected 'Name: Value')", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// runCrawl executes a crawl session and prints the final counts to out.
// Console logs go to errOut.
func runCrawl(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := applog.NewLogger(applog.Options{
		Console: errOut,
		File:    cfg.LogFile,
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(errOut, "failed to close log file: %v\n", err)
		}
	}()

	httpClient, err := oracle.NewHTTPClient(oracle.TransportOptions{
		ProxyURL: cfg.ProxyURL,
		Timeout:  cfg.Timeout,
		Headers:  cfg.Headers,
		Cookie:   cfg.Cookie,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	client, err := oracle.NewClient(cfg.BaseURL, cfg.Version, cfg.MaxResults,
		oracle.WithHTTPClient(httpClient),
		oracle.WithLogger(logger),
		oracle.WithUserAgent(cfg.UserAgent),
		oracle.WithRateLimitCooldown(cfg.RateLimitCooldown),
		oracle.WithErrorDelay(cfg.ErrorDelay),
		oracle.WithMaxRateLimitRetries(cfg.MaxRateLimitRetries),
		oracle.WithBackoff(cfg.BackoffFactor, cfg.MaxCooldown),
		oracle.WithMaxBodySize(cfg.MaxBodySize),
	)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	queryLog := pipeline.NewQueryLog()
	c := crawler.New(client, alphabet, cfg.MaxResults,
		crawler.WithLogger(logger),
		crawler.WithVerifyOrder(cfg.VerifyOrder),
		crawler.WithObserver(queryLog.Observe),
	)

	logger.Info("Starting crawl",
		"endpoint", client.Endpoint(),
		"maxResults", cfg.MaxResults,
		"alphabet", alphabet.Describe(),
		"output", cfg.OutputFile,
		"proxy", cfg.ProxyURL != "",
	)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(
		pipeline.NewCrawlStep(c, logger),
		pipeline.NewPersistStep(cfg.OutputFile, logger),
	)

	if cfg.SaveToDB {
		db, err := openHistory(cfg.DBDir, logger)
		if db != nil {
			defer db.Close()
			p.AddStep(pipeline.NewHistoryStep(db, queryLog, logger))
		} else {
			logger.Warn("History disabled for this session", "error", err)
		}
	}

	summary, closeSummary, err := summaryWriter(cfg, out)
	if err != nil {
		return err
	}
	defer closeSummary()
	if summary != nil {
		p.AddStep(pipeline.NewSummaryStep(summary))
	}

	session := model.NewSession(cfg.BaseURL, cfg.Version, cfg.MaxResults, alphabet)
	execErr := p.Execute(ctx, session)

	if session.Result != nil {
		if _, err := report.NewSimpleWriter(out).WriteResult(session.Result); err != nil {
			return err
		}
	}

	if n := len(session.Stats.IncompletePrefixes); n > 0 {
		logger.Warn("Some prefixes were abandoned after repeated rate limiting; results may be incomplete",
			"prefixes", session.Stats.IncompletePrefixes)
		fmt.Fprintf(errOut, "Warning: %d prefixes were abandoned after repeated rate limiting.\n", n)
	}

	if session.Error != nil {
		return session.Error
	}
	if execErr != nil && !errors.Is(execErr, context.Canceled) {
		return execErr
	}
	if session.Interrupted {
		fmt.Fprintln(errOut, "Crawl interrupted; partial results were saved.")
	}
	return nil
}

// openHistory opens the history database. Failure is not fatal for a
// crawl, so the error is only returned for logging.
func openHistory(dir string, logger *slog.Logger) (*database.HistoryDB, error) {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, err
	}
	logger.Debug("History database opened", "path", db.Path())
	return db, nil
}

// summaryWriter returns the writer for the full session summary, or nil
// when only the final counts are wanted. The summary is produced when a
// report file or Markdown output is requested, or in verbose mode.
func summaryWriter(cfg *config.Config, out io.Writer) (report.Writer, func(), error) {
	noop := func() {}
	if cfg.ReportFile == "" && !cfg.MarkdownReport && !cfg.Verbose {
		return nil, noop, nil
	}

	dest := out
	closeFn := noop
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, noop, fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create report file: %w", err)
		}
		dest = f
		closeFn = func() { _ = f.Close() } //nolint:errcheck // report content already flushed by Write
	}

	if cfg.MarkdownReport {
		return report.NewMarkdownWriter(dest), closeFn, nil
	}
	return report.NewSimpleWriter(dest,
		report.WithVerbose(cfg.Verbose),
		report.WithShowNames(20),
	), closeFn, nil
}
