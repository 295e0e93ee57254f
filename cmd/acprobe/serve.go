package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	applog "github.com/nao1215/acprobe/internal/log"
	"github.com/nao1215/acprobe/internal/mockapi"
	"github.com/nao1215/acprobe/internal/model"
	"github.com/spf13/cobra"
)

// Defaults for the serve command.
const (
	defaultServeAddr       = "127.0.0.1:8000"
	serveReadHeaderTimeout = 10 * time.Second
	serveShutdownTimeout   = 5 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <word-list>",
		Short: "Serve a local autocomplete API from a word list",
		Long: `Serve hosts a fake autocomplete API answering
GET /{version}/autocomplete?query=...&max_results=... from a word list.

The word list holds one name per line; blank lines and lines starting with
'#' are ignored. Suggestions are returned in lexicographic order and capped
at max_results, which is what the crawler relies on. Use it to try crawl
settings without touching a real API.

Examples:
  # Serve names.txt on 127.0.0.1:8000
  acprobe serve names.txt

  # Answer every 20th request with HTTP 429
  acprobe serve --rate-limit-every 20 names.txt

  # Only serve v2 and never return more than 10 suggestions
  acprobe serve --versions v2 --limit-cap 10 names.txt`,
		Args: cobra.ExactArgs(1),
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", defaultServeAddr,
		"Address to listen on")
	cmd.Flags().Int("rate-limit-every", 0,
		"Answer every n-th request with HTTP 429 (0 disables)")
	cmd.Flags().Int("limit-cap", 0,
		"Clamp max_results to this value (0 disables)")
	cmd.Flags().StringSlice("versions", nil,
		"API versions to serve (default: all)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, args []string) error {
	logger := applog.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))

	server, err := buildMockServer(cmd, args[0], logger)
	if err != nil {
		return err
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d names on http://%s (Ctrl+C to stop)\n",
		server.Len(), listener.Addr())

	return serve(ctx, listener, server, logger)
}

// buildMockServer loads the word list and applies the command flags.
func buildMockServer(cmd *cobra.Command, wordList string, logger *slog.Logger) (*mockapi.Server, error) {
	f, err := os.Open(wordList) //nolint:gosec // User-provided word list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer f.Close()

	words, err := mockapi.LoadWords(f)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s is empty", wordList)
	}

	rateLimitEvery, err := cmd.Flags().GetInt("rate-limit-every")
	if err != nil {
		return nil, err
	}
	limitCap, err := cmd.Flags().GetInt("limit-cap")
	if err != nil {
		return nil, err
	}
	rawVersions, err := cmd.Flags().GetStringSlice("versions")
	if err != nil {
		return nil, err
	}

	opts := []mockapi.Option{
		mockapi.WithLogger(logger),
		mockapi.WithRateLimitEvery(rateLimitEvery),
		mockapi.WithLimitCap(limitCap),
	}
	if len(rawVersions) > 0 {
		versions := make([]model.APIVersion, 0, len(rawVersions))
		for _, raw := range rawVersions {
			v, err := model.ParseAPIVersion(raw)
			if err != nil {
				return nil, err
			}
			versions = append(versions, v)
		}
		opts = append(opts, mockapi.WithVersions(versions...))
	}

	return mockapi.New(words, opts...), nil
}

// serve runs the HTTP server on listener until ctx is done, then shuts
// it down gracefully.
func serve(ctx context.Context, listener net.Listener, server *mockapi.Server, logger *slog.Logger) error {
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: serveReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down",
		"requests", server.Requests(),
		"rateLimited", server.RateLimited())

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
