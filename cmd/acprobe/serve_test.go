package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/acprobe/internal/mockapi"
)

func writeWordList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildMockServer(t *testing.T) {
	t.Parallel()

	t.Run("loads words and options", func(t *testing.T) {
		t.Parallel()

		cmd := NewServeCmd()
		if err := cmd.ParseFlags([]string{"--limit-cap", "2", "--versions", "v2"}); err != nil {
			t.Fatal(err)
		}
		path := writeWordList(t, "# names\nbeta\nalpha\n\nalpine\nalpha\n")

		server, err := buildMockServer(cmd, path, discardLogger())
		if err != nil {
			t.Fatalf("buildMockServer() error = %v", err)
		}
		if server.Len() != 3 {
			t.Errorf("Len() = %d, want 3", server.Len())
		}
		if got := server.Suggest("al", 10); !slices.Equal(got, []string{"alpha", "alpine"}) {
			t.Errorf("Suggest() = %v", got)
		}
	})

	t.Run("empty word list", func(t *testing.T) {
		t.Parallel()
		if _, err := buildMockServer(NewServeCmd(), writeWordList(t, "# nothing\n"), discardLogger()); err == nil {
			t.Error("expected error for empty word list")
		}
	})

	t.Run("missing word list", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(t.TempDir(), "missing.txt")
		if _, err := buildMockServer(NewServeCmd(), missing, discardLogger()); err == nil {
			t.Error("expected error for missing word list")
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		cmd := NewServeCmd()
		if err := cmd.ParseFlags([]string{"--versions", "v7"}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildMockServer(cmd, writeWordList(t, "a\n"), discardLogger()); err == nil {
			t.Error("expected error for unknown version")
		}
	})
}

func TestServe(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	server := mockapi.New([]string{"alpha", "alpine", "beta"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, listener, server, discardLogger())
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + listener.Addr().String() + "/v1/autocomplete?query=al&max_results=1")
	if err != nil {
		cancel()
		t.Fatalf("request failed: %v", err)
	}
	var body mockapi.Response
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil {
		cancel()
		t.Fatalf("invalid body: %v", err)
	}
	if !slices.Equal(body.Results, []string{"alpha"}) {
		t.Errorf("Results = %v", body.Results)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
