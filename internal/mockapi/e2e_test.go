package mockapi_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/acprobe/internal/crawler"
	"github.com/nao1215/acprobe/internal/mockapi"
	"github.com/nao1215/acprobe/internal/model"
	"github.com/nao1215/acprobe/internal/oracle"
)

// vocabulary builds n distinct lowercase names with shared prefixes so
// that small pages force deep expansion.
func vocabulary(n int) []string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	words := make([]string, 0, n)
	for i := range n {
		words = append(words, fmt.Sprintf("%c%c%c%d",
			letters[i%26], letters[(i/26)%26], letters[(i/7)%26], i))
	}
	return words
}

// TestCrawlAgainstMockAPI runs the real HTTP client and crawler against
// the mock server, with rate limiting on, and checks that every name is
// recovered and every HTTP attempt is counted.
func TestCrawlAgainstMockAPI(t *testing.T) {
	t.Parallel()

	words := vocabulary(400)
	api := mockapi.New(words, mockapi.WithRateLimitEvery(17))
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const maxResults = 5

	client, err := oracle.NewClient(srv.URL, model.APIVersionV1, maxResults,
		oracle.WithLogger(logger),
		oracle.WithRateLimitCooldown(time.Millisecond),
		oracle.WithErrorDelay(time.Millisecond),
		oracle.WithMaxRateLimitRetries(3))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	alphabet := model.MustAlphabet("abcdefghijklmnopqrstuvwxyz0123456789")
	c := crawler.New(client, alphabet, maxResults, crawler.WithLogger(logger))

	names, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	want := slices.Clone(words)
	slices.Sort(want)
	if got := names.Sorted(); !slices.Equal(got, want) {
		t.Errorf("recovered %d of %d names", len(got), len(want))
	}

	stats := c.Stats()
	if stats.Requests != api.Requests() {
		t.Errorf("client counted %d requests, server saw %d", stats.Requests, api.Requests())
	}
	if api.RateLimited() == 0 {
		t.Error("expected the crawl to hit the simulated rate limit")
	}
	if len(stats.IncompletePrefixes) != 0 {
		t.Errorf("unexpected abandoned prefixes %v", stats.IncompletePrefixes)
	}
	if stats.Requests <= int64(stats.PrefixesQueried) {
		t.Errorf("retries were not counted: %d requests for %d prefixes", stats.Requests, stats.PrefixesQueried)
	}
}
