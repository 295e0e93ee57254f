// Package oracle answers the question "which names start with this prefix?"
// by querying a remote autocomplete API.
//
// The API is a black box that returns at most max_results suggestions per
// query. Client hides the transport details from the crawler: rate limiting
// (HTTP 429) is retried in place after a cooldown, every other failure
// degrades to an empty answer so that a single bad prefix never aborts a
// crawl. Only context cancellation and rate-limit exhaustion surface as
// errors.
//
// Client counts every HTTP attempt, including retries, and exposes the
// count through Requests() so progress can be observed while a crawl runs.
package oracle

import "context"

// Oracle returns the suggestions the API offers for a query.
//
// A nil error with an empty slice means "nothing usable came back", which
// covers both a genuinely empty answer and a swallowed transport fault.
type Oracle interface {
	Fetch(ctx context.Context, query string) ([]string, error)
}

// Func adapts an ordinary function to the Oracle interface.
type Func func(ctx context.Context, query string) ([]string, error)

// Fetch calls f(ctx, query).
func (f Func) Fetch(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}
