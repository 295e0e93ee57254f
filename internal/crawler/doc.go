// Package crawler enumerates the vocabulary behind an autocomplete API.
//
// # Algorithm
//
// The API caps every answer at max_results suggestions. A prefix whose
// answer is shorter than the cap has been fully enumerated. A prefix whose
// answer hits the cap is truncated, and the crawler descends into longer
// prefixes to reach the names that were cut off.
//
// Because suggestions come back sorted, the last suggestion of a truncated
// answer tells how far the answer got: every name whose next character
// sorts before the last suggestion's next character has already been
// returned. The crawler therefore only expands characters at or after that
// bound, skipping branches that cannot produce anything new.
//
// The prefix tree is never materialized. Recursion depth equals the
// prefix length, which is bounded by the longest name.
//
// # Robustness
//
// With order verification on (the default) a truncated answer that is not
// sorted, or whose last suggestion does not extend the prefix, is expanded
// over the whole alphabet instead of being pruned. Prefixes the oracle
// abandons after exhausting its rate-limit retries are recorded as
// incomplete and the crawl moves on.
//
// # Usage
//
//	c := crawler.New(client, alphabet, 50, crawler.WithLogger(logger))
//	names, err := c.Crawl(ctx)
package crawler
