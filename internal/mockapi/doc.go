// Package mockapi is an in-process autocomplete API for dry runs and tests.
//
// It serves GET /{version}/autocomplete?query=...&max_results=... from a
// word list held in a patricia trie, answering with the first max_results
// words (in sorted order) that start with the query. Rate limiting can be
// simulated so that client retry behavior is exercised end to end.
package mockapi
