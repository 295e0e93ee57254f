// Package report writes crawl results.
//
// Persist and Load handle the durable result record: the sorted name list
// with its request and name counts, stored as indented JSON or, when the
// path ends in ".msgpack" or ".mp", as MessagePack.
//
// The Writer implementations render a finished session for people and
// tools: SimpleWriter for the terminal, MarkdownWriter for sharing and
// JSONWriter for programmatic processing.
package report
