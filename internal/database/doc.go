// Package database provides SQLite-based crawl history for acprobe.
//
// Every finished (or interrupted) crawl is stored as a session together
// with its full name list and the per-prefix query log. Sessions against
// the same API can then be listed and compared to see which names appeared
// or vanished between runs.
//
// The database is a single file (acprobe.db) in the XDG data directory,
// opened through modernc.org/sqlite so no CGO toolchain is needed.
package database
