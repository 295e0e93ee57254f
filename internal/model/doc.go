// Package model defines the core data structures used throughout acprobe.
//
// This package contains the following main types:
//   - Alphabet: The ordered character set used to extend prefixes
//   - APIVersion: The autocomplete API version tag
//   - NameSet: The monotonically growing set of discovered names
//   - Result: The immutable record written at the end of a crawl
//   - Session: Everything known about a single crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, report, database and pipeline packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
