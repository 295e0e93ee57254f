// Package main provides the entry point for the acprobe CLI.
//
// acprobe recovers the full vocabulary behind an autocomplete API by
// walking its prefix space and expanding only the prefixes whose
// suggestion list was truncated.
//
// Usage:
//
//	acprobe crawl --base-url http://host:8000
//	acprobe history --list http://host:8000
//
// See --help for all available options.
package main

// main is the entry point for acprobe.
func main() {
	Execute()
}
