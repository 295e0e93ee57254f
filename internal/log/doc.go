// Package log provides logging for acprobe, built on top of the standard
// slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, cookies, tokens)
//   - A styled console sink (charmbracelet/log) and a plain durable log file
//   - Configurable log levels with verbose mode support
//
// # Security Features
//
// Autocomplete APIs are often protected by an API key or a session cookie
// that users put in the configuration file. The SecureHandler masks these in
// every log record so that log files can be shared when reporting results:
//   - HTTP headers (Authorization, Cookie, X-Api-Key)
//   - Attribute keys that look like credentials (password, token, secret)
//   - Values that look like credentials (JWTs, bearer tokens, long keys)
//
// # Usage
//
//	logger, closeFn, err := log.NewLogger(log.Options{
//	    Console: os.Stderr,
//	    File:    "autocomplete_extraction.log",
//	    Verbose: false,
//	})
//	defer closeFn()
//	logger.Info("query", "prefix", "ab", "count", 50)
package log
