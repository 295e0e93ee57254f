// Package pipeline runs a crawl session as a sequence of steps:
// crawl the API, persist the result record, record the session in the
// history database and print a summary.
//
// Each step receives the shared *model.Session and fills in its part.
// When the context is cancelled mid-crawl (for example on Ctrl-C), the
// remaining steps that implement Finalizer still run so that the partial
// name list is written and recorded instead of being lost.
package pipeline
