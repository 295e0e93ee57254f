package model

import (
	"encoding/hex"
	"slices"

	"golang.org/x/crypto/sha3"
)

// Result is the record written once at the end of a crawl session.
// Field names and tags match the persisted artifact:
//
//	{ "total_requests": 123, "total_names": 2, "names": ["alpha", "beta"] }
//
// Invariants: Names is sorted and TotalNames == len(Names).
type Result struct {
	// TotalRequests is the number of HTTP attempts made against the oracle,
	// rate-limit retries included.
	TotalRequests int64 `json:"total_requests" msgpack:"total_requests"`

	// TotalNames is the number of unique names discovered.
	TotalNames int `json:"total_names" msgpack:"total_names"`

	// Names holds every discovered name in lexicographic order.
	Names []string `json:"names" msgpack:"names"`
}

// NewResult snapshots a NameSet and request counter into a Result.
func NewResult(names NameSet, requests int64) *Result {
	sorted := names.Sorted()
	return &Result{
		TotalRequests: requests,
		TotalNames:    len(sorted),
		Names:         sorted,
	}
}

// Valid reports whether the record satisfies its invariants.
func (r *Result) Valid() bool {
	return r.TotalNames == len(r.Names) && slices.IsSorted(r.Names)
}

// Digest returns a hex-encoded SHA3-256 fingerprint of the name list.
// Two results with the same vocabulary have the same digest regardless of
// how many requests it took to discover it, which makes it cheap to tell
// whether a dataset changed between sessions.
func (r *Result) Digest() string {
	h := sha3.New256()
	for _, name := range r.Names {
		_, _ = h.Write([]byte(name)) //nolint:errcheck // hash.Hash.Write never returns an error
		_, _ = h.Write([]byte{0})    //nolint:errcheck // hash.Hash.Write never returns an error
	}
	return hex.EncodeToString(h.Sum(nil))
}
