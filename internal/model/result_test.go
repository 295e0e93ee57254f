package model

import (
	"slices"
	"testing"
)

// TestNameSet tests insertion idempotence.
func TestNameSet(t *testing.T) {
	t.Parallel()

	t.Run("duplicates are absorbed", func(t *testing.T) {
		t.Parallel()

		s := NewNameSet()
		if added := s.Add("bob", "alice", "bob"); added != 2 {
			t.Errorf("Add() = %d, want 2", added)
		}
		if added := s.Add("alice"); added != 0 {
			t.Errorf("re-adding returned %d, want 0", added)
		}
		if s.Len() != 2 {
			t.Errorf("Len() = %d, want 2", s.Len())
		}
	})

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()

		var s NameSet
		s.Add("x")
		if !s.Contains("x") {
			t.Error("expected zero-value set to accept inserts")
		}
	})

	t.Run("sorted output", func(t *testing.T) {
		t.Parallel()

		s := NewNameSet("carol", "alice", "bob")
		want := []string{"alice", "bob", "carol"}
		if got := s.Sorted(); !slices.Equal(got, want) {
			t.Errorf("Sorted() = %v, want %v", got, want)
		}
	})
}

// TestNewResult tests the result record invariants.
func TestNewResult(t *testing.T) {
	t.Parallel()

	r := NewResult(NewNameSet("zed", "amy", "amy", "kim"), 17)

	if r.TotalRequests != 17 {
		t.Errorf("TotalRequests = %d, want 17", r.TotalRequests)
	}
	if r.TotalNames != 3 {
		t.Errorf("TotalNames = %d, want 3", r.TotalNames)
	}
	if !r.Valid() {
		t.Errorf("expected valid result, got %+v", r)
	}

	broken := &Result{TotalNames: 2, Names: []string{"b", "a"}}
	if broken.Valid() {
		t.Error("expected unsorted result with wrong count to be invalid")
	}
}

// TestResultDigest tests that the digest depends only on the vocabulary.
func TestResultDigest(t *testing.T) {
	t.Parallel()

	a := NewResult(NewNameSet("ab", "c"), 10)
	b := NewResult(NewNameSet("c", "ab"), 99)
	c := NewResult(NewNameSet("a", "bc"), 10)

	if a.Digest() != b.Digest() {
		t.Error("expected equal digests for equal vocabularies")
	}
	if a.Digest() == c.Digest() {
		t.Error("expected different digests when names differ only in boundaries")
	}
	if len(a.Digest()) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a.Digest()))
	}
}
