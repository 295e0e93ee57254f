package model

import (
	"errors"
	"testing"
)

// TestNewAlphabet tests normalization, deduplication and sorting.
func TestNewAlphabet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		charlist string
		want     string
		wantErr  error
	}{
		{
			name:     "already sorted",
			charlist: "abc",
			want:     "abc",
		},
		{
			name:     "unsorted input is sorted",
			charlist: "cba",
			want:     "abc",
		},
		{
			name:     "duplicates are removed",
			charlist: "aabbcca",
			want:     "abc",
		},
		{
			name:     "separator is kept and sorts first",
			charlist: "b a",
			want:     " ab",
		},
		{
			name:     "decomposed characters are composed",
			charlist: "e\u0301e",
			want:     "e\u00e9",
		},
		{
			name:     "empty charlist is rejected",
			charlist: "",
			wantErr:  ErrEmptyAlphabet,
		},
		{
			name:     "separator-only charlist is rejected",
			charlist: "   ",
			wantErr:  ErrEmptyAlphabet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewAlphabet(tt.charlist)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewAlphabet(%q) error = %v, want %v", tt.charlist, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("NewAlphabet(%q) = %q, want %q", tt.charlist, got.String(), tt.want)
			}
		})
	}
}

// TestAlphabetLowerBound tests the pruning bound lookup.
func TestAlphabetLowerBound(t *testing.T) {
	t.Parallel()

	a := MustAlphabet("bdf")

	tests := []struct {
		r    rune
		want int
	}{
		{'a', 0},
		{'b', 0},
		{'c', 1},
		{'d', 1},
		{'f', 2},
		{'z', 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			t.Parallel()
			if got := a.LowerBound(tt.r); got != tt.want {
				t.Errorf("LowerBound(%q) = %d, want %d", tt.r, got, tt.want)
			}
		})
	}
}

// TestAlphabetExpansionFrom tests that the separator is never an expansion step.
func TestAlphabetExpansionFrom(t *testing.T) {
	t.Parallel()

	a := MustAlphabet("ab c")

	t.Run("full range skips separator", func(t *testing.T) {
		t.Parallel()
		if got := string(a.ExpansionFrom(0)); got != "abc" {
			t.Errorf("ExpansionFrom(0) = %q, want %q", got, "abc")
		}
	})

	t.Run("partial range", func(t *testing.T) {
		t.Parallel()
		if got := string(a.ExpansionFrom(2)); got != "bc" {
			t.Errorf("ExpansionFrom(2) = %q, want %q", got, "bc")
		}
	})

	t.Run("out of range is empty", func(t *testing.T) {
		t.Parallel()
		if got := a.ExpansionFrom(a.Len()); len(got) != 0 {
			t.Errorf("ExpansionFrom(Len()) = %q, want empty", string(got))
		}
	})

	t.Run("negative index is clamped", func(t *testing.T) {
		t.Parallel()
		if got := string(a.ExpansionFrom(-5)); got != "abc" {
			t.Errorf("ExpansionFrom(-5) = %q, want %q", got, "abc")
		}
	})
}

// TestAlphabetContains tests membership checks.
func TestAlphabetContains(t *testing.T) {
	t.Parallel()

	a := MustAlphabet("xyz")
	if !a.Contains('y') {
		t.Error("expected alphabet to contain 'y'")
	}
	if a.Contains('a') {
		t.Error("expected alphabet not to contain 'a'")
	}
}

// TestAlphabetTextRoundTrip tests text (un)marshaling used by config files.
func TestAlphabetTextRoundTrip(t *testing.T) {
	t.Parallel()

	var a Alphabet
	if err := a.UnmarshalText([]byte("zyx")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := a.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(text) != "xyz" {
		t.Errorf("MarshalText() = %q, want %q", text, "xyz")
	}
}
