package model

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator is the character that separates words inside a name.
// It may appear in the alphabet, but the crawler never expands a prefix
// with it and never issues a query ending in it.
const Separator = ' '

// DefaultCharlist is the alphabet used when none is configured.
const DefaultCharlist = "abcdefghijklmnopqrstuvwxyz"

// ErrEmptyAlphabet is returned when an alphabet has no usable expansion
// characters (it is empty or contains only the separator).
var ErrEmptyAlphabet = errors.New("alphabet has no expansion characters")

// Alphabet is an ordered, deduplicated sequence of characters that defines
// the expansion order at every level of the prefix tree.
//
// Design decision: We store runes rather than bytes so that non-ASCII
// alphabets (e.g. Japanese kana or accented Latin letters) expand one
// character at a time, the same way the remote API sees them.
type Alphabet struct {
	runes []rune
}

// NewAlphabet builds an Alphabet from a charlist string.
// The input is NFC-normalized, deduplicated and sorted by code point, so
// "cba", "abc" and "aabbcc" all produce the same alphabet.
func NewAlphabet(charlist string) (Alphabet, error) {
	normalized := norm.NFC.String(charlist)

	seen := make(map[rune]struct{}, len(normalized))
	runes := make([]rune, 0, len(normalized))
	for _, r := range normalized {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		runes = append(runes, r)
	}
	slices.Sort(runes)

	a := Alphabet{runes: runes}
	if len(a.ExpansionFrom(0)) == 0 {
		return Alphabet{}, ErrEmptyAlphabet
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
// It is intended for tests and package-level defaults.
func MustAlphabet(charlist string) Alphabet {
	a, err := NewAlphabet(charlist)
	if err != nil {
		panic(err)
	}
	return a
}

// Runes returns a copy of the alphabet characters in expansion order.
func (a Alphabet) Runes() []rune {
	return slices.Clone(a.runes)
}

// Len returns the number of characters in the alphabet, separator included.
func (a Alphabet) Len() int {
	return len(a.runes)
}

// String returns the alphabet as a single string in expansion order.
func (a Alphabet) String() string {
	return string(a.runes)
}

// Contains reports whether r is part of the alphabet.
func (a Alphabet) Contains(r rune) bool {
	_, found := slices.BinarySearch(a.runes, r)
	return found
}

// LowerBound returns the index of the first character that is >= r.
// If every character is smaller than r, Len() is returned.
//
// Unlike a plain index lookup, this never fails for characters outside the
// alphabet: a suggestion that continues with an unknown character still
// yields a usable pruning bound.
func (a Alphabet) LowerBound(r rune) int {
	i, _ := slices.BinarySearch(a.runes, r)
	return i
}

// ExpansionFrom returns the characters from index i (inclusive) to the end,
// with the separator removed. An out-of-range index yields nil.
func (a Alphabet) ExpansionFrom(i int) []rune {
	if i < 0 {
		i = 0
	}
	if i >= len(a.runes) {
		return nil
	}
	out := make([]rune, 0, len(a.runes)-i)
	for _, r := range a.runes[i:] {
		if r == Separator {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Describe returns a printable form of the alphabet where the separator is
// shown as "␠" so that it is visible in logs and reports.
func (a Alphabet) Describe() string {
	return strings.ReplaceAll(a.String(), string(Separator), "␠")
}

// MarshalText implements encoding.TextMarshaler.
func (a Alphabet) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Alphabet) UnmarshalText(text []byte) error {
	parsed, err := NewAlphabet(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
