package model

import "slices"

// NameSet is the set of names discovered during a crawl.
// It only ever grows: names are inserted, never removed, and inserting a
// name that is already present is a no-op.
//
// NameSet is not safe for concurrent use. The crawler owns it exclusively
// and mutates it from a single goroutine.
type NameSet struct {
	names map[string]struct{}
}

// NewNameSet creates a NameSet containing the given names.
func NewNameSet(names ...string) NameSet {
	s := NameSet{names: make(map[string]struct{}, len(names))}
	s.Add(names...)
	return s
}

// Add inserts names into the set and returns how many were new.
func (s *NameSet) Add(names ...string) int {
	if s.names == nil {
		s.names = make(map[string]struct{}, len(names))
	}
	added := 0
	for _, name := range names {
		if _, ok := s.names[name]; ok {
			continue
		}
		s.names[name] = struct{}{}
		added++
	}
	return added
}

// Contains reports whether name has been discovered.
func (s NameSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of unique names.
func (s NameSet) Len() int {
	return len(s.names)
}

// Sorted returns the names in lexicographic (byte-wise) order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
