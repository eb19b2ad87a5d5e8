package udiff

import "slices"

// LineSet is a set of 1-based line numbers that remembers insertion order.
type LineSet struct {
	order []int
	index map[int]struct{}
}

// NewLineSet returns an empty set.
func NewLineSet() *LineSet {
	return &LineSet{index: make(map[int]struct{})}
}

// Add inserts line; adding a present line is a no-op.
func (s *LineSet) Add(line int) {
	if _, ok := s.index[line]; ok {
		return
	}

	s.index[line] = struct{}{}
	s.order = append(s.order, line)
}

// Contains reports whether line is in the set.
func (s *LineSet) Contains(line int) bool {
	_, ok := s.index[line]

	return ok
}

// Len returns the number of lines.
func (s *LineSet) Len() int {
	return len(s.order)
}

// Slice returns the lines in insertion order.
func (s *LineSet) Slice() []int {
	return slices.Clone(s.order)
}

// Sorted returns the lines in ascending order.
func (s *LineSet) Sorted() []int {
	out := slices.Clone(s.order)
	slices.Sort(out)

	return out
}
