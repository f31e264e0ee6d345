// Package numbering holds the canonical line and section (fitt) numbering of
// the poem. It is the single structural ground truth: every other source is
// validated against a Model, never merged by best-effort matching.
package numbering

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfRange reports a line or section identifier the Model does not know.
// It is distinct from a known-but-absent identifier.
var ErrOutOfRange = errors.New("out of range")

// Section is a named structural division of the poem.
type Section struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Start  int    `json:"start" yaml:"start"`
	End    int    `json:"end" yaml:"end"`
	Absent bool   `json:"absent" yaml:"absent"`
}

// Contains reports whether line n falls inside the section's range.
// An absent section contains nothing.
func (s Section) Contains(n int) bool {
	return !s.Absent && n >= s.Start && n <= s.End
}

// Len returns the number of canonical line numbers the section spans.
func (s Section) Len() int {
	if s.Absent {
		return 0
	}
	return s.End - s.Start + 1
}

// Model is an immutable numbering table. Build one with New and pass it by
// reference to every component that needs it.
type Model struct {
	first, last  int
	sections     []Section
	absentLines  map[int]bool
	markers      map[int]bool
	sectionOfRow []int // index: line-first; value: section ID or -1
}

// Table is the hand-curated input to New.
type Table struct {
	First       int
	Last        int
	Sections    []Section
	AbsentLines []int
	// Markers are line numbers displayed prominently in timed captions.
	Markers []int
}

// New validates t and returns a Model. Sections must be listed in ascending
// ID order, be contiguous and non-overlapping, and together cover every line
// from First to Last. Absent sections own no range.
func New(t Table) (*Model, error) {
	if t.First < 1 || t.Last < t.First {
		return nil, fmt.Errorf("invalid global bound %d..%d", t.First, t.Last)
	}
	m := &Model{
		first:        t.First,
		last:         t.Last,
		sections:     append([]Section(nil), t.Sections...),
		absentLines:  make(map[int]bool, len(t.AbsentLines)),
		markers:      make(map[int]bool, len(t.Markers)),
		sectionOfRow: make([]int, t.Last-t.First+1),
	}
	for i := range m.sectionOfRow {
		m.sectionOfRow[i] = -1
	}

	next := t.First
	for i, s := range m.sections {
		if i > 0 && s.ID <= m.sections[i-1].ID {
			return nil, fmt.Errorf("section %d listed after section %d", s.ID, m.sections[i-1].ID)
		}
		if s.Absent {
			if s.Start != 0 || s.End != 0 {
				return nil, fmt.Errorf("absent section %d declares range %d..%d", s.ID, s.Start, s.End)
			}
			continue
		}
		if s.Start != next {
			return nil, fmt.Errorf("section %d starts at %d, expected %d", s.ID, s.Start, next)
		}
		if s.End < s.Start || s.End > t.Last {
			return nil, fmt.Errorf("section %d has invalid range %d..%d", s.ID, s.Start, s.End)
		}
		for n := s.Start; n <= s.End; n++ {
			m.sectionOfRow[n-t.First] = s.ID
		}
		next = s.End + 1
	}
	if next != t.Last+1 {
		return nil, fmt.Errorf("sections end at %d, expected %d", next-1, t.Last)
	}

	for _, n := range t.AbsentLines {
		if n < t.First || n > t.Last {
			return nil, fmt.Errorf("absent line %d: %w", n, ErrOutOfRange)
		}
		m.absentLines[n] = true
	}
	for _, n := range t.Markers {
		m.markers[n] = true
	}
	return m, nil
}

// First returns the lowest valid canonical line number.
func (m *Model) First() int { return m.first }

// Last returns the highest valid canonical line number.
func (m *Model) Last() int { return m.last }

// Valid reports whether n lies inside the global bound.
func (m *Model) Valid(n int) bool { return n >= m.first && n <= m.last }

// Absent reports whether n is a known line lost from the manuscript.
func (m *Model) Absent(n int) bool { return m.absentLines[n] }

// Marker reports whether n is displayed as a prominent line number.
func (m *Model) Marker(n int) bool { return m.markers[n] }

// AbsentLines returns the absent line numbers in ascending order.
func (m *Model) AbsentLines() []int {
	out := make([]int, 0, len(m.absentLines))
	for n := range m.absentLines {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Line describes a canonical line number.
type Line struct {
	Number  int
	Absent  bool
	Section int
}

// LookupLine reports validity, absence, and the owning section of line n.
func (m *Model) LookupLine(n int) (Line, error) {
	if !m.Valid(n) {
		return Line{}, fmt.Errorf("line %d (valid %d..%d): %w", n, m.first, m.last, ErrOutOfRange)
	}
	return Line{Number: n, Absent: m.absentLines[n], Section: m.sectionOfRow[n-m.first]}, nil
}

// SectionOf returns the ID of the section owning line n.
func (m *Model) SectionOf(n int) (int, error) {
	l, err := m.LookupLine(n)
	if err != nil {
		return 0, err
	}
	return l.Section, nil
}

// Section returns the section with the given ID.
func (m *Model) Section(id int) (Section, error) {
	i := sort.Search(len(m.sections), func(i int) bool { return m.sections[i].ID >= id })
	if i == len(m.sections) || m.sections[i].ID != id {
		return Section{}, fmt.Errorf("section %d: %w", id, ErrOutOfRange)
	}
	return m.sections[i], nil
}

// Sections returns every section, absent ones included, in ID order.
func (m *Model) Sections() []Section {
	return append([]Section(nil), m.sections...)
}

// Heading returns the section name when n is the first line of a present
// section, and "" otherwise.
func (m *Model) Heading(n int) string {
	id, err := m.SectionOf(n)
	if err != nil || id < 0 {
		return ""
	}
	s, err := m.Section(id)
	if err != nil || s.Start != n {
		return ""
	}
	return s.Name
}
