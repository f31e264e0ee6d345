// Package text builds the canonical line records of the bilingual edition.
package text

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kokistudios/beodata/internal/numbering"
)

// ErrIntegrity marks bilingual input that disagrees with the numbering model.
var ErrIntegrity = errors.New("line data disagrees with numbering")

// RawPair is one row delivered by the bilingual source.
type RawPair struct {
	Line          int    `json:"line"`
	OldEnglish    string `json:"oe"`
	ModernEnglish string `json:"me"`
	Title         bool   `json:"title,omitempty"`
}

// Empty reports whether both texts are blank.
func (p RawPair) Empty() bool {
	return strings.TrimSpace(p.OldEnglish) == "" && strings.TrimSpace(p.ModernEnglish) == ""
}

// LineRecord is the dual-language text of one present canonical line.
type LineRecord struct {
	Number        int    `json:"line_number"`
	OldEnglish    string `json:"old_english"`
	ModernEnglish string `json:"modern_english"`
	Section       int    `json:"section"`
	// Title marks a heading row. Heading rows carry no half-line tokens.
	Title bool `json:"is_title_line"`
	// Heading is the section name when the line opens a section.
	Heading string `json:"heading,omitempty"`
}

// IntegrityError names the line and the violated rule.
type IntegrityError struct {
	Line   int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// Build turns raw pairs into one LineRecord per present canonical line, in
// line order. Gaps come from the model, never from missing input: a pair at
// an absent number is rejected unless it is an empty placeholder, and every
// present number must be supplied exactly once.
func Build(m *numbering.Model, pairs []RawPair) ([]LineRecord, error) {
	byLine := make(map[int]RawPair, len(pairs))
	for _, p := range pairs {
		if !m.Valid(p.Line) {
			if p.Line == 0 && p.Empty() {
				continue // leading padding row some sources emit
			}
			return nil, &IntegrityError{Line: p.Line, Reason: fmt.Sprintf("outside %d..%d", m.First(), m.Last())}
		}
		if m.Absent(p.Line) {
			if p.Empty() {
				continue
			}
			return nil, &IntegrityError{Line: p.Line, Reason: "text supplied for a line absent from the manuscript"}
		}
		if _, dup := byLine[p.Line]; dup {
			return nil, &IntegrityError{Line: p.Line, Reason: "supplied more than once"}
		}
		byLine[p.Line] = p
	}

	records := make([]LineRecord, 0, len(byLine))
	for n := m.First(); n <= m.Last(); n++ {
		if m.Absent(n) {
			continue
		}
		p, ok := byLine[n]
		if !ok {
			return nil, &IntegrityError{Line: n, Reason: "missing from source"}
		}
		section, err := m.SectionOf(n)
		if err != nil {
			return nil, err
		}
		records = append(records, LineRecord{
			Number:        n,
			OldEnglish:    p.OldEnglish,
			ModernEnglish: p.ModernEnglish,
			Section:       section,
			Title:         p.Title,
			Heading:       m.Heading(n),
		})
	}
	return records, nil
}
