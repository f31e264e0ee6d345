// Package align merges the token stream onto the canonical line records and
// produces the immutable AlignedCorpus.
package align

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/token"
)

var (
	ErrDuplicateKey = errors.New("duplicate composite key")
	ErrOffsetTie    = errors.New("offset tie within half-line")
	ErrOrphanToken  = errors.New("orphaned token")
)

// AlignmentError is a fatal ingestion error naming the violated invariant
// and the source rows involved.
type AlignmentError struct {
	Kind   error
	Line   int
	Rows   []int
	Detail string
}

func (e *AlignmentError) Error() string {
	msg := fmt.Sprintf("%v at line %d (rows %v)", e.Kind, e.Line, e.Rows)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *AlignmentError) Unwrap() error { return e.Kind }

// CoverageWarning flags a verse line that received no tokens.
type CoverageWarning struct {
	Line int `json:"line"`
}

// Line is one canonical line of the corpus. Absent lines are placeholders
// with no record and no tokens.
type Line struct {
	text.LineRecord
	Absent bool `json:"absent"`
	// First and Second hold verse tokens of each half, ordered by offset.
	First  []*token.Token `json:"first_half,omitempty"`
	Second []*token.Token `json:"second_half,omitempty"`
	// Apparatus holds tokens with no half-line semantics: non-verse tokens
	// and anything on a title line.
	Apparatus []*token.Token `json:"apparatus,omitempty"`
}

// Verse reports whether the line takes part in half-line queries.
func (l *Line) Verse() bool {
	return !l.Absent && !l.Title
}

// TokenCount returns all tokens attached to the line.
func (l *Line) TokenCount() int {
	return len(l.First) + len(l.Second) + len(l.Apparatus)
}

// Tokens returns every token on the line in half/offset order, apparatus last.
func (l *Line) Tokens() []*token.Token {
	out := make([]*token.Token, 0, l.TokenCount())
	out = append(out, l.First...)
	out = append(out, l.Second...)
	return append(out, l.Apparatus...)
}

// Corpus is the AlignedCorpus. It is never partially constructed and is
// read-only after Align returns, so concurrent readers need no locking.
type Corpus struct {
	model    *numbering.Model
	lines    []Line // index: number - model.First()
	tokens   []*token.Token
	warnings []CoverageWarning
	drift    int
}

// Align validates tokens against the line records and builds the Corpus.
// Any duplicate key, offset tie, or orphaned token aborts construction.
func Align(m *numbering.Model, records []text.LineRecord, tokens []*token.Token) (*Corpus, error) {
	c := &Corpus{
		model: m,
		lines: make([]Line, m.Last()-m.First()+1),
	}
	for n := m.First(); n <= m.Last(); n++ {
		line := &c.lines[n-m.First()]
		line.Number = n
		line.Absent = m.Absent(n)
		if section, err := m.SectionOf(n); err == nil {
			line.Section = section
		}
	}
	present := make(map[int]bool, len(records))
	for _, r := range records {
		if !m.Valid(r.Number) || m.Absent(r.Number) {
			return nil, fmt.Errorf("line record %d: %w", r.Number, text.ErrIntegrity)
		}
		if present[r.Number] {
			return nil, fmt.Errorf("line record %d duplicated: %w", r.Number, text.ErrIntegrity)
		}
		present[r.Number] = true
		c.lines[r.Number-m.First()].LineRecord = r
	}

	// Step 1: composite key uniqueness.
	seen := make(map[token.Key]*token.Token, len(tokens))
	for _, t := range tokens {
		if prev, dup := seen[t.Key()]; dup {
			return nil, &AlignmentError{
				Kind:   ErrDuplicateKey,
				Line:   t.Line,
				Rows:   []int{prev.Row, t.Row},
				Detail: fmt.Sprintf("both rows claim %s", t.ID()),
			}
		}
		seen[t.Key()] = t
	}

	// Step 4 runs before attachment so nothing is placed when a token is orphaned.
	for _, t := range tokens {
		if !m.Valid(t.Line) || !present[t.Line] {
			return nil, &AlignmentError{
				Kind:   ErrOrphanToken,
				Line:   t.Line,
				Rows:   []int{t.Row},
				Detail: "no line record for this line number",
			}
		}
	}

	// Step 2: group by line and half, then order by offset.
	for _, t := range tokens {
		line := &c.lines[t.Line-m.First()]
		switch {
		case line.Title || t.NonVerse || t.Half == token.HalfNone:
			line.Apparatus = append(line.Apparatus, t)
		case t.Half == token.HalfFirst:
			line.First = append(line.First, t)
		default:
			line.Second = append(line.Second, t)
		}
		if t.Section != line.Section {
			c.drift++
		}
	}
	for i := range c.lines {
		line := &c.lines[i]
		for _, half := range [][]*token.Token{line.First, line.Second} {
			if err := sortHalf(line.Number, half); err != nil {
				return nil, err
			}
		}
		sort.SliceStable(line.Apparatus, func(a, b int) bool {
			return tokenLess(line.Apparatus[a], line.Apparatus[b])
		})
	}

	// Step 3: coverage.
	for i := range c.lines {
		line := &c.lines[i]
		if !line.Verse() {
			continue
		}
		if line.TokenCount() == 0 {
			c.warnings = append(c.warnings, CoverageWarning{Line: line.Number})
		}
	}

	c.tokens = make([]*token.Token, 0, len(tokens))
	for i := range c.lines {
		c.tokens = append(c.tokens, c.lines[i].Tokens()...)
	}
	return c, nil
}

func sortHalf(line int, half []*token.Token) error {
	sort.SliceStable(half, func(a, b int) bool { return half[a].Offset < half[b].Offset })
	for i := 1; i < len(half); i++ {
		if half[i].Offset == half[i-1].Offset {
			return &AlignmentError{
				Kind:   ErrOffsetTie,
				Line:   line,
				Rows:   []int{half[i-1].Row, half[i].Row},
				Detail: fmt.Sprintf("offset %d in half %q", half[i].Offset, half[i].Half),
			}
		}
	}
	return nil
}

func tokenLess(a, b *token.Token) bool {
	if a.Half != b.Half {
		return a.Half < b.Half
	}
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	return a.Row < b.Row
}

// Model returns the numbering model the corpus was aligned against.
func (c *Corpus) Model() *numbering.Model { return c.model }

// Line returns the canonical line n, which may be an absent placeholder.
func (c *Corpus) Line(n int) (*Line, error) {
	if !c.model.Valid(n) {
		return nil, fmt.Errorf("line %d: %w", n, numbering.ErrOutOfRange)
	}
	return &c.lines[n-c.model.First()], nil
}

// Lines returns lines from..to inclusive, absent placeholders included.
// Callers must not modify the returned lines.
func (c *Corpus) Lines(from, to int) ([]Line, error) {
	if !c.model.Valid(from) || !c.model.Valid(to) || from > to {
		return nil, fmt.Errorf("lines %d..%d: %w", from, to, numbering.ErrOutOfRange)
	}
	first := c.model.First()
	return c.lines[from-first : to-first+1], nil
}

// All returns every canonical line in order.
func (c *Corpus) All() []Line { return c.lines }

// Tokens returns every token in canonical order: by line, then half, then offset.
func (c *Corpus) Tokens() []*token.Token { return c.tokens }

// Warnings returns the coverage warnings found during alignment.
func (c *Corpus) Warnings() []CoverageWarning { return c.warnings }

// Drift counts tokens whose annotation fitt differs from the canonical
// section of their line.
func (c *Corpus) Drift() int { return c.drift }
