package query

import (
	"github.com/kokistudios/beodata/internal/numbering"
)

// Summary aggregates the corpus for auditing. TitleLines counts rows the
// edition flags as titles; HeadingLines counts lines that open a present
// section. Warnings lists verse lines that received no tokens; Drift counts
// tokens whose annotation fitt differs from the canonical section of their line.
type Summary struct {
	FirstLine      int                 `json:"first_line"`
	LastLine       int                 `json:"last_line"`
	TotalLines     int                 `json:"total_lines"`
	PresentLines   int                 `json:"present_lines"`
	AbsentLines    []int               `json:"absent_lines"`
	TitleLines     int                 `json:"title_lines"`
	HeadingLines   int                 `json:"heading_lines"`
	Sections       []numbering.Section `json:"sections"`
	AbsentSections []int               `json:"absent_sections"`
	Tokens         int                 `json:"tokens"`
	Warnings       []int               `json:"coverage_warnings"`
	Drift          int                 `json:"fitt_drift"`
	DictionarySize int                 `json:"dictionary_entries"`
	Abbreviations  int                 `json:"abbreviations"`
	Sample         []Line              `json:"sample"`
}

// Summary returns aggregate counts and an evenly spaced sample of present
// lines. The sample depends only on the corpus, never on chance.
func (e *Engine) Summary() Summary {
	m := e.Model()
	s := Summary{
		FirstLine:      m.First(),
		LastLine:       m.Last(),
		TotalLines:     m.Last() - m.First() + 1,
		AbsentLines:    m.AbsentLines(),
		Sections:       m.Sections(),
		AbsentSections: []int{},
		Tokens:         len(e.corpus.Tokens()),
		Warnings:       []int{},
		Drift:          e.corpus.Drift(),
		DictionarySize: e.dict.Len(),
		Abbreviations:  e.abbrevs.Len(),
	}
	for _, sec := range s.Sections {
		if sec.Absent {
			s.AbsentSections = append(s.AbsentSections, sec.ID)
		}
	}
	for _, w := range e.corpus.Warnings() {
		s.Warnings = append(s.Warnings, w.Line)
	}

	var present []Line
	all := e.corpus.All()
	for i := range all {
		if all[i].Absent {
			continue
		}
		if all[i].Title {
			s.TitleLines++
		}
		if all[i].Heading != "" {
			s.HeadingLines++
		}
		present = append(present, toLine(&all[i]))
	}
	s.PresentLines = len(present)
	s.Sample = evenSample(present, e.sampleSize)
	return s
}

// evenSample picks k items spread from the first to the last.
func evenSample[T any](items []T, k int) []T {
	n := len(items)
	if k >= n {
		return append([]T(nil), items...)
	}
	out := make([]T, 0, k)
	switch k {
	case 0:
		return out
	case 1:
		return append(out, items[0])
	}
	for i := 0; i < k; i++ {
		out = append(out, items[i*(n-1)/(k-1)])
	}
	return out
}
