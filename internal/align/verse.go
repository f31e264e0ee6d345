package align

import (
	"strings"

	"github.com/kokistudios/beodata/internal/token"
)

// HalfLine is one metrical half of a verse line.
type HalfLine struct {
	Line   int            `json:"line"`
	Half   token.HalfLine `json:"half"`
	Tokens []*token.Token `json:"tokens"`
}

// Text joins the half-line's tokens with their length marks and punctuation.
func (h HalfLine) Text() string {
	words := make([]string, len(h.Tokens))
	for i, t := range h.Tokens {
		words[i] = t.Display()
	}
	return strings.Join(words, " ")
}

// HalfLines returns the verse half-lines of lines from..to. Title lines,
// absent lines, and apparatus tokens have no half-line semantics and are
// left out.
func (c *Corpus) HalfLines(from, to int) ([]HalfLine, error) {
	lines, err := c.Lines(from, to)
	if err != nil {
		return nil, err
	}
	var out []HalfLine
	for i := range lines {
		line := &lines[i]
		if !line.Verse() {
			continue
		}
		if len(line.First) > 0 {
			out = append(out, HalfLine{Line: line.Number, Half: token.HalfFirst, Tokens: line.First})
		}
		if len(line.Second) > 0 {
			out = append(out, HalfLine{Line: line.Number, Half: token.HalfSecond, Tokens: line.Second})
		}
	}
	return out, nil
}

// VerseMatches returns the half-lines, across the whole poem, containing at
// least one verse token accepted by match.
func (c *Corpus) VerseMatches(match func(*token.Token) bool) []HalfLine {
	halves, _ := c.HalfLines(c.model.First(), c.model.Last())
	var out []HalfLine
	for _, h := range halves {
		for _, t := range h.Tokens {
			if match(t) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}
