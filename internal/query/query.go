// Package query is the read-only façade callers use: line and section
// fetches, summary statistics, dictionary and token lookups, and
// abbreviation expansion. An Engine holds only immutable structures, so any
// number of goroutines may query it concurrently.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/lexicon"
	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/token"
)

var (
	ErrInvalidRange        = errors.New("invalid line range")
	ErrUnknownSection      = errors.New("unknown section")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrNoMatch             = errors.New("no match")
	ErrUnknownAbbreviation = errors.New("unknown abbreviation")
)

// Line field names accepted by SearchLines.
const (
	FieldOldEnglish    = "old_english"
	FieldModernEnglish = "modern_english"
)

// Token field names accepted by SearchTokens.
var TokenFields = []string{"text", "lemma", "gloss", "pos", "parse", "syntax", "inflection", "with_length"}

const defaultSampleSize = 5

// Line is a canonical line as returned to callers. Absent lines carry only
// their number and owning section.
type Line struct {
	text.LineRecord
	Absent bool `json:"absent"`
}

// SectionLines is the result of GetSection. An absent section has no lines.
type SectionLines struct {
	numbering.Section
	Lines []Line `json:"lines"`
}

// Engine answers queries over an aligned corpus, a dictionary and an
// abbreviation table.
type Engine struct {
	corpus     *align.Corpus
	dict       *lexicon.Index[lexicon.Entry]
	abbrevs    *lexicon.Abbreviations
	tokens     *lexicon.Index[*token.Token]
	lineText   *lexicon.Index[text.LineRecord]
	sampleSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleSize sets how many lines Summary samples.
func WithSampleSize(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.sampleSize = n
		}
	}
}

// New builds every index the Engine serves from. The corpus must already be
// aligned; entries and abbreviations keep their source order.
func New(c *align.Corpus, entries []lexicon.Entry, abbrevs []lexicon.Abbreviation, opts ...Option) *Engine {
	e := &Engine{
		corpus:     c,
		dict:       lexicon.Build(entries, lexicon.DictionaryOptions()),
		abbrevs:    lexicon.NewAbbreviations(abbrevs),
		tokens:     lexicon.Build(c.Tokens(), tokenOptions()),
		lineText:   lexicon.Build(presentRecords(c), lineOptions()),
		sampleSize: defaultSampleSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func tokenOptions() lexicon.Options[*token.Token] {
	get := map[string]func(*token.Token) string{
		"text":        func(t *token.Token) string { return t.Text },
		"lemma":       func(t *token.Token) string { return t.Lemma },
		"gloss":       func(t *token.Token) string { return t.Gloss },
		"pos":         func(t *token.Token) string { return t.POS },
		"parse":       func(t *token.Token) string { return t.Parse },
		"syntax":      func(t *token.Token) string { return t.Syntax },
		"inflection":  func(t *token.Token) string { return t.Inflection },
		"with_length": func(t *token.Token) string { return t.WithLength },
	}
	opts := lexicon.Options[*token.Token]{Key: get["lemma"]}
	for _, name := range TokenFields {
		opts.Fields = append(opts.Fields, lexicon.Field[*token.Token]{Name: name, Value: get[name]})
	}
	return opts
}

func lineOptions() lexicon.Options[text.LineRecord] {
	return lexicon.Options[text.LineRecord]{
		Fields: []lexicon.Field[text.LineRecord]{
			{Name: FieldOldEnglish, Value: func(r text.LineRecord) string { return r.OldEnglish }},
			{Name: FieldModernEnglish, Value: func(r text.LineRecord) string { return r.ModernEnglish }},
		},
	}
}

func presentRecords(c *align.Corpus) []text.LineRecord {
	var out []text.LineRecord
	for _, l := range c.All() {
		if !l.Absent {
			out = append(out, l.LineRecord)
		}
	}
	return out
}

// Corpus returns the aligned corpus the Engine serves.
func (e *Engine) Corpus() *align.Corpus { return e.corpus }

// Model returns the numbering model of the corpus.
func (e *Engine) Model() *numbering.Model { return e.corpus.Model() }

// DictionaryFields returns the field names DictionarySearch accepts.
func (e *Engine) DictionaryFields() []string { return e.dict.Fields() }

func toLine(l *align.Line) Line {
	return Line{LineRecord: l.LineRecord, Absent: l.Absent}
}

// GetLines returns lines from..to inclusive. Absent lines are included as
// placeholders so the result length is always to-from+1.
func (e *Engine) GetLines(from, to int) ([]Line, error) {
	lines, err := e.corpus.Lines(from, to)
	if err != nil {
		m := e.Model()
		return nil, fmt.Errorf("%w: %d..%d (valid %d..%d)", ErrInvalidRange, from, to, m.First(), m.Last())
	}
	out := make([]Line, len(lines))
	for i := range lines {
		out[i] = toLine(&lines[i])
	}
	return out, nil
}

// GetSection returns every line of section id. An absent section yields its
// marker and no lines.
func (e *Engine) GetSection(id int) (SectionLines, error) {
	s, err := e.Model().Section(id)
	if err != nil {
		return SectionLines{}, fmt.Errorf("%w: %d", ErrUnknownSection, id)
	}
	res := SectionLines{Section: s, Lines: []Line{}}
	if s.Absent {
		return res, nil
	}
	res.Lines, err = e.GetLines(s.Start, s.End)
	if err != nil {
		return SectionLines{}, err
	}
	return res, nil
}

func checkQuery(op, q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("%s: %w: empty query", op, ErrInvalidQuery)
	}
	return nil
}

func lookupErr(op string, err error) error {
	switch {
	case errors.Is(err, lexicon.ErrEmptyQuery):
		return fmt.Errorf("%s: %w: empty query", op, ErrInvalidQuery)
	case errors.Is(err, lexicon.ErrUnknownField):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidQuery, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func matched[T any](op, q string, res []T, err error) ([]T, error) {
	if err != nil {
		return nil, lookupErr(op, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s %q: %w", op, q, ErrNoMatch)
	}
	return res, nil
}

// trimWildcard drops a trailing SQL or shell wildcard so "cyn%" and "cyn*"
// both mean the prefix "cyn".
func trimWildcard(p string) string {
	return strings.TrimRight(strings.TrimSpace(p), "%*")
}

// DictionaryLookup returns the entries whose headword normalizes to headword.
func (e *Engine) DictionaryLookup(headword string) ([]lexicon.Entry, error) {
	res, err := e.dict.Exact(headword)
	return matched("dictionary lookup", headword, res, err)
}

// DictionaryLookupLike returns the entries whose headword starts with
// pattern, ordered by headword.
func (e *Engine) DictionaryLookupLike(pattern string) ([]lexicon.Entry, error) {
	res, err := e.dict.Prefix(trimWildcard(pattern))
	return matched("dictionary lookup like", pattern, res, err)
}

// DictionarySearch returns the entries containing term, in any field or only
// in field when it is non-empty.
func (e *Engine) DictionarySearch(term, field string) ([]lexicon.Entry, error) {
	res, err := e.dict.Search(term, field)
	return matched("dictionary search", term, res, err)
}

// ExpandAbbreviation returns the expansion of an exact abbreviation key.
func (e *Engine) ExpandAbbreviation(key string) (lexicon.Abbreviation, error) {
	if err := checkQuery("abbreviation", key); err != nil {
		return lexicon.Abbreviation{}, err
	}
	ab, ok := e.abbrevs.Expand(key)
	if !ok {
		return lexicon.Abbreviation{}, fmt.Errorf("%w: %q", ErrUnknownAbbreviation, key)
	}
	return ab, nil
}

// SearchAbbreviations returns the abbreviations whose key contains partial.
func (e *Engine) SearchAbbreviations(partial string) ([]lexicon.Abbreviation, error) {
	if err := checkQuery("abbreviation search", partial); err != nil {
		return nil, err
	}
	return matched("abbreviation search", partial, e.abbrevs.Search(partial), nil)
}

// TokensByLemma returns every token whose lemma normalizes to lemma, verse
// and apparatus alike, in canonical order.
func (e *Engine) TokensByLemma(lemma string) ([]*token.Token, error) {
	res, err := e.tokens.Exact(lemma)
	return matched("token lemma", lemma, res, err)
}

// TokensByLemmaPrefix returns tokens whose lemma starts with pattern, ordered
// by lemma.
func (e *Engine) TokensByLemmaPrefix(pattern string) ([]*token.Token, error) {
	res, err := e.tokens.Prefix(trimWildcard(pattern))
	return matched("token lemma like", pattern, res, err)
}

// SearchTokens returns tokens with term in any of TokenFields, or only in
// field when it is non-empty.
func (e *Engine) SearchTokens(term, field string) ([]*token.Token, error) {
	res, err := e.tokens.Search(term, field)
	return matched("token search", term, res, err)
}

// TokensByLine returns the tokens of line n. Absent lines and lines without
// annotation return an empty slice.
func (e *Engine) TokensByLine(n int) ([]*token.Token, error) {
	l, err := e.corpus.Line(n)
	if err != nil {
		return nil, fmt.Errorf("%w: line %d", ErrInvalidRange, n)
	}
	return l.Tokens(), nil
}

// TokensBySection returns the tokens the annotation assigns to fitt id. The
// annotation numbers fitts independently of the canonical sections.
func (e *Engine) TokensBySection(id int) ([]*token.Token, error) {
	var out []*token.Token
	for _, t := range e.corpus.Tokens() {
		if t.Section == id {
			out = append(out, t)
		}
	}
	return matched("token section", fmt.Sprint(id), out, nil)
}

// SearchLines returns present lines whose Old or Modern English text
// contains term, or only the named language field when it is non-empty.
func (e *Engine) SearchLines(term, field string) ([]Line, error) {
	recs, err := e.lineText.Search(term, field)
	if recs, err = matched("line search", term, recs, err); err != nil {
		return nil, err
	}
	out := make([]Line, len(recs))
	for i, r := range recs {
		out[i] = Line{LineRecord: r}
	}
	return out, nil
}

// HalfLines returns the verse half-lines of lines from..to.
func (e *Engine) HalfLines(from, to int) ([]align.HalfLine, error) {
	res, err := e.corpus.HalfLines(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidRange, from, to)
	}
	return res, nil
}

// VerseByLemma returns the verse half-lines containing a token of lemma.
// Title lines and apparatus tokens never match.
func (e *Engine) VerseByLemma(lemma string) ([]align.HalfLine, error) {
	key := lexicon.Normalize(lemma)
	if key == "" {
		return nil, fmt.Errorf("verse lemma: %w: empty query", ErrInvalidQuery)
	}
	res := e.corpus.VerseMatches(func(t *token.Token) bool {
		return lexicon.Normalize(t.Lemma) == key
	})
	return matched("verse lemma", lemma, res, nil)
}
