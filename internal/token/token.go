// Package token parses the lemmatized, half-line annotated transcription:
// one pipe-delimited row per token.
package token

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedRow marks a row that cannot become a Token.
var ErrMalformedRow = errors.New("malformed token row")

// Columns lists the row fields in source order.
var Columns = []string{
	"fitt_id",
	"para_id",
	"para_first",
	"non_verse",
	"line_id",
	"half_line",
	"token_offset",
	"caesura_code",
	"pre_punc",
	"text",
	"post_punc",
	"syntax",
	"parse",
	"lemma",
	"pos",
	"inflection",
	"gloss",
	"with_length",
}

const (
	colFitt = iota
	colPara
	colParaFirst
	colNonVerse
	colLine
	colHalf
	colOffset
	colCaesura
	colPrePunc
	colText
	colPostPunc
	colSyntax
	colParse
	colLemma
	colPOS
	colInflection
	colGloss
	colWithLength
)

// HalfLine designates the first ("a") or second ("b") half of a verse line.
type HalfLine string

const (
	HalfNone   HalfLine = ""
	HalfFirst  HalfLine = "a"
	HalfSecond HalfLine = "b"
)

// Token is one annotated word of the poem.
type Token struct {
	// Row is the 1-based source row, kept for error attribution.
	Row int `json:"row"`

	Section   int      `json:"fitt_id"`
	Paragraph int      `json:"para_id"`
	ParaFirst bool     `json:"para_first"`
	NonVerse  bool     `json:"non_verse"`
	Line      int      `json:"line_id"`
	Half      HalfLine `json:"half_line"`
	Offset    int      `json:"token_offset"`
	Caesura   string   `json:"caesura_code,omitempty"`

	PrePunc    string `json:"pre_punc,omitempty"`
	Text       string `json:"text"`
	PostPunc   string `json:"post_punc,omitempty"`
	Syntax     string `json:"syntax,omitempty"`
	Parse      string `json:"parse,omitempty"`
	Lemma      string `json:"lemma,omitempty"`
	POS        string `json:"pos,omitempty"`
	Inflection string `json:"inflection,omitempty"`
	Gloss      string `json:"gloss,omitempty"`
	WithLength string `json:"with_length,omitempty"`
}

// Key is the composite position of a token in the annotation stream.
type Key struct {
	Section   int
	Paragraph int
	ParaFirst bool
	NonVerse  bool
	Line      int
	Half      HalfLine
	Offset    int
}

// Key returns the token's composite key.
func (t *Token) Key() Key {
	return Key{
		Section:   t.Section,
		Paragraph: t.Paragraph,
		ParaFirst: t.ParaFirst,
		NonVerse:  t.NonVerse,
		Line:      t.Line,
		Half:      t.Half,
		Offset:    t.Offset,
	}
}

// ID renders the line/half/offset position, e.g. "0001a1".
func (t *Token) ID() string {
	return fmt.Sprintf("%04d%s%d", t.Line, t.Half, t.Offset)
}

// Display returns the length-marked spelling with its punctuation.
func (t *Token) Display() string {
	w := t.WithLength
	if w == "" {
		w = t.Text
	}
	return t.PrePunc + w + t.PostPunc
}

// AtCaesura reports whether the token sits at a metrical pause.
func (t *Token) AtCaesura() bool {
	return t.Caesura == "/"
}

// RowParseError reports one unusable row. Parsing continues past it; the
// caller decides whether to skip or abort.
type RowParseError struct {
	Row   int
	Field string
	Err   error
}

func (e *RowParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d: field %s: %v", e.Row, e.Field, e.Err)
}

func (e *RowParseError) Unwrap() []error { return []error{ErrMalformedRow, e.Err} }

// Parse converts rows into Tokens, preserving order. Blank rows and a header
// row are skipped silently. Bad rows yield a RowParseError each and do not
// stop parsing. No cross-row validation happens here.
func Parse(rows []string) ([]*Token, []*RowParseError) {
	var (
		tokens []*Token
		errs   []*RowParseError
	)
	for i, row := range rows {
		tok, err := parseRow(i+1, row)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if tok != nil {
			tokens = append(tokens, tok)
		}
	}
	return tokens, errs
}

// ReadRows splits r into rows without interpreting them.
func ReadRows(r io.Reader) ([]string, error) {
	var rows []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		rows = append(rows, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read token rows: %w", err)
	}
	return rows, nil
}

func parseRow(n int, row string) (*Token, *RowParseError) {
	if strings.TrimSpace(row) == "" {
		return nil, nil
	}
	fields := strings.Split(row, "|")
	if fields[0] == Columns[0] {
		return nil, nil
	}
	if len(fields) != len(Columns) {
		return nil, &RowParseError{Row: n, Err: fmt.Errorf("expected %d fields, got %d", len(Columns), len(fields))}
	}

	ints := make(map[int]int, 4)
	for _, col := range []int{colFitt, colPara, colLine, colOffset} {
		v, err := strconv.Atoi(strings.TrimSpace(fields[col]))
		if err != nil {
			return nil, &RowParseError{Row: n, Field: Columns[col], Err: err}
		}
		ints[col] = v
	}
	paraFirst, err := parseFlag(fields[colParaFirst])
	if err != nil {
		return nil, &RowParseError{Row: n, Field: Columns[colParaFirst], Err: err}
	}
	nonVerse, err := parseFlag(fields[colNonVerse])
	if err != nil {
		return nil, &RowParseError{Row: n, Field: Columns[colNonVerse], Err: err}
	}
	half := HalfLine(strings.TrimSpace(fields[colHalf]))
	switch half {
	case HalfNone, HalfFirst, HalfSecond:
	default:
		return nil, &RowParseError{Row: n, Field: Columns[colHalf], Err: fmt.Errorf("unknown half-line %q", half)}
	}

	return &Token{
		Row:        n,
		Section:    ints[colFitt],
		Paragraph:  ints[colPara],
		ParaFirst:  paraFirst,
		NonVerse:   nonVerse,
		Line:       ints[colLine],
		Half:       half,
		Offset:     ints[colOffset],
		Caesura:    fields[colCaesura],
		PrePunc:    fields[colPrePunc],
		Text:       fields[colText],
		PostPunc:   fields[colPostPunc],
		Syntax:     fields[colSyntax],
		Parse:      fields[colParse],
		Lemma:      fields[colLemma],
		POS:        fields[colPOS],
		Inflection: fields[colInflection],
		Gloss:      fields[colGloss],
		WithLength: fields[colWithLength],
	}, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "0", "":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("invalid flag %q", s)
}
