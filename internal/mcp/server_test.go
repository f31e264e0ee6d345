package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/lexicon"
	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/token"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m, err := numbering.New(numbering.Table{
		First: 1,
		Last:  4,
		Sections: []numbering.Section{
			{ID: 0, Name: "Prologue", Start: 1, End: 2},
			{ID: 1, Name: "I", Absent: true},
			{ID: 2, Name: "II", Start: 3, End: 4},
		},
		AbsentLines: []int{4},
	})
	if err != nil {
		t.Fatal(err)
	}
	recs, err := text.Build(m, []text.RawPair{
		{Line: 1, OldEnglish: "Hwæt! We Gardena", ModernEnglish: "Lo! the Spear-Danes"},
		{Line: 2, OldEnglish: "þeodcyninga þrym", ModernEnglish: "the folk-kings' glory"},
		{Line: 3, OldEnglish: "Oft Scyld", ModernEnglish: "Oft Scyld"},
	})
	if err != nil {
		t.Fatal(err)
	}
	toks, errs := token.Parse([]string{
		"00|001|1|0|0001|a|1|-||Hwæt|!|||hwæt|e||lo|Hwæt",
		"00|001|0|0|0002|a|1|-||þeodcyninga|||gp|cyning|m||king|þēodcyninga",
		"00|001|0|0|0002|b|1|/||þrym|||as|þrymm|m||glory|þrym",
		"02|002|1|0|0003|a|1|-||Oft||||oft|av||often|Oft",
	})
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	c, err := align.Align(m, recs, toks)
	if err != nil {
		t.Fatal(err)
	}
	e := query.New(c,
		[]lexicon.Entry{{Headword: "cyning", Definition: "a king", Text: "a king"}},
		[]lexicon.Abbreviation{{Key: "Beo. Th.", Expansion: "Beowulf, ed. Thorpe"}},
	)
	return NewServer(e, "test")
}

func intp(n int) *int { return &n }

func TestNewServerRegistersTools(t *testing.T) {
	s := newTestServer(t)
	if s.server == nil || s.engine == nil {
		t.Fatal("server not initialized")
	}
}

func TestHandleLines(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleLines(ctx, nil, LinesArgs{})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(LinesResult)
	if res.Count != 4 || !res.Lines[3].Absent {
		t.Errorf("full range = %+v", res)
	}

	_, out, err = s.handleLines(ctx, nil, LinesArgs{From: intp(2)})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(LinesResult); res.Count != 3 || res.Lines[0].Number != 2 || res.Lines[2].Number != 4 {
		t.Errorf("from only should run to the last line, got %+v", res)
	}

	_, out, err = s.handleLines(ctx, nil, LinesArgs{From: intp(2), To: intp(2)})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(LinesResult); res.Count != 1 || res.Lines[0].Number != 2 {
		t.Errorf("single line = %+v", res)
	}

	if _, _, err := s.handleLines(ctx, nil, LinesArgs{From: intp(3), To: intp(1)}); !errors.Is(err, query.ErrInvalidRange) {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestHandleFittLines(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleFittLines(context.Background(), nil, FittArgs{FittNumber: 1})
	if err != nil {
		t.Fatal(err)
	}
	if sl := out.(query.SectionLines); !sl.Absent || len(sl.Lines) != 0 {
		t.Errorf("absent fitt = %+v", sl)
	}
	if _, _, err := s.handleFittLines(context.Background(), nil, FittArgs{FittNumber: 9}); !errors.Is(err, query.ErrUnknownSection) {
		t.Errorf("err = %v, want ErrUnknownSection", err)
	}
}

func TestHandleSummary(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleSummary(context.Background(), nil, SummaryArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if sum := out.(query.Summary); sum.TotalLines != 4 || sum.Tokens != 4 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestHandleLineSearch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleLineSearch(ctx, nil, LineSearchArgs{Term: "scyld", Language: "OE"})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(LinesResult); res.Count != 1 || res.Lines[0].Number != 3 {
		t.Errorf("search = %+v", res)
	}
	if _, _, err := s.handleLineSearch(ctx, nil, LineSearchArgs{Term: "x", Language: "la"}); !errors.Is(err, query.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
	if _, _, err := s.handleLineSearch(ctx, nil, LineSearchArgs{Term: "grendel"}); !errors.Is(err, query.ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestHandleDictionaryAndAbbreviations(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleDictionaryLookupLike(ctx, nil, PatternArgs{Pattern: "cyn%"})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(EntriesResult); res.Count != 1 || res.Entries[0].Headword != "cyning" {
		t.Errorf("lookup like = %+v", res)
	}
	if _, _, err := s.handleDictionaryLookup(ctx, nil, WordArgs{}); !errors.Is(err, query.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}

	_, out, err = s.handleAbbreviationSearch(ctx, nil, AbbreviationArgs{Abbrev: "beo"})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(AbbreviationsResult); res.Count != 1 {
		t.Errorf("abbreviation search = %+v", res)
	}
	if _, _, err := s.handleAbbreviationExpand(ctx, nil, AbbreviationArgs{Abbrev: "Bd."}); !errors.Is(err, query.ErrUnknownAbbreviation) {
		t.Errorf("err = %v, want ErrUnknownAbbreviation", err)
	}
}

func TestHandleTokens(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleTokensByLine(ctx, nil, LineIDArgs{LineID: "0002"})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(TokensResult); res.Count != 2 || res.Tokens[0].Text != "þeodcyninga" {
		t.Errorf("by line = %+v", res)
	}

	// An absent line has no tokens but is not an error.
	_, out, err = s.handleTokensByLine(ctx, nil, LineIDArgs{LineID: "4"})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(TokensResult); res.Count != 0 || res.Tokens == nil {
		t.Errorf("absent line = %+v", res)
	}

	if _, _, err := s.handleTokensByLine(ctx, nil, LineIDArgs{LineID: "one"}); !errors.Is(err, query.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}

	_, out, err = s.handleTokensByFitt(ctx, nil, FittIDArgs{FittID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(TokensResult); res.Count != 1 || res.Tokens[0].Lemma != "oft" {
		t.Errorf("by fitt = %+v", res)
	}

	_, out, err = s.handleTokenSearch(ctx, nil, SearchArgs{Term: "glory", Column: "gloss"})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(TokensResult); res.Count != 1 || res.Tokens[0].Lemma != "þrymm" {
		t.Errorf("search = %+v", res)
	}
}

func TestHandleVerse(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleVerseByLemma(ctx, nil, LemmaArgs{Lemma: "cyning"})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(HalfLinesResult)
	if res.Count != 1 || res.HalfLines[0].Line != 2 || res.HalfLines[0].Text != "þēodcyninga" {
		t.Errorf("verse by lemma = %+v", res)
	}

	_, out, err = s.handleHalfLines(ctx, nil, RangeArgs{From: 1, To: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res := out.(HalfLinesResult); res.Count != 3 {
		t.Errorf("half lines = %+v", res)
	}
}
