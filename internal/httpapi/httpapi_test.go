package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/lexicon"
	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/token"
)

func newTestServer(t *testing.T, origins ...string) *httptest.Server {
	t.Helper()
	m, err := numbering.New(numbering.Table{
		First: 1,
		Last:  3,
		Sections: []numbering.Section{
			{ID: 0, Name: "Prologue", Start: 1, End: 2},
			{ID: 1, Name: "I", Absent: true},
			{ID: 2, Name: "II", Start: 3, End: 3},
		},
		AbsentLines: []int{3},
	})
	if err != nil {
		t.Fatal(err)
	}
	recs, err := text.Build(m, []text.RawPair{
		{Line: 1, OldEnglish: "Hwæt! We Gardena", ModernEnglish: "Lo! the Spear-Danes"},
		{Line: 2, OldEnglish: "þeodcyninga þrym", ModernEnglish: "the folk-kings' glory"},
	})
	if err != nil {
		t.Fatal(err)
	}
	toks, errs := token.Parse([]string{
		"00|001|1|0|0001|a|1|-||Hwæt|!|||hwæt|e||lo|Hwæt",
		"00|001|0|0|0002|a|1|-||þeodcyninga|||gp|cyning|m||king|þēodcyninga",
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
	srv := httptest.NewServer(New(e, origins).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, want int, v any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		t.Fatalf("GET %s: status %d, want %d", path, resp.StatusCode, want)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("GET %s: content type %q", path, ct)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
	}
}

type linesBody struct {
	Count   int          `json:"count"`
	Results []query.Line `json:"results"`
}

func TestLines(t *testing.T) {
	srv := newTestServer(t)

	var all linesBody
	get(t, srv, "/api/lines", http.StatusOK, &all)
	if all.Count != 3 || !all.Results[2].Absent {
		t.Errorf("all lines = %+v", all)
	}

	var tail linesBody
	get(t, srv, "/api/lines?from=2", http.StatusOK, &tail)
	if tail.Count != 2 || tail.Results[0].Number != 2 || tail.Results[1].Number != 3 {
		t.Errorf("from only = %+v", tail)
	}

	var one linesBody
	get(t, srv, "/api/lines?from=2&to=2", http.StatusOK, &one)
	if one.Count != 1 || one.Results[0].OldEnglish != "þeodcyninga þrym" {
		t.Errorf("line 2 = %+v", one)
	}

	var e errorResponse
	get(t, srv, "/api/lines?from=3&to=1", http.StatusBadRequest, &e)
	if e.Error == "" {
		t.Error("expected error message")
	}
	get(t, srv, "/api/lines?from=x", http.StatusBadRequest, nil)
}

func TestSections(t *testing.T) {
	srv := newTestServer(t)

	var sl query.SectionLines
	get(t, srv, "/api/sections/1", http.StatusOK, &sl)
	if !sl.Absent || len(sl.Lines) != 0 {
		t.Errorf("absent section = %+v", sl)
	}
	get(t, srv, "/api/sections/7", http.StatusNotFound, nil)
	get(t, srv, "/api/sections/x", http.StatusBadRequest, nil)
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t)
	var s query.Summary
	get(t, srv, "/api/summary", http.StatusOK, &s)
	if s.TotalLines != 3 || s.Tokens != 2 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSearchAndDictionary(t *testing.T) {
	srv := newTestServer(t)

	var lines linesBody
	get(t, srv, "/api/search?term=spear&language=me", http.StatusOK, &lines)
	if lines.Count != 1 || lines.Results[0].Number != 1 {
		t.Errorf("search = %+v", lines)
	}
	get(t, srv, "/api/search?term=spear&language=oe", http.StatusNotFound, nil)
	get(t, srv, "/api/search?term=spear&language=fr", http.StatusBadRequest, nil)
	get(t, srv, "/api/search", http.StatusBadRequest, nil)

	get(t, srv, "/api/dictionary/cyning", http.StatusOK, nil)
	get(t, srv, "/api/dictionary?like=cyn%25", http.StatusOK, nil)
	get(t, srv, "/api/dictionary?search=king&field=definition", http.StatusOK, nil)
	get(t, srv, "/api/dictionary", http.StatusBadRequest, nil)

	var ab lexicon.Abbreviation
	get(t, srv, "/api/abbreviations/Beo.%20Th.", http.StatusOK, &ab)
	if ab.Expansion != "Beowulf, ed. Thorpe" {
		t.Errorf("abbreviation = %+v", ab)
	}
	get(t, srv, "/api/abbreviations/Bd.", http.StatusNotFound, nil)
	get(t, srv, "/api/abbreviations?search=beo", http.StatusOK, nil)
}

func TestTokensAndVerse(t *testing.T) {
	srv := newTestServer(t)

	var toks struct {
		Count   int            `json:"count"`
		Results []*token.Token `json:"results"`
	}
	get(t, srv, "/api/tokens?lemma=cyning", http.StatusOK, &toks)
	if toks.Count != 1 || toks.Results[0].Line != 2 {
		t.Errorf("tokens = %+v", toks)
	}
	get(t, srv, "/api/tokens?line=3", http.StatusOK, &toks)
	if toks.Count != 0 {
		t.Errorf("absent line tokens = %+v", toks)
	}
	get(t, srv, "/api/tokens?fitt=0", http.StatusOK, nil)
	get(t, srv, "/api/tokens?line=99", http.StatusBadRequest, nil)
	get(t, srv, "/api/tokens", http.StatusBadRequest, nil)

	var verse struct {
		Count   int            `json:"count"`
		Results []halfLineJSON `json:"results"`
	}
	get(t, srv, "/api/verse?lemma=cyning", http.StatusOK, &verse)
	if verse.Count != 1 || verse.Results[0].Text != "þēodcyninga" {
		t.Errorf("verse = %+v", verse)
	}
	get(t, srv, "/api/verse?from=1&to=3", http.StatusOK, &verse)
	if verse.Count != 2 {
		t.Errorf("half lines = %+v", verse)
	}
	get(t, srv, "/api/verse?from=1", http.StatusBadRequest, nil)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, "https://heorot.example")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://heorot.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://heorot.example" {
		t.Errorf("allowed origin header = %q", got)
	}

	req.Header.Set("Origin", "https://elsewhere.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got header %q", got)
	}
}

func corsOrigin(t *testing.T, srv *httptest.Server, origin string) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("Origin", origin)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.Header.Get("Access-Control-Allow-Origin")
}

func TestCORSNoOriginsAllowsNone(t *testing.T) {
	srv := newTestServer(t)
	if got := corsOrigin(t, srv, "https://elsewhere.example"); got != "" {
		t.Errorf("empty origin list let %q through", got)
	}
}

func TestCORSWildcard(t *testing.T) {
	srv := newTestServer(t, "*")
	if got := corsOrigin(t, srv, "https://elsewhere.example"); got != "*" {
		t.Errorf("wildcard origin header = %q, want *", got)
	}
}
