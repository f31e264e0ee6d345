package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/token"
)

// newTestEngine builds a six-line poem: section 0 holds lines 1-3, section 1
// is absent, section 2 holds lines 4-6 with line 5 lost.
func newTestEngine(t *testing.T) *query.Engine {
	t.Helper()
	m, err := numbering.New(numbering.Table{
		First: 1,
		Last:  6,
		Sections: []numbering.Section{
			{ID: 0, Name: "Prologue", Start: 1, End: 3},
			{ID: 1, Name: "I", Absent: true},
			{ID: 2, Name: "II", Start: 4, End: 6},
		},
		AbsentLines: []int{5},
		Markers:     []int{3},
	})
	if err != nil {
		t.Fatal(err)
	}
	pairs := []text.RawPair{
		{Line: 1, OldEnglish: "Hwæt! We Gār-Dena in geār-dagum,", ModernEnglish: `Lo! the Spear-Danes' "glory"`},
		{Line: 2, OldEnglish: "þēod-cyninga þrym gefrūnon,", ModernEnglish: "of the folk-kings, we have heard,"},
		{Line: 3, OldEnglish: "hū ðā æþelingas ellen fremedon.", ModernEnglish: "how the princes did valour."},
		{Line: 4, OldEnglish: "II", ModernEnglish: "II", Title: true},
		{Line: 6, OldEnglish: "Oft Scyld Scēfing", ModernEnglish: "Oft Scyld the Scefing"},
	}
	recs, err := text.Build(m, pairs)
	if err != nil {
		t.Fatal(err)
	}
	toks, errs := token.Parse([]string{
		"00|001|1|0|0001|a|1|-||Hwæt|!|||hwæt|e||lo|Hwæt",
		"00|001|0|0|0002|a|1|-||þeodcyninga|||gp|cyning|m||king|þēodcyninga",
		"00|001|0|0|0003|a|1|-||hu||||hū|av||how|hū",
		"02|002|1|0|0006|a|1|-||Oft||||oft|av||often|Oft",
	})
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	c, err := align.Align(m, recs, toks)
	if err != nil {
		t.Fatal(err)
	}
	return query.New(c, nil, nil)
}

func allLines(t *testing.T, e *query.Engine) []query.Line {
	t.Helper()
	lines, err := e.GetLines(e.Model().First(), e.Model().Last())
	if err != nil {
		t.Fatal(err)
	}
	return lines
}

type lineText struct {
	Number int
	OE, ME string
	Absent bool
}

func texts(lines []query.Line) []lineText {
	out := make([]lineText, len(lines))
	for i, l := range lines {
		out[i] = lineText{l.Number, l.OldEnglish, l.ModernEnglish, l.Absent}
	}
	return out
}

func TestJSONRoundTrip(t *testing.T) {
	lines := allLines(t, newTestEngine(t))
	var buf bytes.Buffer
	if err := WriteJSON(&buf, lines); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Gār-Dena") {
		t.Error("non-ASCII text should be written unescaped")
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("JSON round trip:\n got %+v\nwant %+v", got, lines)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	lines := allLines(t, newTestEngine(t))
	var buf bytes.Buffer
	if err := WriteCSV(&buf, lines); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("CSV round trip:\n got %+v\nwant %+v", got, lines)
	}
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	in := strings.Join(csvHeader, ",") + "\nx,a,b,0,false,,false\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Error("expected error for non-numeric line number")
	}
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for missing header")
	}
}

func TestASSRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	sl, err := e.GetSection(2)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteASS(&buf, e.Model(), sl.Section, sl.Lines, 4); err != nil {
		t.Fatal(err)
	}
	c, err := ReadASS(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if c.Section != 2 || c.FirstLine != 4 || c.LastLine != 6 {
		t.Errorf("script info = %+v", c)
	}
	if !reflect.DeepEqual(texts(c.Lines), texts(sl.Lines)) {
		t.Errorf("ASS round trip:\n got %+v\nwant %+v", texts(c.Lines), texts(sl.Lines))
	}
	if c.Lines[0].Heading != "II" {
		t.Errorf("heading = %q, want II", c.Lines[0].Heading)
	}
}

func TestASSEvents(t *testing.T) {
	e := newTestEngine(t)
	sl, _ := e.GetSection(0)
	var buf bytes.Buffer
	if err := WriteASS(&buf, e.Model(), sl.Section, sl.Lines, 0); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Dialogue: 0,0:00:00.00,0:00:04.00,Old English,Old English,0,0,0,,Hwæt! We Gār-Dena in geār-dagum,",
		"Dialogue: 0,0:00:00.00,0:00:04.00,Fitt Headings,Fitt Headings,0,0,0,,Prologue",
		"Dialogue: 0,0:00:08.00,0:00:12.00,Big Numbers,Big Numbers,0,0,0,,3",
		"Dialogue: 0,0:00:08.00,0:00:12.00,All Numbers,All Numbers,0,0,0,,3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing event %q", want)
		}
	}
	if strings.Contains(out, "Big Numbers,0,0,0,,1\n") {
		t.Error("line 1 is not a marker")
	}
}

func TestASSTime(t *testing.T) {
	tests := map[string]string{
		"0s":      "0:00:00.00",
		"4s":      "0:00:04.00",
		"61.25s":  "0:01:01.25",
		"3725.5s": "1:02:05.50",
	}
	for in, want := range tests {
		d, err := time.ParseDuration(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := assTime(d); got != want {
			t.Errorf("assTime(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteAllFormatsAgree(t *testing.T) {
	e := newTestEngine(t)
	want := texts(allLines(t, e))
	dir := t.TempDir()
	ctx := context.Background()

	read := map[Format]func([]string) ([]query.Line, error){
		JSON: func(p []string) ([]query.Line, error) {
			f, err := os.Open(p[0])
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return ReadJSON(f)
		},
		CSV: func(p []string) ([]query.Line, error) {
			f, err := os.Open(p[0])
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return ReadCSV(f)
		},
		ASS: func(p []string) ([]query.Line, error) {
			var out []query.Line
			for _, path := range p {
				c, err := ReadASSFile(path)
				if err != nil {
					return nil, err
				}
				out = append(out, c.Lines...)
			}
			return out, nil
		},
		SQLite: func(p []string) ([]query.Line, error) {
			return ReadSQLiteLines(ctx, p[0])
		},
	}

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			paths, err := Write(ctx, e, f, dir, Options{SecondsPerLine: 4})
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := read[f](paths)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if !reflect.DeepEqual(texts(got), want) {
				t.Errorf("lines:\n got %+v\nwant %+v", texts(got), want)
			}
		})
	}
}

func TestWriteASSFilesPerSection(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	paths, err := Write(context.Background(), e, ASS, dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "fitt_0.ass"), filepath.Join(dir, "fitt_2.ass")}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestSQLiteTokens(t *testing.T) {
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "beowulf.db")
	ctx := context.Background()
	if err := WriteSQLite(ctx, path, e.Corpus()); err != nil {
		t.Fatal(err)
	}
	// Writing twice replaces the snapshot.
	if err := WriteSQLite(ctx, path, e.Corpus()); err != nil {
		t.Fatal(err)
	}
	n, err := CountSQLiteTokens(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("tokens = %d, want 4", n)
	}
}

func TestSQLiteFailedWriteKeepsSnapshot(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "beowulf.db")
	if err := WriteSQLite(context.Background(), path, e.Corpus()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WriteSQLite(ctx, path, e.Corpus()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	n, err := CountSQLiteTokens(context.Background(), path)
	if err != nil || n != 4 {
		t.Errorf("previous snapshot lost: tokens = %d, err = %v", n, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, de := range entries {
			names = append(names, de.Name())
		}
		t.Errorf("leftover files: %v", names)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("csv"); err != nil || f != CSV {
		t.Errorf("ParseFormat(csv) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestMarkdown(t *testing.T) {
	e := newTestEngine(t)
	sl, _ := e.GetSection(2)
	md := Markdown(sl)
	for _, want := range []string{"# II", "**6** Oft Scyld Scēfing", "_Oft Scyld the Scefing_", "**5** _(line absent"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	absent, _ := e.GetSection(1)
	if md := Markdown(absent); !strings.Contains(md, "no lines") {
		t.Errorf("absent section markdown = %q", md)
	}
}
