package text

import (
	"errors"
	"testing"

	"github.com/kokistudios/beodata/internal/numbering"
)

func smallModel(t *testing.T) *numbering.Model {
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
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func pairs(lines ...int) []RawPair {
	var out []RawPair
	for _, n := range lines {
		out = append(out, RawPair{Line: n, OldEnglish: "oe", ModernEnglish: "me"})
	}
	return out
}

func TestBuild(t *testing.T) {
	m := smallModel(t)
	recs, err := Build(m, pairs(1, 2, 3, 4, 6))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	want := []int{1, 2, 3, 4, 6}
	for i, r := range recs {
		if r.Number != want[i] {
			t.Errorf("record %d number = %d, want %d", i, r.Number, want[i])
		}
	}
	if recs[0].Heading != "Prologue" || recs[3].Heading != "II" {
		t.Errorf("headings = %q, %q", recs[0].Heading, recs[3].Heading)
	}
	if recs[1].Heading != "" {
		t.Errorf("unexpected heading on line 2: %q", recs[1].Heading)
	}
	if recs[4].Section != 2 {
		t.Errorf("line 6 section = %d, want 2", recs[4].Section)
	}
}

func TestBuildAcceptsEmptyPlaceholderAtAbsentLine(t *testing.T) {
	m := smallModel(t)
	in := append(pairs(1, 2, 3, 4, 6), RawPair{Line: 5}, RawPair{Line: 0})
	recs, err := Build(m, in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, r := range recs {
		if r.Number == 5 {
			t.Error("absent line 5 must not produce a record")
		}
	}
}

func TestBuildRejects(t *testing.T) {
	m := smallModel(t)
	cases := map[string][]RawPair{
		"text at absent line": pairs(1, 2, 3, 4, 5, 6),
		"missing line":        pairs(1, 2, 4, 6),
		"duplicate":           pairs(1, 2, 2, 3, 4, 6),
		"out of range":        pairs(1, 2, 3, 4, 6, 7),
	}
	for name, in := range cases {
		_, err := Build(m, in)
		if !errors.Is(err, ErrIntegrity) {
			t.Errorf("%s: err = %v, want ErrIntegrity", name, err)
		}
		var ie *IntegrityError
		if !errors.As(err, &ie) {
			t.Errorf("%s: expected *IntegrityError", name)
		}
	}
}
