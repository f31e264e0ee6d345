package lexicon

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Abbreviation is one dictionary source abbreviation.
type Abbreviation struct {
	Key         string `json:"abbreviation"`
	Expansion   string `json:"expansion"`
	Description string `json:"description,omitempty"`
}

// Abbreviations is a flat, immutable key to expansion table.
type Abbreviations struct {
	list  []Abbreviation
	byKey map[string]int
}

// NewAbbreviations indexes list by key. Later duplicates of a key are kept in
// the list but do not replace the first expansion.
func NewAbbreviations(list []Abbreviation) *Abbreviations {
	a := &Abbreviations{list: list, byKey: make(map[string]int, len(list))}
	for i, ab := range list {
		k := abbrevKey(ab.Key)
		if _, ok := a.byKey[k]; !ok && k != "" {
			a.byKey[k] = i
		}
	}
	return a
}

// Len returns the number of abbreviations.
func (a *Abbreviations) Len() int { return len(a.list) }

// Expand returns the abbreviation whose key matches exactly, ignoring
// surrounding and repeated whitespace.
func (a *Abbreviations) Expand(key string) (Abbreviation, bool) {
	i, ok := a.byKey[abbrevKey(key)]
	if !ok {
		return Abbreviation{}, false
	}
	return a.list[i], true
}

// Search returns abbreviations whose key contains partial, case-insensitively,
// in table order.
func (a *Abbreviations) Search(partial string) []Abbreviation {
	q := strings.ToLower(abbrevKey(partial))
	if q == "" {
		return nil
	}
	var out []Abbreviation
	for _, ab := range a.list {
		if strings.Contains(strings.ToLower(abbrevKey(ab.Key)), q) {
			out = append(out, ab)
		}
	}
	return out
}

func abbrevKey(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ReadAbbreviations parses the abbreviation list XML: a sequence of
// <source> elements with <spellout>, <heading> and <body> children.
func ReadAbbreviations(r io.Reader) ([]Abbreviation, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("invalid abbreviations XML: %w", err)
	}
	var list []Abbreviation
	for _, src := range xmlquery.Find(doc, "//source") {
		list = append(list, Abbreviation{
			Key:         childText(src, "spellout"),
			Expansion:   childText(src, "heading"),
			Description: spaceRun.ReplaceAllString(childText(src, "body"), " "),
		})
	}
	return list, nil
}

func childText(n *xmlquery.Node, name string) string {
	c := n.SelectElement(name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.InnerText())
}
