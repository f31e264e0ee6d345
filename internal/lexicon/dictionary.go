package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Entry is one Bosworth-Toller dictionary article.
type Entry struct {
	Headword string `json:"headword"`
	// Definition is the article as published, with its HTML markup.
	Definition string `json:"definition"`
	// Text is the definition with markup removed; it is what search sees.
	Text       string   `json:"cleaned_definition"`
	References []string `json:"references,omitempty"`
}

// Dictionary field names accepted by search.
const (
	FieldHeadword   = "headword"
	FieldDefinition = "definition"
	FieldReferences = "references"
)

// DictionaryOptions indexes entries by headword and searches headword,
// cleaned definition, and references.
func DictionaryOptions() Options[Entry] {
	return Options[Entry]{
		Key: func(e Entry) string { return e.Headword },
		Fields: []Field[Entry]{
			{Name: FieldHeadword, Value: func(e Entry) string { return e.Headword }},
			{Name: FieldDefinition, Value: func(e Entry) string { return e.Text }},
			{Name: FieldReferences, Value: func(e Entry) string { return strings.Join(e.References, "; ") }},
		},
	}
}

// ReadDictionary parses the '@'-delimited export: headword@definition@references,
// one article per line, no header. Blank lines are skipped; a line without a
// definition field is an error naming the line.
func ReadDictionary(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), 8*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "@", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("dictionary line %d: expected headword@definition[@references]", n)
		}
		e := Entry{
			Headword:   StripMarkup(parts[0]),
			Definition: parts[1],
			Text:       StripMarkup(parts[1]),
		}
		if len(parts) == 3 {
			e.References = splitReferences(parts[2])
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	return entries, nil
}

var spaceRun = regexp.MustCompile(`\s+`)

var breaksText = map[string]bool{"br": true, "p": true, "div": true, "li": true, "td": true}

// StripMarkup returns the text content of an HTML fragment with whitespace
// collapsed.
func StripMarkup(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(spaceRun.ReplaceAllString(b.String(), " "))
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if breaksText[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}

func splitReferences(s string) []string {
	var refs []string
	for _, r := range strings.Split(StripMarkup(s), ";") {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}
