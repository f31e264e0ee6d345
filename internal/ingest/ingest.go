// Package ingest runs the one-shot construction pipeline: raw sources in,
// a query Engine out. Any ingestion error aborts the whole build so no
// Engine is ever served over a partially built corpus.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/heorot"
	"github.com/kokistudios/beodata/internal/lexicon"
	"github.com/kokistudios/beodata/internal/numbering"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/store"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/token"
	"github.com/kokistudios/beodata/internal/ui"
)

// maxReportedRows bounds how many malformed rows an error lists.
const maxReportedRows = 10

// Sources holds the raw inputs, fully read into memory or ready to be.
type Sources struct {
	Bilingual     []text.RawPair
	Tokens        io.Reader
	Dictionary    io.Reader
	Abbreviations io.Reader
}

// Build constructs the corpus and its indices from src.
func Build(m *numbering.Model, src Sources, opts ...query.Option) (*query.Engine, error) {
	records, err := text.Build(m, src.Bilingual)
	if err != nil {
		return nil, fmt.Errorf("building line records: %w", err)
	}
	ui.Logger.Info("Line records built", "count", len(records))

	rows, err := token.ReadRows(src.Tokens)
	if err != nil {
		return nil, fmt.Errorf("reading token rows: %w", err)
	}
	tokens, rowErrs := token.Parse(rows)
	if len(rowErrs) > 0 {
		return nil, rowErrors(rowErrs)
	}
	ui.Logger.Info("Tokens parsed", "count", len(tokens))

	corpus, err := align.Align(m, records, tokens)
	if err != nil {
		return nil, fmt.Errorf("aligning tokens: %w", err)
	}
	for _, w := range corpus.Warnings() {
		ui.Logger.Warn("Verse line has no tokens", "line", w.Line)
	}
	if d := corpus.Drift(); d > 0 {
		ui.Logger.Info("Annotation fitt numbering differs from sections", "tokens", d)
	}

	entries, err := lexicon.ReadDictionary(src.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	ui.Logger.Info("Dictionary loaded", "entries", len(entries))

	abbrevs, err := lexicon.ReadAbbreviations(src.Abbreviations)
	if err != nil {
		return nil, fmt.Errorf("reading abbreviations: %w", err)
	}
	ui.Logger.Info("Abbreviations loaded", "count", len(abbrevs))

	return query.New(corpus, entries, abbrevs, opts...), nil
}

// rowErrors folds the malformed rows into one error. Every RowParseError
// stays reachable through errors.As.
func rowErrors(errs []*token.RowParseError) error {
	shown := errs
	if len(shown) > maxReportedRows {
		shown = shown[:maxReportedRows]
	}
	joined := make([]error, len(shown))
	for i, e := range shown {
		joined[i] = e
	}
	return fmt.Errorf("%d malformed token rows: %w", len(errs), errors.Join(joined...))
}

// Bilingual returns the raw line pairs of the edition, read from
// sources.bilingual_path when set, otherwise fetched through client.
func Bilingual(ctx context.Context, s *store.Store, client *heorot.Client, refresh bool) ([]text.RawPair, error) {
	var doc []byte
	if p := s.Resolve(s.Config.Sources.BilingualPath); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading bilingual edition: %w", err)
		}
		doc = data
		ui.Logger.Info("Bilingual edition read", "path", p)
	} else {
		data, cached, err := client.Fetch(ctx, s.Config.Sources.HeorotURL, refresh)
		if err != nil {
			return nil, fmt.Errorf("fetching bilingual edition: %w", err)
		}
		doc = data
		ui.Logger.Info("Bilingual edition fetched", "url", s.Config.Sources.HeorotURL, "cached", cached)
	}
	pairs, err := heorot.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing bilingual edition: %w", err)
	}
	return pairs, nil
}

// FromStore loads every source the store's config names and builds the
// Engine over the Beowulf numbering.
func FromStore(ctx context.Context, s *store.Store, client *heorot.Client) (*query.Engine, error) {
	pairs, err := Bilingual(ctx, s, client, false)
	if err != nil {
		return nil, err
	}

	src := Sources{Bilingual: pairs}
	files := []struct {
		key  string
		path string
		dst  *io.Reader
	}{
		{"sources.tokens_path", s.Config.Sources.TokensPath, &src.Tokens},
		{"sources.dictionary_path", s.Config.Sources.DictionaryPath, &src.Dictionary},
		{"sources.abbreviations_path", s.Config.Sources.AbbreviationsPath, &src.Abbreviations},
	}
	for _, f := range files {
		fh, err := os.Open(s.Resolve(f.path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		defer fh.Close()
		*f.dst = fh
	}

	return Build(numbering.Beowulf(), src, query.WithSampleSize(s.Config.Summary.SampleSize))
}
