// Package export renders the corpus into its serialization formats. Every
// format is an independent function over the same ordered line sequence, and
// each has a reader so the output can be checked against its source.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/text"
	"github.com/kokistudios/beodata/internal/ui"
)

// ErrUnknownFormat reports a format name Write does not support.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an export format.
type Format string

const (
	JSON   Format = "json"
	CSV    Format = "csv"
	ASS    Format = "ass"
	SQLite Format = "sqlite"
)

// Formats lists every supported format in display order.
var Formats = []Format{JSON, CSV, ASS, SQLite}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Options control the file-producing writers.
type Options struct {
	// Stem is the base file name for single-file formats.
	Stem string
	// SecondsPerLine sets caption timing.
	SecondsPerLine int
}

func (o Options) stem() string {
	if o.Stem == "" {
		return "maintext"
	}
	return o.Stem
}

// Write renders the whole corpus served by e in format f under dir and
// returns the paths it wrote. ASS writes one file per present section.
func Write(ctx context.Context, e *query.Engine, f Format, dir string, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	m := e.Model()
	lines, err := e.GetLines(m.First(), m.Last())
	if err != nil {
		return nil, err
	}

	ui.Logger.Debug("Writing export", "format", f, "dir", dir)
	var paths []string
	switch f {
	case JSON, CSV:
		path := filepath.Join(dir, opts.stem()+"."+string(f))
		write := WriteJSON
		if f == CSV {
			write = WriteCSV
		}
		if err := writeFile(path, func(w io.Writer) error { return write(w, lines) }); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	case ASS:
		paths, err = WriteASSDir(dir, e, opts.SecondsPerLine)
		if err != nil {
			return nil, err
		}
	case SQLite:
		path := filepath.Join(dir, opts.stem()+".db")
		if err := WriteSQLite(ctx, path, e.Corpus()); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	ui.Logger.Info("Export complete", "format", f, "files", len(paths), "lines", len(lines))
	return paths, nil
}

// writeFile writes through a temp file and renames it into place.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes lines as an indented JSON array, one record per line.
// Non-ASCII text is written as-is.
func WriteJSON(w io.Writer, lines []query.Line) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if lines == nil {
		lines = []query.Line{}
	}
	return enc.Encode(lines)
}

// ReadJSON parses the output of WriteJSON.
func ReadJSON(r io.Reader) ([]query.Line, error) {
	var lines []query.Line
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, fmt.Errorf("decoding JSON export: %w", err)
	}
	return lines, nil
}

var csvHeader = []string{"line_number", "old_english", "modern_english", "section", "is_title_line", "heading", "absent"}

// WriteCSV writes lines as a headed CSV table.
func WriteCSV(w io.Writer, lines []query.Line) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range lines {
		err := cw.Write([]string{
			strconv.Itoa(l.Number),
			l.OldEnglish,
			l.ModernEnglish,
			strconv.Itoa(l.Section),
			strconv.FormatBool(l.Title),
			l.Heading,
			strconv.FormatBool(l.Absent),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the output of WriteCSV.
func ReadCSV(r io.Reader) ([]query.Line, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV export: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading CSV export: missing header")
	}
	lines := make([]query.Line, 0, len(rows)-1)
	for i, row := range rows[1:] {
		l, err := csvLine(row)
		if err != nil {
			return nil, fmt.Errorf("CSV row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func csvLine(row []string) (query.Line, error) {
	number, err := strconv.Atoi(row[0])
	if err != nil {
		return query.Line{}, fmt.Errorf("line_number: %w", err)
	}
	section, err := strconv.Atoi(row[3])
	if err != nil {
		return query.Line{}, fmt.Errorf("section: %w", err)
	}
	title, err := strconv.ParseBool(row[4])
	if err != nil {
		return query.Line{}, fmt.Errorf("is_title_line: %w", err)
	}
	absent, err := strconv.ParseBool(row[6])
	if err != nil {
		return query.Line{}, fmt.Errorf("absent: %w", err)
	}
	return query.Line{
		LineRecord: text.LineRecord{
			Number:        number,
			OldEnglish:    row[1],
			ModernEnglish: row[2],
			Section:       section,
			Title:         title,
			Heading:       row[5],
		},
		Absent: absent,
	}, nil
}
