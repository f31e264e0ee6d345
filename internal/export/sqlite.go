package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/query"

	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

const schema = `
CREATE TABLE sections (
	id     INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	start_line INTEGER,
	end_line   INTEGER,
	absent INTEGER NOT NULL
);
CREATE TABLE lines (
	line_number    INTEGER PRIMARY KEY,
	old_english    TEXT NOT NULL,
	modern_english TEXT NOT NULL,
	section        INTEGER NOT NULL,
	is_title_line  INTEGER NOT NULL,
	heading        TEXT NOT NULL,
	absent         INTEGER NOT NULL
);
CREATE TABLE tokens (
	source_row   INTEGER PRIMARY KEY,
	fitt_id      INTEGER NOT NULL,
	para_id      INTEGER NOT NULL,
	para_first   INTEGER NOT NULL,
	non_verse    INTEGER NOT NULL,
	line_id      INTEGER NOT NULL REFERENCES lines(line_number),
	half_line    TEXT NOT NULL,
	token_offset INTEGER NOT NULL,
	caesura_code TEXT NOT NULL,
	pre_punc     TEXT NOT NULL,
	text         TEXT NOT NULL,
	post_punc    TEXT NOT NULL,
	syntax       TEXT NOT NULL,
	parse        TEXT NOT NULL,
	lemma        TEXT NOT NULL,
	pos          TEXT NOT NULL,
	inflection   TEXT NOT NULL,
	gloss        TEXT NOT NULL,
	with_length  TEXT NOT NULL
);
CREATE INDEX tokens_lemma ON tokens(lemma);
CREATE INDEX tokens_line ON tokens(line_id);
`

// WriteSQLite writes a snapshot of c to path. The database is built in a
// temporary file beside path and renamed into place, so a failed write
// leaves any previous snapshot untouched.
func WriteSQLite(ctx context.Context, path string, c *align.Corpus) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".export-*.db")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)

	if err := writeSnapshot(ctx, tmp, c); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, path string, c *align.Corpus) (err error) {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, s := range c.Model().Sections() {
		var start, end any
		if !s.Absent {
			start, end = s.Start, s.End
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO sections (id, name, start_line, end_line, absent) VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.Name, start, end, s.Absent); err != nil {
			return fmt.Errorf("inserting section %d: %w", s.ID, err)
		}
	}

	lineStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lines (line_number, old_english, modern_english, section, is_title_line, heading, absent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer lineStmt.Close()
	all := c.All()
	for i := range all {
		l := &all[i]
		if _, err = lineStmt.ExecContext(ctx,
			l.Number, l.OldEnglish, l.ModernEnglish, l.Section, l.Title, l.Heading, l.Absent); err != nil {
			return fmt.Errorf("inserting line %d: %w", l.Number, err)
		}
	}

	tokStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tokens (source_row, fitt_id, para_id, para_first, non_verse, line_id, half_line, token_offset,
		 caesura_code, pre_punc, text, post_punc, syntax, parse, lemma, pos, inflection, gloss, with_length)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tokStmt.Close()
	for _, t := range c.Tokens() {
		if _, err = tokStmt.ExecContext(ctx,
			t.Row, t.Section, t.Paragraph, t.ParaFirst, t.NonVerse, t.Line, string(t.Half), t.Offset,
			t.Caesura, t.PrePunc, t.Text, t.PostPunc, t.Syntax, t.Parse, t.Lemma, t.POS,
			t.Inflection, t.Gloss, t.WithLength); err != nil {
			return fmt.Errorf("inserting token row %d: %w", t.Row, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// ReadSQLiteLines returns the lines table of a snapshot in line order.
func ReadSQLiteLines(ctx context.Context, path string) ([]query.Line, error) {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT line_number, old_english, modern_english, section, is_title_line, heading, absent
		 FROM lines ORDER BY line_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []query.Line
	for rows.Next() {
		var l query.Line
		if err := rows.Scan(&l.Number, &l.OldEnglish, &l.ModernEnglish, &l.Section, &l.Title, &l.Heading, &l.Absent); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountSQLiteTokens returns the number of rows in the tokens table.
func CountSQLiteTokens(ctx context.Context, path string) (int, error) {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&n)
	return n, err
}
