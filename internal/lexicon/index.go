// Package lexicon builds the read-only lookup structures over the corpus and
// the dictionary: exact, prefix, and full-text access.
package lexicon

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrUnknownField = errors.New("unknown field")
)

// Field names a searchable text of a record.
type Field[T any] struct {
	Name  string
	Value func(T) string
}

// Options configures an Index. Key feeds exact and prefix lookup; Fields
// feed full-text search.
type Options[T any] struct {
	Key    func(T) string
	Fields []Field[T]
}

type keyed struct {
	key string
	pos int
}

// Index is built once and never mutated. Item order at build time is the
// canonical position used as the stable secondary sort of every result.
type Index[T any] struct {
	items  []T
	exact  map[string][]int
	sorted []keyed
	names  []string
	text   [][]string // text[field][pos], normalized
}

// Build indexes items, which must already be in canonical order.
func Build[T any](items []T, opts Options[T]) *Index[T] {
	ix := &Index[T]{
		items:  items,
		exact:  make(map[string][]int),
		sorted: make([]keyed, 0, len(items)),
		names:  make([]string, len(opts.Fields)),
		text:   make([][]string, len(opts.Fields)),
	}
	for pos, item := range items {
		if opts.Key == nil {
			break
		}
		k := Normalize(opts.Key(item))
		if k == "" {
			continue
		}
		ix.exact[k] = append(ix.exact[k], pos)
		ix.sorted = append(ix.sorted, keyed{key: k, pos: pos})
	}
	sort.SliceStable(ix.sorted, func(a, b int) bool {
		if ix.sorted[a].key != ix.sorted[b].key {
			return ix.sorted[a].key < ix.sorted[b].key
		}
		return ix.sorted[a].pos < ix.sorted[b].pos
	})
	for f, field := range opts.Fields {
		ix.names[f] = field.Name
		col := make([]string, len(items))
		for pos, item := range items {
			col[pos] = Normalize(field.Value(item))
		}
		ix.text[f] = col
	}
	return ix
}

// Len returns the number of indexed items.
func (ix *Index[T]) Len() int { return len(ix.items) }

// Fields returns the names of the full-text fields.
func (ix *Index[T]) Fields() []string { return append([]string(nil), ix.names...) }

// Exact returns items whose normalized key equals the normalized query,
// in canonical order.
func (ix *Index[T]) Exact(q string) ([]T, error) {
	k := Normalize(q)
	if k == "" {
		return nil, ErrEmptyQuery
	}
	return ix.collect(ix.exact[k]), nil
}

// Prefix returns items whose normalized key starts with the normalized
// prefix, ordered by key and then canonical position.
func (ix *Index[T]) Prefix(q string) ([]T, error) {
	p := Normalize(q)
	if p == "" {
		return nil, ErrEmptyQuery
	}
	i := sort.Search(len(ix.sorted), func(i int) bool { return ix.sorted[i].key >= p })
	var positions []int
	for ; i < len(ix.sorted) && strings.HasPrefix(ix.sorted[i].key, p); i++ {
		positions = append(positions, ix.sorted[i].pos)
	}
	return ix.collect(positions), nil
}

// Search returns items where any full-text field, or only the named field
// when field is non-empty, contains the normalized term. Results are in
// canonical order.
func (ix *Index[T]) Search(term, field string) ([]T, error) {
	q := Normalize(term)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	cols := ix.text
	if field != "" {
		f := -1
		for i, name := range ix.names {
			if name == field {
				f = i
				break
			}
		}
		if f < 0 {
			return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnknownField, field, strings.Join(ix.names, ", "))
		}
		cols = ix.text[f : f+1]
	}
	var positions []int
	for pos := range ix.items {
		for _, col := range cols {
			if strings.Contains(col[pos], q) {
				positions = append(positions, pos)
				break
			}
		}
	}
	return ix.collect(positions), nil
}

func (ix *Index[T]) collect(positions []int) []T {
	out := make([]T, 0, len(positions))
	for _, pos := range positions {
		out = append(out, ix.items[pos])
	}
	return out
}
