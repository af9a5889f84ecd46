// Package collector turns raw place-search responses into one consolidated
// municipal dataset: it extracts the nested fields each row needs, normalizes
// batches per municipality, and aggregates every (municipality, category)
// pair into a single table.
package collector

import "sort"

// Row is one place record. Keys are column names; values keep whatever JSON
// shape the API returned until normalization flattens them.
type Row map[string]any

// Table is an ordered list of rows.
type Table []Row

// Concat appends tables into a fresh table, preserving argument order and
// the row order inside each.
func Concat(tables ...Table) Table {
	var total int
	for _, t := range tables {
		total += len(t)
	}

	out := make(Table, 0, total)
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

// Columns returns every key present across the table: the canonical dataset
// columns first in their fixed order, then the rest sorted. Exporters rely
// on this so artifacts are stable across runs.
func (t Table) Columns() []string {
	present := make(map[string]bool)
	for _, row := range t {
		for k := range row {
			present[k] = true
		}
	}

	out := make([]string, 0, len(present))
	for _, col := range canonicalColumns {
		if present[col] {
			out = append(out, col)
			delete(present, col)
		}
	}

	rest := make([]string, 0, len(present))
	for k := range present {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// canonicalColumns fixes the leading column order of every artifact: the
// five derived columns after municipio, then the pass-through fields every
// search requests.
var canonicalColumns = []string{
	"municipio",
	"id_categoria",
	"categoria",
	"direccion",
	"latitud",
	"longitud",
	"fsq_id",
	"name",
	"distance",
}
