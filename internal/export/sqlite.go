package export

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/opendata-madrid/places-cli/internal/collector"
)

// WriteSQLite creates or replaces a places table inside a SQLite file and
// loads every row in one transaction. The typed dataset columns get INTEGER
// and REAL affinity; everything else is TEXT.
func WriteSQLite(path string, table collector.Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "export: open sqlite")
	}
	defer db.Close()

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return eris.Wrapf(err, "export: exec %s", pragma)
		}
	}

	cols := table.Columns()
	if len(cols) == 0 {
		cols = []string{"municipio"}
	}

	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		defs[i] = quoteIdent(col) + " " + sqliteType(col)
		marks[i] = "?"
	}

	ddl := "DROP TABLE IF EXISTS places;\nCREATE TABLE places (\n\t" +
		strings.Join(defs, ",\n\t") + "\n);"
	if _, err := db.Exec(ddl); err != nil {
		return eris.Wrap(err, "export: create places table")
	}

	tx, err := db.Begin()
	if err != nil {
		return eris.Wrap(err, "export: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	insert := "INSERT INTO places VALUES (" + strings.Join(marks, ", ") + ")"
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return eris.Wrap(err, "export: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	args := make([]any, len(cols))
	for _, row := range table {
		for i, col := range cols {
			args[i] = bindValue(row[col])
		}
		if _, err := stmt.Exec(args...); err != nil {
			return eris.Wrap(err, "export: insert row")
		}
	}

	return eris.Wrap(tx.Commit(), "export: commit")
}

// sqliteType picks the column affinity for a dataset column.
func sqliteType(col string) string {
	switch col {
	case "id_categoria", "distance":
		return "INTEGER"
	case "latitud", "longitud":
		return "REAL"
	default:
		return "TEXT"
	}
}

// bindValue maps a row value to a driver-friendly one. Nested values that
// survived a lenient fallback are stored as JSON text.
func bindValue(v any) any {
	switch x := v.(type) {
	case nil, string, float64, float32, int, int64, bool:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(b)
	}
}

// quoteIdent quotes a column name for DDL, doubling embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
