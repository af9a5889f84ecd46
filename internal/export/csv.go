package export

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/opendata-madrid/places-cli/internal/collector"
)

// WriteCSV writes the table as a CSV artifact: one header row in the
// table's canonical column order, then one record per row.
func WriteCSV(path string, table collector.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	cols := table.Columns()
	if len(cols) == 0 {
		return nil
	}

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	record := make([]string, len(cols))
	for _, row := range table {
		for i, col := range cols {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}
