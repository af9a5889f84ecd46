package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/opendata-madrid/places-cli/internal/collector"
)

// WriteXLSX writes the table as a single-sheet workbook named "places".
// Numeric columns stay numeric so spreadsheet tooling can sort and filter
// them.
func WriteXLSX(path string, table collector.Table) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("places")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	cols := table.Columns()
	header := sheet.AddRow()
	for _, col := range cols {
		header.AddCell().SetString(col)
	}

	for _, row := range table {
		r := sheet.AddRow()
		for _, col := range cols {
			cell := r.AddCell()
			switch v := row[col].(type) {
			case nil:
				cell.SetString("")
			case string:
				cell.SetString(v)
			case float64:
				cell.SetFloat(v)
			case int:
				cell.SetInt(v)
			case int64:
				cell.SetInt64(v)
			case bool:
				cell.SetBool(v)
			default:
				cell.SetString(cellString(v))
			}
		}
	}

	return eris.Wrap(file.Save(path), "export: save xlsx")
}
