// Package export writes a collected table to disk as a one-shot artifact in
// one of several formats. Writers take the whole table; there is no
// incremental or partial persistence.
package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/opendata-madrid/places-cli/internal/collector"
)

// Format identifies an artifact encoding.
type Format string

// Supported artifact formats.
const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatSQLite  Format = "sqlite"
)

// ParseFormat maps a config spelling or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	case "geojson":
		return FormatGeoJSON, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// DetectFormat infers the format from the output path's extension, falling
// back to CSV.
func DetectFormat(path string) Format {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	f, err := ParseFormat(ext)
	if err != nil {
		return FormatCSV
	}
	return f
}

// Write writes the table to path in the given format.
func Write(path string, format Format, table collector.Table) error {
	switch format {
	case FormatCSV:
		return WriteCSV(path, table)
	case FormatXLSX:
		return WriteXLSX(path, table)
	case FormatJSON:
		return WriteJSON(path, table)
	case FormatGeoJSON:
		return WriteGeoJSON(path, table)
	case FormatSQLite:
		return WriteSQLite(path, table)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// cellString renders a value for text artifacts. Floats keep their shortest
// exact form; nested values that survived a lenient fallback become JSON so
// nothing is lost.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprintf("%v", x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}
