package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/opendata-madrid/places-cli/internal/collector"
)

// WriteJSON writes the table as an indented JSON array of row objects. An
// empty table is an empty array, never null.
func WriteJSON(path string, table collector.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create json")
	}
	defer f.Close()

	if table == nil {
		table = collector.Table{}
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(table), "export: encode json")
}
