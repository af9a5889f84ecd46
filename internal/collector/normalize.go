package collector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Policy selects how Normalize reacts to a row that fails extraction.
type Policy int

const (
	// PolicyLenient keeps the whole batch in pre-extraction shape when any
	// row fails: municipio set, nested columns intact, and the failure
	// reported alongside. All-or-nothing, never per-row.
	PolicyLenient Policy = iota

	// PolicyStrict abandons the batch on the first failing row.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy maps the config spelling to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return PolicyLenient, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return 0, eris.Errorf("collector: unknown policy %q", s)
	}
}

// BatchError reports the first extraction failure inside one municipality's
// batch.
type BatchError struct {
	Municipality string
	RowIndex     int
	Field        string
	Err          error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("normalize %s: row %d: %v", e.Municipality, e.RowIndex, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// nestedColumns are the raw API fields flattening replaces.
var nestedColumns = [...]string{"categories", "location", "geocodes"}

// Normalize flattens one municipality's raw search results into dataset
// rows. Every output row carries municipio, overwriting any field of that
// name. On success the nested categories/location/geocodes columns are
// replaced by id_categoria, categoria, direccion, latitud, and longitud;
// all other fields pass through untouched.
//
// The batch is all-or-nothing. Under PolicyLenient a single failing row
// keeps the entire batch in pre-extraction shape and the returned
// *BatchError says why; callers decide whether that still counts. Under
// PolicyStrict the table comes back nil. Input rows are never mutated, and
// an empty input is an empty table.
func Normalize(raw []map[string]any, municipality string, policy Policy) (Table, *BatchError) {
	if len(raw) == 0 {
		return Table{}, nil
	}

	// Pre-extraction shape: fresh copies with municipio stamped on.
	tagged := make(Table, len(raw))
	for i, src := range raw {
		row := make(Row, len(src)+1)
		for k, v := range src {
			row[k] = v
		}
		row["municipio"] = municipality
		tagged[i] = row
	}

	flat := make(Table, len(tagged))
	for i, row := range tagged {
		out, err := flattenRow(row)
		if err != nil {
			batchErr := &BatchError{
				Municipality: municipality,
				RowIndex:     i,
				Field:        fieldOf(err),
				Err:          err,
			}
			if policy == PolicyStrict {
				return nil, batchErr
			}
			return tagged, batchErr
		}
		flat[i] = out
	}

	return flat, nil
}

// flattenRow derives the five dataset columns and drops the nested ones.
func flattenRow(row Row) (Row, error) {
	code, name, err := extractCategory(row)
	if err != nil {
		return nil, err
	}
	addr, err := extractAddress(row)
	if err != nil {
		return nil, err
	}
	lat, lon, err := extractPosition(row)
	if err != nil {
		return nil, err
	}

	out := make(Row, len(row)+2)
	for k, v := range row {
		out[k] = v
	}
	for _, col := range nestedColumns {
		delete(out, col)
	}
	out["id_categoria"] = code
	out["categoria"] = name
	out["direccion"] = addr
	out["latitud"] = lat
	out["longitud"] = lon

	return out, nil
}

// fieldOf names the field a MissingFieldError complains about.
func fieldOf(err error) string {
	var miss *MissingFieldError
	if errors.As(err, &miss) {
		return miss.Field
	}
	return ""
}
