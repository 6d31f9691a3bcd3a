package sqlfacade

import (
	"time"

	"github.com/nerrad567/gray-logic-sqlfacade/internal/infrastructure/database"
)

// Row maps column name to value for one result row.
//
// Values are int64, float64 or string. Null columns and columns of a type
// the façade does not materialise (blobs, nested values) are absent. When
// two columns share a name the right-most one wins, so a right-most null
// removes the name.
type Row map[string]any

// Text returns the column as a string; ok is false if absent or not text.
func (r Row) Text(column string) (string, bool) {
	s, ok := r[column].(string)
	return s, ok
}

// Int returns the column as an int64; ok is false if absent or not integer.
func (r Row) Int(column string) (int64, bool) {
	i, ok := r[column].(int64)
	return i, ok
}

// Float returns the column as a float64; ok is false if absent or not floating.
func (r Row) Float(column string) (float64, bool) {
	f, ok := r[column].(float64)
	return f, ok
}

// IsNull reports whether the column is absent from the row, which covers
// null and unmaterialised values.
func (r Row) IsNull(column string) bool {
	return r[column] == nil
}

// materialize converts a scanned driver value into a Row value.
//
// Integer-like values widen to int64 (booleans become 0/1), floats widen
// to float64, strings pass through and times are rendered as SQLite
// DATETIME text. Everything else is absent.
func materialize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x) //nolint:gosec // Engines report row values within int64 range
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case float64:
		return x
	case float32:
		return float64(x)
	case string:
		return x
	case time.Time:
		return x.Format(database.TimestampFormat)
	default:
		return nil
	}
}
