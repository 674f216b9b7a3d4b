// Package export renders list results as CSV downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/CachoMX/vhlabs/internal/domain"
)

// Column is one CSV column: a header and how to read its value from a row.
type Column[T any] struct {
	Header string
	Value  func(T) any
}

// WriteCSV writes a header row followed by one row per item. The header is
// written even when rows is empty.
func WriteCSV[T any](w io.Writer, cols []Column[T], rows []T) error {
	cw := csv.NewWriter(w)
	rec := make([]string, len(cols))
	for i, c := range cols {
		rec[i] = c.Header
	}
	if err := cw.Write(rec); err != nil {
		return err
	}
	for _, row := range rows {
		for i, c := range cols {
			rec[i] = Format(c.Value(row))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Format renders a cell: nil as empty, booleans as Yes/No, times as
// UTC ISO-8601 with milliseconds, lists joined with "; ", and documents or
// structs as compact JSON.
func Format(v any) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return Format(rv.Elem().Interface())
	}

	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format("2006-01-02T15:04:05.000Z")
	case []string:
		return strings.Join(x, "; ")
	case domain.StringList:
		return strings.Join(x, "; ")
	case domain.JSON:
		return string(x)
	case json.RawMessage:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Format(rv.Index(i).Interface())
		}
		return strings.Join(parts, "; ")
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// Filename returns "<base>-YYYY-MM-DD.csv" for now.
func Filename(base string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", base, now.UTC().Format("2006-01-02"))
}
