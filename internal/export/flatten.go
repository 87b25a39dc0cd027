package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"rentdesk/internal/core"
)

// DisplayDateLayout is how dates appear in exported cells.
const DisplayDateLayout = "02 Jan 2006"

// Document converts a record to its generic JSON form so dot paths can be
// resolved against the same field names clients see.
func Document(record any) (map[string]any, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}

// Lookup resolves a dot path such as "tenant.tenantName". Missing segments
// give nil.
func Lookup(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// Cell turns a JSON value into a spreadsheet cell: numbers stay numeric,
// arrays are joined with ", ", dates are rendered as DisplayDateLayout and
// missing values become "".
func Cell(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string:
		return formatIfDate(x)
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, fmt.Sprint(Cell(item)))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		// An unpopulated object column; its id is the most useful thing to show
		if id, ok := x["_id"].(string); ok {
			return id
		}
		return ""
	}
	return fmt.Sprint(v)
}

// formatIfDate reformats strings that are calendar dates or timestamps and
// returns anything else untouched.
func formatIfDate(s string) any {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return s
	}
	d, err := core.ParseDate(s)
	if err != nil || d.IsZero() {
		return s
	}
	return d.Format(DisplayDateLayout)
}

// Row flattens one record into cells following fields.
func Row(record any, fields []Field) ([]any, error) {
	doc, err := Document(record)
	if err != nil {
		return nil, err
	}
	row := make([]any, len(fields))
	for i, f := range fields {
		row[i] = Cell(Lookup(doc, f.Path))
	}
	return row, nil
}
