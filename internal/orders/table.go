package orders

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Table is a decoded order snapshot together with the columns its source
// declared.
type Table struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`

	// Unparsed counts timestamp cells that held a value but could not be
	// read; they are stored as "no value".
	Unparsed int `json:"unparsed"`
}

// MissingColumnError is returned when an input lacks contract columns.
type MissingColumnError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s) %s; available columns: %s",
		quoteJoin(e.Missing), quoteJoin(e.Available))
}

func quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// NewTable wraps already-typed records. The table declares the full contract.
func NewTable(records []Record) *Table {
	cols := append([]string{ColOrderID}, RequiredColumns...)
	return &Table{Columns: cols, Records: records}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Has reports whether the table declares column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Require fails with a *MissingColumnError naming every absent column.
func (t *Table) Require(columns ...string) error {
	if t == nil {
		return &MissingColumnError{Missing: columns}
	}
	var missing []string
	for _, col := range columns {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Missing: missing, Available: append([]string(nil), t.Columns...)}
	}
	return nil
}

// FromMaps decodes JSON-style rows (one object per order), as returned by
// the BI query endpoint.
func FromMaps(rows []map[string]any, loc *time.Location) (*Table, error) {
	if len(rows) == 0 {
		return NewTable(nil), nil
	}

	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	table := &Table{Columns: columns}
	if err := table.Require(RequiredColumns...); err != nil {
		return nil, err
	}

	table.Records = make([]Record, 0, len(rows))
	for _, row := range rows {
		var rec Record
		for _, col := range columns {
			table.assign(&rec, col, row[col], loc)
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

// FromRows decodes a header row plus string cells (CSV, spreadsheets, SQL
// result sets).
func FromRows(header []string, rows [][]string, loc *time.Location) (*Table, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := &Table{Columns: columns}
	if len(rows) == 0 && len(columns) == 0 {
		return NewTable(nil), nil
	}
	if err := table.Require(RequiredColumns...); err != nil {
		return nil, err
	}

	table.Records = make([]Record, 0, len(rows))
	for _, row := range rows {
		var rec Record
		for i, col := range columns {
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			table.assign(&rec, col, cell, loc)
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func (t *Table) assign(rec *Record, column string, cell any, loc *time.Location) {
	if field := rec.timestampField(column); field != nil {
		ts, ok := ParseTimestamp(cell, loc)
		if !ok {
			t.Unparsed++
		}
		*field = ts
		return
	}
	switch v := cell.(type) {
	case nil:
		rec.setText(column, "")
	case string:
		rec.setText(column, strings.TrimSpace(v))
	case float64:
		// JSON numbers; order ids arrive this way from some cards.
		rec.setText(column, fmt.Sprintf("%.0f", v))
	default:
		rec.setText(column, fmt.Sprint(v))
	}
}

// Header returns the contract column order used when re-encoding records.
func Header() []string {
	return append([]string{ColOrderID}, RequiredColumns...)
}

// Rows re-encodes the table's records in Header order.
func (t *Table) Rows(loc *time.Location) [][]string {
	header := Header()
	out := make([][]string, 0, len(t.Records))
	for _, rec := range t.Records {
		values := rec.Values(loc)
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = values[col]
		}
		out = append(out, row)
	}
	return out
}
