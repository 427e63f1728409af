package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"order-analysis/internal/report"
)

// Formats.
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatHTML    = "html"
	FormatPNG     = "png"
	FormatParquet = "parquet"
)

// Formats lists every supported export format.
var Formats = []string{FormatCSV, FormatJSON, FormatHTML, FormatPNG, FormatParquet}

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Writer encodes a table in one format.
type Writer interface {
	Format() string
	ContentType() string
	Write(ctx context.Context, w io.Writer, t Tabular) error
}

// Options configure writers that need external resources.
type Options struct {
	// ChromePath overrides the browser binary used for PNG rendering.
	ChromePath string
}

// NewWriter returns the writer for format.
func NewWriter(format string, opts Options) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return CSVWriter{}, nil
	case FormatJSON:
		return JSONWriter{}, nil
	case FormatHTML:
		return HTMLWriter{}, nil
	case FormatPNG:
		return &PNGWriter{ChromePath: opts.ChromePath}, nil
	case FormatParquet:
		return ParquetWriter{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// FileName is the conventional file name for a table in format.
func FileName(t Tabular, format string) string {
	return t.Name + "." + format
}

// CSVWriter writes the header and rows.
type CSVWriter struct{}

func (CSVWriter) Format() string      { return FormatCSV }
func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVWriter) Write(_ context.Context, w io.Writer, t Tabular) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// JSONWriter writes the table as an array of header-keyed objects.
type JSONWriter struct{}

func (JSONWriter) Format() string      { return FormatJSON }
func (JSONWriter) ContentType() string { return "application/json" }

func (JSONWriter) Write(_ context.Context, w io.Writer, t Tabular) error {
	objects := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		objects = append(objects, obj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"name":   t.Name,
		"title":  t.Title,
		"header": t.Header,
		"rows":   objects,
	})
}

var htmlTemplate = template.Must(template.New("table").Funcs(template.FuncMap{"isTotal": isTotalRow}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 16px; background: #fff; }
h3 { margin: 0 0 8px 0; font-size: 15px; color: #222; }
table { border-collapse: collapse; font-size: 12px; }
th, td { border: 1px solid #c8c8c8; padding: 4px 10px; text-align: center; white-space: nowrap; }
th { background: #2f4f75; color: #fff; font-weight: 600; }
tr:nth-child(even) td { background: #f3f6fa; }
tr.total td { font-weight: 700; background: #e4ebf3; }
</style>
</head>
<body>
<div id="report">
<h3>{{.Title}}</h3>
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr{{if isTotal .}} class="total"{{end}}>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</div>
</body>
</html>
`))

func isTotalRow(row []string) bool {
	return len(row) > 0 && row[0] == report.GrandTotalLabel
}

// HTMLWriter renders a standalone styled page holding the table.
type HTMLWriter struct{}

func (HTMLWriter) Format() string      { return FormatHTML }
func (HTMLWriter) ContentType() string { return "text/html; charset=utf-8" }

func (HTMLWriter) Write(_ context.Context, w io.Writer, t Tabular) error {
	if err := htmlTemplate.Execute(w, t); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}
