package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/handlers"
	"order-analysis/internal/report"
	"order-analysis/internal/workers"
)

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format string
	quiet  bool
	out    io.Writer
	errOut io.Writer

	title  lipgloss.Style
	header lipgloss.Style
	total  lipgloss.Style
	ok     lipgloss.Style
	fail   lipgloss.Style
	info   lipgloss.Style
}

// NewOutputFormatter creates a formatter writing to stdout and stderr.
func NewOutputFormatter(format string, quiet, noColor bool) *OutputFormatter {
	return NewOutputFormatterWithWriters(format, quiet, noColor, os.Stdout, os.Stderr)
}

// NewOutputFormatterWithWriters creates a formatter writing to out and errOut.
// Color is used only when out is a terminal and noColor is false.
func NewOutputFormatterWithWriters(format string, quiet, noColor bool, out, errOut io.Writer) *OutputFormatter {
	renderer := lipgloss.NewRenderer(out)
	if !ColorEnabled(out, noColor) {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &OutputFormatter{
		format: format,
		quiet:  quiet,
		out:    out,
		errOut: errOut,
		title:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		header: renderer.NewStyle().Bold(true).Underline(true),
		total:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		ok:     renderer.NewStyle().Foreground(lipgloss.Color("10")),
		fail:   renderer.NewStyle().Foreground(lipgloss.Color("9")),
		info:   renderer.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// ColorEnabled reports whether styled output should be written to w.
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintTable prints one report table.
func (f *OutputFormatter) PrintTable(t export.Tabular) error {
	if f.quiet {
		return f.printRows(t)
	}

	switch f.format {
	case FormatJSON:
		return f.printJSON(t)
	case FormatCSV:
		return export.CSVWriter{}.Write(context.Background(), f.out, t)
	case FormatTable:
		f.printAligned(t)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintTables prints several tables, separated by a blank line.
func (f *OutputFormatter) PrintTables(tables []export.Tabular) error {
	if f.format == FormatJSON && !f.quiet {
		return f.printJSON(tables)
	}
	for i, t := range tables {
		if i > 0 && !f.quiet {
			fmt.Fprintln(f.out)
		}
		if err := f.PrintTable(t); err != nil {
			return err
		}
	}
	return nil
}

// PrintRuns prints report run history
func (f *OutputFormatter) PrintRuns(runs []database.Run) error {
	if f.format == FormatJSON && !f.quiet {
		return f.printJSON(runs)
	}
	if f.format == FormatTable && !f.quiet {
		return f.printRunsTable(runs)
	}

	t := export.Tabular{
		Name:   "runs",
		Header: []string{"ID", "Created", "Trigger", "Date", "Hub", "Records", "Status", "Duration", "Error"},
	}
	for _, run := range runs {
		t.Rows = append(t.Rows, []string{
			run.ID, run.CreatedAt.Format(time.RFC3339), run.TriggeredBy, run.ReportDate, run.Hub,
			strconv.Itoa(run.Records), run.Status, strconv.FormatInt(run.DurationMS, 10) + "ms", derefString(run.Error),
		})
	}
	return f.PrintTable(t)
}

// PrintRun prints a single report run
func (f *OutputFormatter) PrintRun(run *database.Run) error {
	if f.format == FormatJSON && !f.quiet {
		return f.printJSON(run)
	}
	return f.printFields("Report Run", [][2]string{
		{"ID", run.ID},
		{"Source", run.Source},
		{"Triggered by", run.TriggeredBy},
		{"Report date", run.ReportDate},
		{"Hub", run.Hub},
		{"Records", strconv.Itoa(run.Records)},
		{"Status", run.Status},
		{"Error", derefString(run.Error)},
		{"Duration", (time.Duration(run.DurationMS) * time.Millisecond).String()},
		{"Created", run.CreatedAt.Format("2006-01-02 15:04:05")},
	})
}

// PrintSnapshotSummary prints the outcome of a snapshot run
func (f *OutputFormatter) PrintSnapshotSummary(s *workers.SnapshotSummary) error {
	if f.format == FormatJSON && !f.quiet {
		return f.printJSON(s)
	}

	fields := [][2]string{
		{"Trigger", s.Trigger},
		{"Date", s.Date.String()},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration", s.Duration},
		{"Records", strconv.Itoa(s.Records)},
		{"Reports", strconv.Itoa(s.Reports)},
		{"Failures", strconv.Itoa(s.Failures)},
		{"Pruned runs", strconv.FormatInt(s.Pruned, 10)},
	}
	for _, e := range s.Errors {
		fields = append(fields, [2]string{"Error", e})
	}
	for _, a := range s.Artifacts {
		fields = append(fields, [2]string{"Artifact", a.Location})
	}
	return f.printFields("Snapshot", fields)
}

// PrintSnapshotStatus prints the scheduler state
func (f *OutputFormatter) PrintSnapshotStatus(s *handlers.SnapshotStatusResponse) error {
	if f.format == FormatJSON && !f.quiet {
		return f.printJSON(s)
	}

	fields := [][2]string{
		{"Running", strconv.FormatBool(s.Running)},
		{"Paused", strconv.FormatBool(s.Paused)},
	}
	if s.NextRun != nil {
		fields = append(fields, [2]string{"Next run", s.NextRun.Format("2006-01-02 15:04:05 MST")})
	}
	if s.LastRun != nil {
		fields = append(fields,
			[2]string{"Last run", s.LastRun.StartedAt.Format("2006-01-02 15:04:05")},
			[2]string{"Last trigger", s.LastRun.Trigger},
			[2]string{"Last failures", strconv.Itoa(s.LastRun.Failures)},
		)
	}
	return f.printFields("Snapshot Scheduler", fields)
}

// PrintConfig prints the server's report configuration
func (f *OutputFormatter) PrintConfig(cfg *handlers.ConfigResponse) error {
	if f.format == FormatJSON && !f.quiet {
		return f.printJSON(cfg)
	}

	buckets := make([]string, len(cfg.Buckets))
	for i, b := range cfg.Buckets {
		buckets[i] = b.Label
	}
	fields := [][2]string{
		{"Source", cfg.Source},
		{"Location", cfg.Location},
		{"Backlog cutoff", cfg.BacklogCutoff},
		{"Date-filter driver exceptions", strconv.FormatBool(cfg.DateFilterDriverExceptions)},
		{"Time buckets", strings.Join(buckets, ", ")},
		{"Tables", strings.Join(cfg.Tables, ", ")},
		{"Formats", strings.Join(cfg.Formats, ", ")},
	}
	for _, hub := range cfg.Hubs {
		fields = append(fields, [2]string{"Hub", hub})
	}
	for _, customer := range cfg.Customers {
		fields = append(fields, [2]string{"Customer", customer})
	}
	return f.printFields("Configuration", fields)
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		fmt.Fprintln(f.out, f.ok.Render("✓ "+message))
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	if !f.quiet {
		fmt.Fprintln(f.errOut, f.fail.Render(fmt.Sprintf("✗ Error: %v", err)))
	}
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	if !f.quiet {
		fmt.Fprintln(f.out, f.info.Render("ℹ "+message))
	}
}

func (f *OutputFormatter) printJSON(v interface{}) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows writes bare tab-separated rows for piping into other tools.
func (f *OutputFormatter) printRows(t export.Tabular) error {
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(f.out, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// printAligned renders a table with padded columns. Padding is computed on
// the plain text so styling does not skew the alignment.
func (f *OutputFormatter) printAligned(t export.Tabular) {
	if t.Title != "" {
		fmt.Fprintln(f.out, f.title.Render(t.Title))
	}
	if len(t.Rows) == 0 {
		fmt.Fprintln(f.out, "No rows.")
		return
	}

	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	measure(t.Header)
	for _, row := range t.Rows {
		measure(row)
	}

	line := func(row []string, style lipgloss.Style) string {
		cells := make([]string, len(row))
		for i, cell := range row {
			pad := 0
			if i < len(widths) {
				pad = widths[i] - lipgloss.Width(cell)
			}
			cells[i] = style.Render(cell) + strings.Repeat(" ", pad)
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	fmt.Fprintln(f.out, line(t.Header, f.header))
	for _, row := range t.Rows {
		style := lipgloss.NewStyle()
		if len(row) > 0 && row[0] == report.GrandTotalLabel {
			style = f.total
		}
		fmt.Fprintln(f.out, line(row, style))
	}
}

// printFields prints label/value pairs.
func (f *OutputFormatter) printFields(title string, fields [][2]string) error {
	if f.format == FormatCSV || f.quiet {
		t := export.Tabular{Header: []string{"Field", "Value"}}
		for _, kv := range fields {
			t.Rows = append(t.Rows, []string{kv[0], kv[1]})
		}
		return f.PrintTable(t)
	}
	if f.format != FormatTable {
		return fmt.Errorf("unsupported format: %s", f.format)
	}

	fmt.Fprintln(f.out, f.title.Render(title))
	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", kv[0], kv[1])
	}
	return w.Flush()
}

// printRunsTable prints runs in table format
func (f *OutputFormatter) printRunsTable(runs []database.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(f.out, "No report runs found.")
		return nil
	}

	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)

	// Header
	fmt.Fprintln(w, "ID\tCREATED\tTRIGGER\tDATE\tHUB\tRECORDS\tSTATUS\tDURATION")

	// Data
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%dms\n",
			truncate(run.ID, 8),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.TriggeredBy,
			run.ReportDate,
			truncate(run.Hub, 30),
			run.Records,
			run.Status,
			run.DurationMS)
	}

	return w.Flush()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
