package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/handlers"
	"order-analysis/internal/report"
)

func testTable() export.Tabular {
	return export.Tabular{
		Name:   export.TableDrivers,
		Title:  "Driver-wise Summary: Hebbal, 2025-03-01",
		Header: []string{"Delivery Associate Name", "Vehicle Model", "Delivered"},
		Rows: [][]string{
			{"KA01AB1234", "Bike", "12"},
			{report.GrandTotalLabel, "", "12"},
		},
	}
}

func newTestFormatter(format string, quiet bool) (*OutputFormatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewOutputFormatterWithWriters(format, quiet, false, &out, &errOut), &out, &errOut
}

func TestOutputFormatterPrintTable(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		quiet    bool
		contains []string
		excludes []string
	}{
		{
			name:     "table format",
			format:   FormatTable,
			contains: []string{"Driver-wise Summary", "Delivery Associate Name  Vehicle Model", "KA01AB1234", "Grand Total"},
		},
		{
			name:     "json format",
			format:   FormatJSON,
			contains: []string{`"name": "drivers"`, `"header": [`, `"KA01AB1234"`},
		},
		{
			name:     "csv format",
			format:   FormatCSV,
			contains: []string{"Delivery Associate Name,Vehicle Model,Delivered\n", "KA01AB1234,Bike,12\n", "Grand Total,,12\n"},
			excludes: []string{"Driver-wise Summary"},
		},
		{
			name:     "quiet mode",
			format:   FormatTable,
			quiet:    true,
			contains: []string{"KA01AB1234\tBike\t12\n"},
			excludes: []string{"Delivery Associate Name", "Driver-wise Summary"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, out, _ := newTestFormatter(tt.format, tt.quiet)
			if err := formatter.PrintTable(testTable()); err != nil {
				t.Fatalf("PrintTable failed: %v", err)
			}

			output := out.String()
			for _, expected := range tt.contains {
				if !strings.Contains(output, expected) {
					t.Errorf("Output should contain %q, but got: %s", expected, output)
				}
			}
			for _, unexpected := range tt.excludes {
				if strings.Contains(output, unexpected) {
					t.Errorf("Output should not contain %q, but got: %s", unexpected, output)
				}
			}
		})
	}
}

func TestOutputFormatterAlignsColumns(t *testing.T) {
	formatter, out, _ := newTestFormatter(FormatTable, false)
	formatter.PrintTable(testTable())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected title, header and 2 rows, got %d lines: %q", len(lines), lines)
	}
	col := strings.Index(lines[1], "Vehicle Model")
	if strings.Index(lines[2], "Bike") != col {
		t.Errorf("Expected Bike to align with its header at %d, got %q", col, lines[2])
	}
	if strings.Contains(out.String(), "\x1b[") {
		t.Error("Expected no ANSI escapes when writing to a buffer")
	}
}

func TestOutputFormatterUnsupportedFormat(t *testing.T) {
	formatter, _, _ := newTestFormatter("yaml", false)
	if err := formatter.PrintTable(testTable()); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestOutputFormatterPrintRuns(t *testing.T) {
	msg := "metabase unavailable"
	runs := []database.Run{
		{
			ID:          "4f9c2a10-0000-4000-8000-000000000001",
			TriggeredBy: database.TriggerRequest,
			ReportDate:  "2025-03-01",
			Hub:         "Hebbal [ BH Micro warehouse ]",
			Records:     480,
			Status:      database.RunSucceeded,
			DurationMS:  120,
			CreatedAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "4f9c2a10-0000-4000-8000-000000000002",
			TriggeredBy: database.TriggerSchedule,
			ReportDate:  "2025-03-01",
			Status:      database.RunFailed,
			Error:       &msg,
			CreatedAt:   time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC),
		},
	}

	tests := []struct {
		name     string
		format   string
		quiet    bool
		contains []string
	}{
		{"table format", FormatTable, false, []string{"ID", "TRIGGER", "STATUS", "4f9c2...", "480"}},
		{"json format", FormatJSON, false, []string{`"triggered_by": "request"`, `"error": "metabase unavailable"`}},
		{"csv format", FormatCSV, false, []string{"ID,Created,Trigger", "metabase unavailable"}},
		{"quiet mode", FormatTable, true, []string{"4f9c2a10-0000-4000-8000-000000000001\t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, out, _ := newTestFormatter(tt.format, tt.quiet)
			if err := formatter.PrintRuns(runs); err != nil {
				t.Fatalf("PrintRuns failed: %v", err)
			}
			for _, expected := range tt.contains {
				if !strings.Contains(out.String(), expected) {
					t.Errorf("Output should contain %q, but got: %s", expected, out.String())
				}
			}
		})
	}

	t.Run("empty", func(t *testing.T) {
		formatter, out, _ := newTestFormatter(FormatTable, false)
		formatter.PrintRuns(nil)
		if !strings.Contains(out.String(), "No report runs found.") {
			t.Errorf("Unexpected output: %s", out.String())
		}
	})
}

func TestOutputFormatterPrintConfig(t *testing.T) {
	cfg := &handlers.ConfigResponse{
		Source:        "sample:seed-1",
		Location:      "Asia/Kolkata",
		Hubs:          []string{"Hebbal [ BH Micro warehouse ]"},
		Buckets:       []report.Bucket{{Label: "8-10 AM", Start: 8, End: 10}},
		BacklogCutoff: "15h0m0s",
		Tables:        export.TableNames,
		Formats:       export.Formats,
	}

	formatter, out, _ := newTestFormatter(FormatTable, false)
	if err := formatter.PrintConfig(cfg); err != nil {
		t.Fatalf("PrintConfig failed: %v", err)
	}
	for _, expected := range []string{"Configuration", "Asia/Kolkata", "8-10 AM", "Hebbal [ BH Micro warehouse ]", "parquet"} {
		if !strings.Contains(out.String(), expected) {
			t.Errorf("Output should contain %q, but got: %s", expected, out.String())
		}
	}

	formatter, out, _ = newTestFormatter(FormatCSV, false)
	formatter.PrintConfig(cfg)
	if !strings.HasPrefix(out.String(), "Field,Value\nSource,sample:seed-1\n") {
		t.Errorf("Unexpected csv output: %s", out.String())
	}
}

func TestOutputFormatterMessages(t *testing.T) {
	tests := []struct {
		name     string
		quiet    bool
		expected string
	}{
		{"normal mode", false, "✓ Operation successful"},
		{"quiet mode", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, out, errOut := newTestFormatter(FormatTable, tt.quiet)
			formatter.PrintSuccess("Operation successful")
			formatter.PrintError(errors.New("boom"))

			if tt.expected == "" {
				if out.Len() != 0 || errOut.Len() != 0 {
					t.Errorf("Expected no output in quiet mode, but got: %q %q", out.String(), errOut.String())
				}
				return
			}
			if !strings.Contains(out.String(), tt.expected) {
				t.Errorf("Expected output to contain '%s', but got: %s", tt.expected, out.String())
			}
			if !strings.Contains(errOut.String(), "✗ Error: boom") {
				t.Errorf("Expected error on stderr, got: %s", errOut.String())
			}
		})
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	if ColorEnabled(&buf, false) {
		t.Error("Expected no color for a non-terminal writer")
	}
	if ColorEnabled(&buf, true) {
		t.Error("Expected no color when disabled")
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten chars", 17, "exactly ten chars"},
		{"this is a very long string that should be truncated", 20, "this is a very lo..."},
		{"", 5, ""},
		{"abc", 3, "abc"},
		{"abcd", 3, "..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}
