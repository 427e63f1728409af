package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	cliapi "order-analysis/internal/cli"
	"order-analysis/internal/export"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/services"
	"order-analysis/internal/source"
)

// fakeReports computes reports locally from the sample source.
type fakeReports struct {
	queries []cliapi.ReportQuery
	err     error
}

func (f *fakeReports) Report(ctx context.Context, q cliapi.ReportQuery) (*services.Result, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}

	cfg := report.DefaultConfig()
	date, err := orders.ParseDate(q.Date)
	if err != nil {
		return nil, err
	}
	table, err := source.NewSampleSource(source.SampleConfig{Seed: 5, Orders: 120, Date: date}, cfg.Location).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := report.Build(table, report.Params{Date: date, Hub: q.Hub}, cfg)
	if err != nil {
		return nil, err
	}
	return &services.Result{
		Snapshot: services.SnapshotInfo{Source: "fake", Records: table.Len(), TakenAt: time.Now()},
		Report:   rep,
	}, nil
}

func newTestDashboard(t *testing.T, fake *fakeReports) Dashboard {
	t.Helper()
	date, err := orders.ParseDate("2025-03-01")
	if err != nil {
		t.Fatal(err)
	}
	loc := report.DefaultConfig().Location
	return NewDashboard(fake, report.DefaultHubs[:3], 0, date, loc, time.Second, false)
}

// deliver runs cmd's report request and feeds the result back to the model.
func deliver(t *testing.T, m Dashboard) Dashboard {
	t.Helper()
	msg := m.load(false)()
	updated, _ := m.Update(msg)
	return updated.(Dashboard)
}

func press(m Dashboard, keys string) (Dashboard, tea.Cmd) {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	switch keys {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	updated, cmd := m.Update(msg)
	return updated.(Dashboard), cmd
}

func TestDashboardLoadsReport(t *testing.T) {
	fake := &fakeReports{}
	m := deliver(t, newTestDashboard(t, fake))

	if m.loading {
		t.Error("Expected loading to finish")
	}
	if len(m.tables) != len(export.TableNames) {
		t.Fatalf("Expected %d tables, got %d", len(export.TableNames), len(m.tables))
	}
	if fake.queries[0].Date != "2025-03-01" || fake.queries[0].Hub != report.DefaultHubs[0] {
		t.Errorf("Unexpected query %+v", fake.queries[0])
	}

	view := m.View()
	if !strings.Contains(view, "Driver-wise Summary") {
		t.Errorf("Expected drivers table in view, got:\n%s", view)
	}
	if !strings.Contains(view, "[drivers]") {
		t.Errorf("Expected drivers tab marked active, got:\n%s", view)
	}
	if !strings.Contains(view, "120 orders from fake") {
		t.Errorf("Expected status line, got:\n%s", view)
	}
}

func TestDashboardTabs(t *testing.T) {
	m := deliver(t, newTestDashboard(t, &fakeReports{}))

	m, _ = press(m, "tab")
	if m.tabIdx != 1 || !strings.Contains(m.View(), "Hub-wise Summary") {
		t.Errorf("Expected hubs tab, got index %d", m.tabIdx)
	}

	m, _ = press(m, "shift+tab")
	m, _ = press(m, "shift+tab")
	if m.tabIdx != len(export.TableNames)-1 {
		t.Errorf("Expected wrap to the last tab, got %d", m.tabIdx)
	}
}

func TestDashboardNavigation(t *testing.T) {
	fake := &fakeReports{}
	m := deliver(t, newTestDashboard(t, fake))

	m, cmd := press(m, "]")
	if cmd == nil || !m.loading {
		t.Fatal("Expected next day to start a request")
	}
	if m.date.String() != "2025-03-02" {
		t.Errorf("Expected 2025-03-02, got %s", m.date)
	}

	// Requests are not stacked while one is in flight.
	m, cmd = press(m, "h")
	if cmd != nil || m.hubIdx != 0 {
		t.Error("Expected hub change to wait for the pending request")
	}

	m = deliver(t, m)
	m, _ = press(m, "H")
	if m.hub() != report.DefaultHubs[2] {
		t.Errorf("Expected previous hub to wrap to %s, got %s", report.DefaultHubs[2], m.hub())
	}
	m = deliver(t, m)

	m, _ = press(m, "r")
	msg := m.load(true)()
	m2, _ := m.Update(msg)
	m = m2.(Dashboard)
	last := fake.queries[len(fake.queries)-1]
	if !last.Refresh || last.Hub != report.DefaultHubs[2] || last.Date != "2025-03-02" {
		t.Errorf("Unexpected recompute query %+v", last)
	}
}

func TestDashboardStaleResponse(t *testing.T) {
	m := newTestDashboard(t, &fakeReports{})
	msg := m.load(false)().(reportLoadedMsg)
	msg.date = msg.date.AddDays(-1)

	updated, _ := m.Update(msg)
	if !updated.(Dashboard).loading {
		t.Error("Expected a response for another day to be ignored")
	}
}

func TestDashboardError(t *testing.T) {
	m := deliver(t, newTestDashboard(t, &fakeReports{err: errors.New("API error 502: metabase unavailable")}))

	if m.err == nil {
		t.Fatal("Expected error to be recorded")
	}
	if !strings.Contains(m.View(), "Error: API error 502") {
		t.Errorf("Expected error in view, got:\n%s", m.View())
	}
}

func TestDashboardQuit(t *testing.T) {
	m := newTestDashboard(t, &fakeReports{})
	m, cmd := press(m, "q")
	if !m.quitting || cmd == nil {
		t.Error("Expected quit")
	}
}

func TestExportPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		output string
		want   string
	}{
		{"", "2025-03-01_hebbal_drivers.csv"},
		{dir, filepath.Join(dir, "2025-03-01_hebbal_drivers.csv")},
		{filepath.Join(dir, "out.csv"), filepath.Join(dir, "out.csv")},
	}

	for _, tt := range tests {
		if got := exportPath(tt.output, "2025-03-01_hebbal_drivers.csv"); got != tt.want {
			t.Errorf("exportPath(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drivers.csv")
	n, err := writeFile(path, strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes, got %d", n)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a,b\n" {
		t.Errorf("Unexpected content %q", data)
	}
}
