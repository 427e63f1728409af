package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	cliapi "order-analysis/internal/cli"
	"order-analysis/internal/export"
	"order-analysis/internal/orders"
	"order-analysis/internal/services"
)

var dashboardFlags reportFlags

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Interactive report browser",
	Long: `Browse every report table for a day and hub in the terminal. Switch
tables with tab, move between days with [ and ], cycle hubs with h and
recompute from a fresh snapshot with r.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardFlags.register(dashboardCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// KeyMap represents the key bindings for the dashboard
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	NextDay key.Binding
	PrevDay key.Binding
	Today   key.Binding
	NextHub key.Binding
	PrevHub key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab/→", "next table"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "left"),
			key.WithHelp("shift+tab/←", "previous table"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next day"),
		),
		PrevDay: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous day"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		NextHub: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "next hub"),
		),
		PrevHub: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "previous hub"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recompute"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// reportSource is the part of the API client the dashboard needs.
type reportSource interface {
	Report(ctx context.Context, q cliapi.ReportQuery) (*services.Result, error)
}

// Dashboard is the bubbletea model of the report browser.
type Dashboard struct {
	client   reportSource
	timeout  time.Duration
	loc      *time.Location
	hubs     []string
	hubIdx   int
	date     orders.Date
	tabIdx   int
	keys     KeyMap
	useColor bool

	result   *services.Result
	tables   []export.Tabular
	table    table.Model
	width    int
	loading  bool
	spinner  spinner.Model
	err      error
	showHelp bool
	quitting bool
}

// reportLoadedMsg is sent when a report request completes
type reportLoadedMsg struct {
	date   orders.Date
	hub    string
	result *services.Result
	err    error
}

// NewDashboard creates a dashboard starting at date and hubs[hubIdx].
func NewDashboard(client reportSource, hubs []string, hubIdx int, date orders.Date, loc *time.Location, timeout time.Duration, useColor bool) Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Dashboard{
		client:   client,
		timeout:  timeout,
		loc:      loc,
		hubs:     hubs,
		hubIdx:   hubIdx,
		date:     date,
		keys:     DefaultKeyMap(),
		useColor: useColor,
		spinner:  s,
		table:    table.New(table.WithFocused(true), table.WithHeight(15)),
		loading:  true,
	}
}

func (m Dashboard) hub() string {
	if len(m.hubs) == 0 {
		return ""
	}
	return m.hubs[m.hubIdx]
}

// load requests the report for the current date and hub.
func (m Dashboard) load(refresh bool) tea.Cmd {
	date, hub := m.date, m.hub()
	client, timeout := m.client, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := client.Report(ctx, cliapi.ReportQuery{Date: date.String(), Hub: hub, Refresh: refresh})
		return reportLoadedMsg{date: date, hub: hub, result: result, err: err}
	}
}

// reload marks the model busy and starts a request.
func (m Dashboard) reload(refresh bool) (Dashboard, tea.Cmd) {
	m.loading = true
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.load(refresh))
}

// Init initializes the dashboard
func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(false))
}

// Update handles messages and updates the model
func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.NextTab):
			return m.selectTab(m.tabIdx + 1), nil

		case key.Matches(msg, m.keys.PrevTab):
			return m.selectTab(m.tabIdx - 1), nil
		}

		// Navigation that issues requests waits for the current one.
		if m.loading {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.NextDay):
			m.date = m.date.AddDays(1)
			return m.reload(false)

		case key.Matches(msg, m.keys.PrevDay):
			m.date = m.date.AddDays(-1)
			return m.reload(false)

		case key.Matches(msg, m.keys.Today):
			m.date = orders.Today(m.loc)
			return m.reload(false)

		case key.Matches(msg, m.keys.NextHub):
			if len(m.hubs) > 0 {
				m.hubIdx = (m.hubIdx + 1) % len(m.hubs)
			}
			return m.reload(false)

		case key.Matches(msg, m.keys.PrevHub):
			if len(m.hubs) > 0 {
				m.hubIdx = (m.hubIdx - 1 + len(m.hubs)) % len(m.hubs)
			}
			return m.reload(false)

		case key.Matches(msg, m.keys.Refresh):
			return m.reload(true)

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width)
		if msg.Height > 12 {
			m.table.SetHeight(msg.Height - 10)
		}
		return m, nil

	case reportLoadedMsg:
		// Drop responses for a date or hub the user already moved away from.
		if msg.date != m.date || msg.hub != m.hub() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.result = msg.result
		m.tables = export.Tables(msg.result.Report)
		return m.selectTab(m.tabIdx), nil

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// selectTab shows table i, wrapping around at either end.
func (m Dashboard) selectTab(i int) Dashboard {
	n := len(export.TableNames)
	m.tabIdx = ((i % n) + n) % n
	if m.tabIdx >= len(m.tables) {
		return m
	}

	t := m.tables[m.tabIdx]
	columns := make([]table.Column, len(t.Header))
	for i, h := range t.Header {
		columns[i] = table.Column{Title: h, Width: columnWidth(i, t)}
	}
	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = table.Row(r)
	}

	// Rows must be cleared first: the new columns may be fewer than the old.
	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(rows)
	m.table.GotoTop()

	if m.useColor {
		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		m.table.SetStyles(s)
	}
	return m
}

// columnWidth sizes a column to its widest cell within reasonable limits.
func columnWidth(col int, t export.Tabular) int {
	width := lipgloss.Width(t.Header[col])
	for _, row := range t.Rows {
		if col < len(row) && lipgloss.Width(row[col]) > width {
			width = lipgloss.Width(row[col])
		}
	}
	if width < 6 {
		width = 6
	}
	if width > 40 {
		width = 40
	}
	return width
}

// View renders the dashboard
func (m Dashboard) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.style(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		fmt.Sprintf("%s  |  %s", m.date, m.hub())))
	b.WriteString("\n")
	b.WriteString(m.tabsView())
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(m.helpView())
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		b.WriteString(fmt.Sprintf("%s Computing report...\n", m.spinner.View()))
	case m.err != nil:
		b.WriteString(m.style(lipgloss.NewStyle().Foreground(lipgloss.Color("196")), fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.tabIdx < len(m.tables):
		t := m.tables[m.tabIdx]
		b.WriteString(t.Title)
		b.WriteString("\n")
		if len(t.Rows) == 0 {
			b.WriteString("No rows for this day.\n")
		} else {
			b.WriteString(m.table.View())
			b.WriteString("\n")
		}
	}

	b.WriteString(m.statusLine())
	return b.String()
}

func (m Dashboard) style(s lipgloss.Style, text string) string {
	if !m.useColor {
		return text
	}
	return s.Render(text)
}

func (m Dashboard) tabsView() string {
	tabs := make([]string, len(export.TableNames))
	for i, name := range export.TableNames {
		if i == m.tabIdx {
			if m.useColor {
				tabs[i] = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("205")).Render(name)
			} else {
				tabs[i] = "[" + name + "]"
			}
			continue
		}
		tabs[i] = m.style(lipgloss.NewStyle().Foreground(lipgloss.Color("244")), name)
	}
	return strings.Join(tabs, "  ")
}

// helpView returns the help view
func (m Dashboard) helpView() string {
	help := strings.Builder{}
	help.WriteString("Help:\n")
	help.WriteString("  ↑/k ↓/j        - Move within the table\n")
	help.WriteString("  tab/→ shift+tab/← - Switch table\n")
	help.WriteString("  [ ]            - Previous / next day\n")
	help.WriteString("  t              - Today\n")
	help.WriteString("  h H            - Next / previous hub\n")
	help.WriteString("  r              - Recompute from a fresh snapshot\n")
	help.WriteString("  ?              - Toggle help\n")
	help.WriteString("  q/ctrl+c       - Quit\n")
	return help.String()
}

// statusLine returns the status line
func (m Dashboard) statusLine() string {
	if m.result == nil {
		return "Press ? for help"
	}
	snap := m.result.Snapshot
	cached := "fresh"
	if snap.FromCache {
		cached = "cached"
	}
	line := fmt.Sprintf("%d orders from %s (%s, %s) | Press ? for help",
		snap.Records, snap.Source, cached, snap.TakenAt.In(m.loc).Format("15:04:05"))
	return m.style(lipgloss.NewStyle().Foreground(lipgloss.Color("244")), line)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, formatter, client, err := initializeClient(cmd)
	if err != nil {
		return err
	}

	serverCfg, err := client.Config(cmd.Context())
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	if len(serverCfg.Hubs) == 0 {
		return fmt.Errorf("server has no hubs configured")
	}

	loc, err := time.LoadLocation(serverCfg.Location)
	if err != nil {
		return fmt.Errorf("server location %q: %w", serverCfg.Location, err)
	}

	date := orders.Today(loc)
	if dashboardFlags.date != "" {
		if date, err = orders.ParseDate(dashboardFlags.date); err != nil {
			return err
		}
	}

	hubIdx := 0
	if dashboardFlags.hub != "" {
		hubIdx = -1
		for i, h := range serverCfg.Hubs {
			if h == dashboardFlags.hub {
				hubIdx = i
			}
		}
		if hubIdx < 0 {
			return fmt.Errorf("unknown hub %q", dashboardFlags.hub)
		}
	}

	dashboard := NewDashboard(client, serverCfg.Hubs, hubIdx, date, loc, cfg.RequestTimeout,
		cliapi.ColorEnabled(os.Stdout, cfg.NoColor))
	p := tea.NewProgram(dashboard, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
