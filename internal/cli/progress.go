package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressSpinner shows a spinner on stderr while a slow request runs, so
// stdout stays clean for piping.
type ProgressSpinner struct {
	message string
	out     io.Writer
	animate bool

	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// NewProgressSpinner creates a new progress spinner. Without a color
// terminal the message is printed once instead.
func NewProgressSpinner(message string, noColor bool) *ProgressSpinner {
	return &ProgressSpinner{
		message: message,
		out:     os.Stderr,
		animate: ColorEnabled(os.Stderr, noColor) && os.Getenv("CI") == "",
		done:    make(chan struct{}),
	}
}

// Start begins the spinner in a goroutine
func (p *ProgressSpinner) Start() {
	if !p.animate {
		fmt.Fprintf(p.out, "%s...\n", p.message)
		close(p.done)
		return
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	p.program = tea.NewProgram(spinnerModel{
		spinner: s,
		message: p.message,
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}, tea.WithOutput(p.out), tea.WithInput(nil))

	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
}

// Stop stops the spinner and waits for the terminal to be restored.
func (p *ProgressSpinner) Stop() {
	p.once.Do(func() {
		if p.program != nil {
			p.program.Quit()
		}
		<-p.done
	})
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	style   lipgloss.Style
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.style.Render(m.message))
}
