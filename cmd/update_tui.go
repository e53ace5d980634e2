package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"dlss-updater/logger"
	"dlss-updater/updater"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// UpdateProgressMsg represents a progress update from the update pipeline
type UpdateProgressMsg struct {
	Type    string // "status", "progress", "updated", "error", "summary", "done"
	Message string
	Current int
	Total   int
}

// UpdateModel controls the UI for the update command
type UpdateModel struct {
	spinner      spinner.Model
	progressChan chan UpdateProgressMsg
	selection    updater.Selection

	// State
	status    string
	completed []string
	errors    []string
	summary   string
	current   int
	total     int
	done      bool
}

func initialUpdateModel(sel updater.Selection) UpdateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return UpdateModel{
		spinner:      s,
		progressChan: make(chan UpdateProgressMsg, 100), // Buffer slightly to avoid blocking
		selection:    sel,
		status:       "Scanning launchers...",
	}
}

func (m UpdateModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startUpdate(),
		m.waitForActivity(),
	)
}

func (m UpdateModel) startUpdate() tea.Cmd {
	return func() tea.Msg {
		go func() {
			defer close(m.progressChan)
			runUpdatePipeline(m.selection, m.progressChan)
		}()
		return nil
	}
}

func (m UpdateModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return UpdateProgressMsg{Type: "done"}
		}
		return msg
	}
}

// runUpdatePipeline drives the scan and update run, translating pipeline
// events into messages for the view.
func runUpdatePipeline(sel updater.Selection, ch chan UpdateProgressMsg) {
	cfg, store := bootstrap(".")
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := executeUpdate(ctx, &cfg, store, sel, func(current, total int, message string) {
		ch <- UpdateProgressMsg{Type: "progress", Message: message, Current: current, Total: total}
	})
	if err != nil {
		logger.Log.Errorw("Update run failed", zap.Error(err))
		ch <- UpdateProgressMsg{Type: "error", Message: err.Error()}
		return
	}

	for _, o := range report.Updated {
		ch <- UpdateProgressMsg{Type: "updated",
			Message: fmt.Sprintf("%s %s: %s -> %s", o.GameName, o.Filename, o.FromVersion, o.ToVersion)}
	}
	for _, o := range report.Failed {
		ch <- UpdateProgressMsg{Type: "error",
			Message: fmt.Sprintf("%s %s: %s", o.GameName, o.Filename, o.Reason)}
	}
	ch <- UpdateProgressMsg{Type: "summary", Message: report.Summary()}
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// If done, allow any key to exit
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UpdateProgressMsg:
		switch msg.Type {
		case "done":
			m.done = true
			m.status = "Finished"
			return m, tea.Quit

		case "status":
			m.status = msg.Message

		case "progress":
			m.status = msg.Message
			m.current = msg.Current
			m.total = msg.Total

		case "updated":
			m.completed = append(m.completed, msg.Message)

		case "error":
			m.errors = append(m.errors, msg.Message)

		case "summary":
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func (m UpdateModel) View() string {
	var symbol string
	if m.done {
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	s := fmt.Sprintf("\n %s %s", symbol, m.status)
	if m.total > 0 && !m.done {
		s += fmt.Sprintf(" (%d/%d)", m.current, m.total)
	}
	s += "\n\n"

	if len(m.errors) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Errors:") + "\n"
		for _, e := range m.errors {
			s += fmt.Sprintf("  • %s\n", e)
		}
		s += "\n"
	}

	// Show last few completed
	if len(m.completed) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("Updated:") + "\n"
		start := 0
		if len(m.completed) > 5 && !m.done {
			start = len(m.completed) - 5
		}
		for i := start; i < len(m.completed); i++ {
			s += fmt.Sprintf("  • %s\n", m.completed[i])
		}
		s += "\n"
	}

	if m.done {
		s += lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n"
	}

	return s
}
