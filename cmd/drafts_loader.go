package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/draftguard/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize/english"
)

var (
	loaderOKStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	loaderErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type draftsLoadedMsg struct {
	state application.DashboardState
}

// draftsLoaderModel spins while the list query runs and leaves a one-line
// outcome behind.
type draftsLoaderModel struct {
	spinner spinner.Model
	load    tea.Cmd
	state   application.DashboardState
	done    bool
}

func newDraftsLoaderModel(load tea.Cmd) draftsLoaderModel {
	return draftsLoaderModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		load:  load,
		state: application.DashboardState{IsLoading: true},
	}
}

func (m draftsLoaderModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m draftsLoaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case draftsLoadedMsg:
		m.done = true
		m.state = msg.state
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m draftsLoaderModel) View() string {
	if !m.done {
		return fmt.Sprintf("%s Loading drafts...", m.spinner.View())
	}
	return loadOutcome(m.state) + "\n"
}

func loadOutcome(state application.DashboardState) string {
	if state.Err != nil {
		return loaderErrStyle.Render("✗ could not load drafts")
	}
	return loaderOKStyle.Render("✓ " + english.Plural(len(state.Drafts), "draft", "") + " loaded")
}

// loadDrafts refreshes dashboard behind a spinner on output. The returned
// state carries any list failure; the error is only for the terminal program.
func loadDrafts(ctx context.Context, output io.Writer, dashboard *application.DashboardService) (application.DashboardState, error) {
	load := func() tea.Msg {
		return draftsLoadedMsg{state: dashboard.Refresh(ctx)}
	}

	p := tea.NewProgram(
		newDraftsLoaderModel(load),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.DashboardState{}, err
	}

	result, ok := finalModel.(draftsLoaderModel)
	if !ok {
		return application.DashboardState{}, fmt.Errorf("unexpected final loader model type %T", finalModel)
	}

	return result.state, nil
}
