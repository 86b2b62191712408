package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Actions is the dashboard service as seen by the interactive browser.
type Actions interface {
	Refresh(ctx context.Context) application.DashboardState
	HandleRowAction(ctx context.Context, action application.RowAction, row domain.DraftRecord) error
	State() application.DashboardState
}

// ToastBuffer keeps the latest toast so the browser can show it in its
// footer instead of printing over the screen.
type ToastBuffer struct {
	mu   sync.Mutex
	last domain.Toast
	seen bool
}

var _ ports.Notifier = (*ToastBuffer)(nil)

func (b *ToastBuffer) Toast(_ context.Context, toast domain.Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = toast
	b.seen = true
}

func (b *ToastBuffer) AutoSaved(context.Context, domain.AutoSaveEvent) {}

func (b *ToastBuffer) DraftFound(context.Context, domain.DraftFoundEvent) {}

// Take returns the latest toast and forgets it.
func (b *ToastBuffer) Take() (domain.Toast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	toast, ok := b.last, b.seen
	b.last, b.seen = domain.Toast{}, false
	return toast, ok
}

type refreshedMsg struct {
	state application.DashboardState
}

type actionDoneMsg struct {
	state application.DashboardState
	err   error
}

// Browser is the interactive draft list: r restores the selected draft,
// d deletes it, R reloads the list and q quits.
type Browser struct {
	ctx     context.Context
	actions Actions
	toasts  *ToastBuffer
	now     func() time.Time

	table  table.Model
	state  application.DashboardState
	status string
	busy   bool
	styles styles
}

func NewBrowser(ctx context.Context, actions Actions, toasts *ToastBuffer) Browser {
	t := table.New(
		table.WithColumns(columns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	return Browser{
		ctx:     ctx,
		actions: actions,
		toasts:  toasts,
		now:     time.Now,
		table:   t,
		state:   application.DashboardState{IsLoading: true},
		busy:    true,
		styles:  newStyles(),
	}
}

func columns() []table.Column {
	widths := []int{12, 40, 18, 14}
	cols := make([]table.Column, len(columnTitles))
	for i, title := range columnTitles {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

func (m Browser) Init() tea.Cmd {
	return m.refresh()
}

func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshedMsg:
		m.busy = false
		m.setState(msg.state)
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.setState(msg.state)
		m.status = m.takeToast()
		if m.status == "" && msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Height > 8 {
			m.table.SetHeight(msg.Height - 8)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "R":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = ""
			return m, m.refresh()
		case "r":
			return m.act(application.RowActionRestore)
		case "d":
			return m.act(application.RowActionDelete)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Browser) View() string {
	lines := []string{m.styles.title.Render("Saved Drafts")}

	switch {
	case m.state.IsLoading:
		lines = append(lines, m.styles.empty.Render("Loading drafts..."))
	case m.state.Err != nil:
		lines = append(lines, m.styles.err.Render("Error loading drafts: "+m.state.Err.Error()))
	case !m.state.HasDrafts():
		lines = append(lines, m.styles.empty.Render("No saved drafts found."))
	default:
		lines = append(lines, m.table.View())
	}

	if m.busy && !m.state.IsLoading {
		lines = append(lines, m.styles.status.Render("Working..."))
	} else if m.status != "" {
		lines = append(lines, m.styles.status.Render(m.status))
	}
	lines = append(lines, m.styles.help.Render("r restore  d delete  R refresh  q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Selected returns the draft under the cursor.
func (m Browser) Selected() (domain.DraftRecord, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.state.Drafts) {
		return domain.DraftRecord{}, false
	}
	return m.state.Drafts[cursor], true
}

func (m Browser) State() application.DashboardState {
	return m.state
}

func (m Browser) Status() string {
	return m.status
}

func (m Browser) act(action application.RowAction) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	row, ok := m.Selected()
	if !ok {
		return m, nil
	}

	m.busy = true
	m.status = ""
	ctx, actions := m.ctx, m.actions
	return m, func() tea.Msg {
		err := actions.HandleRowAction(ctx, action, row)
		return actionDoneMsg{state: actions.State(), err: err}
	}
}

func (m Browser) refresh() tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		return refreshedMsg{state: actions.Refresh(ctx)}
	}
}

func (m *Browser) setState(state application.DashboardState) {
	m.state = state

	rows := make([]table.Row, 0, len(state.Drafts))
	for _, draft := range state.Drafts {
		rows = append(rows, table.Row(rowCells(draft, m.now())))
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Browser) takeToast() string {
	if m.toasts == nil {
		return ""
	}
	toast, ok := m.toasts.Take()
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%s: %s", toast.Title, toast.Message))
}

// RunBrowser runs the interactive browser until the user quits.
func RunBrowser(ctx context.Context, actions Actions, toasts *ToastBuffer, input io.Reader, output io.Writer) error {
	p := tea.NewProgram(
		NewBrowser(ctx, actions, toasts),
		tea.WithInput(input),
		tea.WithOutput(output),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
