package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/domain"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var columnTitles = []string{"Case Number", "Subject", "Last Saved", "Page"}

type RenderOptions struct {
	Now time.Time
}

func renderView(state application.DashboardState, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Saved Drafts")}

	switch {
	case state.IsLoading:
		lines = append(lines, s.empty.Render("Loading drafts..."))
	case state.Err != nil:
		lines = append(lines, s.err.Render("Error loading drafts: "+state.Err.Error()))
	case !state.HasDrafts():
		lines = append(lines, s.empty.Render("No saved drafts found."))
	default:
		lines = append(lines, s.header.UnsetPadding().Render(fmt.Sprintf("drafts: %d", len(state.Drafts))))
		lines = append(lines, s.section.Render(renderTable(state.Drafts, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderTable(drafts []domain.DraftRecord, opts RenderOptions, s styles) string {
	t := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(columnTitles...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return s.header
			}
			return s.cell
		})

	for _, draft := range drafts {
		t.Row(rowCells(draft, opts.Now)...)
	}

	return t.Render()
}

func rowCells(draft domain.DraftRecord, now time.Time) []string {
	return []string{
		orDash(draft.CaseNumber),
		orDash(draft.CaseSubject),
		relativeTime(draft.LastSaved, now),
		orDash(draft.PageContext),
	}
}

func relativeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if now.IsZero() {
		now = time.Now()
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
