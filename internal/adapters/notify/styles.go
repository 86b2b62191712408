package notify

import (
	"github.com/bnema/draftguard/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title   map[domain.ToastVariant]lipgloss.Style
	message lipgloss.Style
	sticky  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: map[domain.ToastVariant]lipgloss.Style{
			domain.ToastInfo:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
			domain.ToastSuccess: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
			domain.ToastWarning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
			domain.ToastError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		},
		message: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		sticky:  lipgloss.NewStyle().Faint(true),
	}
}

func (s styles) titleFor(variant domain.ToastVariant) lipgloss.Style {
	if style, ok := s.title[variant]; ok {
		return style
	}
	return s.title[domain.ToastInfo]
}
