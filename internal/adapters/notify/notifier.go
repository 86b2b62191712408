package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

// Event is one line of the outbound event stream read by the host.
type Event struct {
	Name   domain.EventName `json:"event"`
	Detail any              `json:"detail"`
}

type autoSaveDetail struct {
	Timestamp time.Time `json:"timestamp"`
	DraftID   string    `json:"draftId,omitempty"`
}

type draftFoundDetail struct {
	DraftData string     `json:"draftData"`
	LastSaved *time.Time `json:"lastSaved,omitempty"`
}

// Terminal renders toasts for the user on one writer and emits host events
// as JSON lines on another.
type Terminal struct {
	toasts io.Writer
	events io.Writer
	styles styles
	logger *zap.Logger

	mu sync.Mutex
}

var _ ports.Notifier = (*Terminal)(nil)

func NewTerminal(toasts io.Writer, events io.Writer, logger *zap.Logger) *Terminal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Terminal{toasts: toasts, events: events, styles: newStyles(), logger: logger}
}

func (t *Terminal) Toast(_ context.Context, toast domain.Toast) {
	if t.toasts == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintln(t.toasts, t.renderToast(toast)); err != nil {
		t.logger.Warn("write toast", zap.Error(err))
	}
}

func (t *Terminal) AutoSaved(_ context.Context, event domain.AutoSaveEvent) {
	t.emit(Event{
		Name:   domain.EventAutoSaveSucceeded,
		Detail: autoSaveDetail{Timestamp: event.Timestamp.UTC(), DraftID: string(event.DraftID)},
	})
}

func (t *Terminal) DraftFound(_ context.Context, event domain.DraftFoundEvent) {
	detail := draftFoundDetail{DraftData: event.DraftData}
	if !event.LastSaved.IsZero() {
		lastSaved := event.LastSaved.UTC()
		detail.LastSaved = &lastSaved
	}
	t.emit(Event{Name: domain.EventDraftFound, Detail: detail})
}

func (t *Terminal) emit(event Event) {
	if t.events == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.logger.Warn("encode event", zap.String("event", string(event.Name)), zap.Error(err))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.events.Write(append(data, '\n')); err != nil {
		t.logger.Warn("write event", zap.String("event", string(event.Name)), zap.Error(err))
	}
}

func (t *Terminal) renderToast(toast domain.Toast) string {
	title := t.styles.titleFor(toast.Variant).Render(fmt.Sprintf("[%s] %s", strings.ToUpper(string(toast.Variant)), toast.Title))
	parts := []string{title}
	if toast.Message != "" {
		parts = append(parts, t.styles.message.Render(toast.Message))
	}
	if toast.Sticky() {
		parts = append(parts, t.styles.sticky.Render("(pinned)"))
	}
	return strings.Join(parts, " ")
}
