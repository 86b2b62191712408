package mocks

import (
	"context"
	"sync"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
)

// Notifier records everything it is asked to deliver.
type Notifier struct {
	mu          sync.Mutex
	toasts      []domain.Toast
	saved       []domain.AutoSaveEvent
	found       []domain.DraftFoundEvent
	navigations []domain.Navigation
}

var (
	_ ports.Notifier  = (*Notifier)(nil)
	_ ports.Navigator = (*Notifier)(nil)
)

func (n *Notifier) Toast(_ context.Context, toast domain.Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast)
}

func (n *Notifier) AutoSaved(_ context.Context, event domain.AutoSaveEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.saved = append(n.saved, event)
}

func (n *Notifier) DraftFound(_ context.Context, event domain.DraftFoundEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.found = append(n.found, event)
}

func (n *Notifier) Navigate(_ context.Context, nav domain.Navigation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigations = append(n.navigations, nav)
	return nil
}

func (n *Notifier) Toasts() []domain.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Toast(nil), n.toasts...)
}

func (n *Notifier) ToastsWithVariant(variant domain.ToastVariant) []domain.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Toast
	for _, toast := range n.toasts {
		if toast.Variant == variant {
			out = append(out, toast)
		}
	}
	return out
}

func (n *Notifier) AutoSavedEvents() []domain.AutoSaveEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.AutoSaveEvent(nil), n.saved...)
}

func (n *Notifier) DraftFoundEvents() []domain.DraftFoundEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.DraftFoundEvent(nil), n.found...)
}

func (n *Notifier) Navigations() []domain.Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Navigation(nil), n.navigations...)
}
