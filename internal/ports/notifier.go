package ports

import (
	"context"

	"github.com/bnema/draftguard/internal/domain"
)

// Notifier delivers user-facing toasts and the outbound events the host
// listens for.
type Notifier interface {
	Toast(ctx context.Context, toast domain.Toast)
	AutoSaved(ctx context.Context, event domain.AutoSaveEvent)
	DraftFound(ctx context.Context, event domain.DraftFoundEvent)
}

type Navigator interface {
	Navigate(ctx context.Context, nav domain.Navigation) error
}
