package application

import (
	"context"
	"sync"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

// CaptureAgent accumulates form edits delivered through change sources and
// host merges. It is safe for concurrent use.
type CaptureAgent struct {
	mu      sync.Mutex
	changes *domain.ChangeSet
	metrics ports.Metrics
	logger  *zap.Logger
}

var _ ports.ChangeSink = (*CaptureAgent)(nil)

func NewCaptureAgent(logger *zap.Logger, metrics ports.Metrics) *CaptureAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}

	return &CaptureAgent{
		changes: domain.NewChangeSet(),
		metrics: metrics,
		logger:  logger,
	}
}

func (a *CaptureAgent) Observe(change ports.FieldChange) {
	if change.Name == "" {
		return
	}

	a.mu.Lock()
	a.changes.Set(change.Name, change.Value)
	a.mu.Unlock()

	a.metrics.ChangeCaptured()
	a.logger.Debug("field change captured", zap.String("field", change.Name))
}

func (a *CaptureAgent) Merge(values map[string]string) {
	if len(values) == 0 {
		return
	}

	a.mu.Lock()
	a.changes.Merge(values)
	a.mu.Unlock()

	a.metrics.ChangeCaptured()
	a.logger.Debug("field values merged", zap.Int("fields", len(values)))
}

// Attach feeds the agent from source until ctx is done or the source ends.
func (a *CaptureAgent) Attach(ctx context.Context, source ports.ChangeSource) error {
	return source.Run(ctx, a)
}

func (a *CaptureAgent) Snapshot() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changes.Snapshot()
}

func (a *CaptureAgent) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changes.Len()
}

func (a *CaptureAgent) HasUnsavedChanges() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changes.Dirty()
}

func (a *CaptureAgent) markSaved(snapshot map[string]string, retention RetentionPolicy) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if retention == RetentionClear {
		a.changes.Forget(snapshot)
		return
	}
	a.changes.MarkSaved(snapshot)
}
