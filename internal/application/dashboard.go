package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

type RowAction string

const (
	RowActionRestore RowAction = "restore"
	RowActionDelete  RowAction = "delete"
)

type DashboardState struct {
	Drafts    []domain.DraftRecord
	IsLoading bool
	Err       error
}

func (s DashboardState) HasDrafts() bool {
	return len(s.Drafts) > 0
}

// DashboardService backs the draft list view. A successful restore or delete
// re-issues the list query exactly once; a failed one leaves the list alone.
type DashboardService struct {
	service   ports.DraftService
	notifier  ports.Notifier
	navigator ports.Navigator
	logger    *zap.Logger

	mu    sync.Mutex
	state DashboardState
}

func NewDashboardService(service ports.DraftService, notifier ports.Notifier, navigator ports.Navigator, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DashboardService{
		service:   service,
		notifier:  notifier,
		navigator: navigator,
		logger:    logger,
		state:     DashboardState{IsLoading: true},
	}
}

func (d *DashboardService) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.state
	state.Drafts = append([]domain.DraftRecord(nil), d.state.Drafts...)
	return state
}

// Refresh issues the list query and replaces the current state with its
// outcome.
func (d *DashboardService) Refresh(ctx context.Context) DashboardState {
	d.mu.Lock()
	d.state.IsLoading = true
	d.mu.Unlock()

	drafts, err := d.service.ListActive(ctx)

	d.mu.Lock()
	if err != nil {
		d.logger.Warn("list active drafts failed", zap.Error(err))
		d.state = DashboardState{Err: fmt.Errorf("list active drafts: %w", err)}
	} else {
		d.state = DashboardState{Drafts: drafts}
	}
	d.mu.Unlock()

	return d.State()
}

func (d *DashboardService) HandleRowAction(ctx context.Context, action RowAction, row domain.DraftRecord) error {
	switch action {
	case RowActionRestore:
		return d.Restore(ctx, row.ID, row.CaseID)
	case RowActionDelete:
		return d.Delete(ctx, row.ID)
	default:
		return fmt.Errorf("unsupported row action %q", action)
	}
}

func (d *DashboardService) Restore(ctx context.Context, id domain.DraftID, caseID domain.RecordID) error {
	ok, err := d.service.Restore(ctx, id)
	if err == nil && !ok {
		err = domain.ErrRemoteRejected
	}
	if err != nil {
		d.logger.Warn("restore draft failed", zap.String("draft_id", string(id)), zap.Error(err))
		d.notifier.Toast(ctx, errorToast("Failed to restore draft"))
		return fmt.Errorf("restore draft %s: %w", id, err)
	}

	d.notifier.Toast(ctx, successToast("Draft restored successfully"))

	if d.navigator != nil && caseID != "" {
		if err := d.navigator.Navigate(ctx, domain.CaseRecordPage(caseID)); err != nil {
			d.logger.Warn("navigate to case failed", zap.String("case_id", string(caseID)), zap.Error(err))
		}
	}

	d.Refresh(ctx)
	return nil
}

func (d *DashboardService) Delete(ctx context.Context, id domain.DraftID) error {
	ok, err := d.service.Delete(ctx, id)
	if err == nil && !ok {
		err = domain.ErrRemoteRejected
	}
	if err != nil {
		d.logger.Warn("delete draft failed", zap.String("draft_id", string(id)), zap.Error(err))
		d.notifier.Toast(ctx, errorToast("Failed to delete draft"))
		return fmt.Errorf("delete draft %s: %w", id, err)
	}

	d.notifier.Toast(ctx, successToast("Draft deleted"))
	d.Refresh(ctx)
	return nil
}

func successToast(message string) domain.Toast {
	return domain.Toast{Title: "Success", Message: message, Variant: domain.ToastSuccess, Mode: domain.ToastDismissible}
}

func errorToast(message string) domain.Toast {
	return domain.Toast{Title: "Error", Message: message, Variant: domain.ToastError, Mode: domain.ToastDismissible}
}
