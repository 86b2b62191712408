package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports/mocks"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// blockingDraftService lets a test hold a Save call in flight.
type blockingDraftService struct {
	mu      sync.Mutex
	calls   []domain.SaveRequest
	entered chan struct{}
	release chan struct{}
	result  domain.SaveResult
	err     error
}

func newBlockingDraftService(result domain.SaveResult) *blockingDraftService {
	return &blockingDraftService{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
		result:  result,
	}
}

func (s *blockingDraftService) ListActive(context.Context) ([]domain.DraftRecord, error) {
	return nil, nil
}

func (s *blockingDraftService) Save(ctx context.Context, req domain.SaveRequest) (domain.SaveResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	s.entered <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return domain.SaveResult{}, ctx.Err()
	}
	return s.result, s.err
}

func (s *blockingDraftService) Get(context.Context, domain.RecordID) (domain.DraftSnapshot, error) {
	return domain.DraftSnapshot{}, domain.ErrDraftNotFound
}

func (s *blockingDraftService) Restore(context.Context, domain.DraftID) (bool, error) {
	return true, nil
}

func (s *blockingDraftService) Delete(context.Context, domain.DraftID) (bool, error) {
	return true, nil
}

func (s *blockingDraftService) Calls() []domain.SaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SaveRequest(nil), s.calls...)
}

func waitEntered(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "save was not called")
	}
}

func newTestScheduler(t *testing.T, cfg AutoSaveConfig, service *mocks.DraftService, notifier *mocks.Notifier) (*AutoSaveScheduler, *CaptureAgent) {
	t.Helper()

	capture := NewCaptureAgent(nil, nil)
	if cfg.RecordID == "" {
		cfg.RecordID = "500xx000001"
	}
	scheduler, err := NewAutoSaveScheduler(cfg, AutoSaveDeps{
		Service:  service,
		Changes:  capture,
		Notifier: notifier,
		Clock:    mocks.NewClock(testNow),
	})
	require.NoError(t, err)
	return scheduler, capture
}
