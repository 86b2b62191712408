package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/bnema/draftguard/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAutoSaveTickWithEmptySetMakesNoRemoteCall(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, _ := newTestScheduler(t, AutoSaveConfig{}, service, notifier)

	require.NoError(t, scheduler.Tick(context.Background()))

	service.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Toasts())
	assert.Equal(t, SaveStateIdle, scheduler.Status().State)
}

func TestAutoSaveTickSuccessRecordsTimestampAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, capture := newTestScheduler(t, AutoSaveConfig{RecordID: "500A"}, service, notifier)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "Printer jam"})

	savedAt := time.Date(2026, 10, 19, 9, 0, 30, 0, time.UTC)
	service.On("Save", mock.Anything, domain.SaveRequest{
		CaseID:      "500A",
		DraftData:   `{"Subject":"Printer jam"}`,
		PageContext: domain.DefaultPageContext,
	}).Return(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: savedAt}, nil).Once()

	require.NoError(t, scheduler.Tick(context.Background()))

	status := scheduler.Status()
	assert.Equal(t, savedAt, status.LastSaved)
	assert.Equal(t, domain.DraftID("d1"), status.DraftID)
	assert.Equal(t, SaveStateIdle, status.State)
	assert.False(t, status.Dirty)
	assert.Equal(t, []domain.AutoSaveEvent{{Timestamp: savedAt, DraftID: "d1"}}, notifier.AutoSavedEvents())
	assert.Empty(t, notifier.Toasts())
}

func TestAutoSaveTickTransportFailureLeavesLastSavedAndToastsOnce(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, capture := newTestScheduler(t, AutoSaveConfig{}, service, notifier)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})

	remoteErr := errors.New("connection reset")
	service.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{}, remoteErr).Once()

	err := scheduler.Tick(context.Background())
	require.ErrorIs(t, err, remoteErr)

	status := scheduler.Status()
	assert.True(t, status.LastSaved.IsZero())
	assert.True(t, status.Dirty)
	assert.Equal(t, SaveStateIdle, status.State)
	assert.Len(t, notifier.ToastsWithVariant(domain.ToastError), 1)
	assert.Len(t, notifier.Toasts(), 1)
	assert.Empty(t, notifier.AutoSavedEvents())
}

func TestAutoSaveTickLogicalFailureIsSurfaced(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, capture := newTestScheduler(t, AutoSaveConfig{}, service, notifier)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})

	service.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Success: false}, nil).Once()

	err := scheduler.Tick(context.Background())
	require.ErrorIs(t, err, domain.ErrSaveRejected)
	assert.True(t, scheduler.Status().LastSaved.IsZero())
	assert.Len(t, notifier.ToastsWithVariant(domain.ToastError), 1)
}

func TestAutoSaveFailureKeepsPreviousLastSaved(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, capture := newTestScheduler(t, AutoSaveConfig{}, service, notifier)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})

	first := testNow.Add(time.Minute)
	service.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: first}, nil).Once()
	service.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{}, errors.New("timeout")).Once()

	require.NoError(t, scheduler.Tick(context.Background()))
	require.Error(t, scheduler.Tick(context.Background()))

	assert.Equal(t, first, scheduler.Status().LastSaved)
	assert.Len(t, notifier.AutoSavedEvents(), 1)
	assert.Len(t, notifier.ToastsWithVariant(domain.ToastError), 1)
}

func TestAutoSaveRetainPolicyResavesAccumulatedSet(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, capture := newTestScheduler(t, AutoSaveConfig{}, service, notifier)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})

	service.On("Save", mock.Anything, mock.MatchedBy(func(req domain.SaveRequest) bool {
		return req.DraftData == `{"Subject":"x"}`
	})).Return(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: testNow}, nil).Twice()

	require.NoError(t, scheduler.Tick(context.Background()))
	require.NoError(t, scheduler.Tick(context.Background()))

	assert.Equal(t, 1, capture.Len())
}

func TestAutoSaveClearPolicyForgetsSavedFields(t *testing.T) {
	t.Parallel()

	service := mocks.NewDraftService(t)
	notifier := &mocks.Notifier{}
	scheduler, capture := newTestScheduler(t, AutoSaveConfig{Retention: RetentionClear}, service, notifier)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})

	service.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: testNow}, nil).Once()

	require.NoError(t, scheduler.Tick(context.Background()))
	assert.Equal(t, 0, capture.Len())

	require.NoError(t, scheduler.Tick(context.Background()))
}

func TestAutoSaveSkipPolicyDropsOverlappingTick(t *testing.T) {
	t.Parallel()

	service := newBlockingDraftService(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: testNow})
	notifier := &mocks.Notifier{}
	capture := NewCaptureAgent(nil, nil)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})
	scheduler, err := NewAutoSaveScheduler(AutoSaveConfig{RecordID: "500A"}, AutoSaveDeps{
		Service: service, Changes: capture, Notifier: notifier,
	})
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() { firstDone <- scheduler.Tick(context.Background()) }()
	waitEntered(t, service.entered)

	assert.Equal(t, SaveStateSaving, scheduler.Status().State)
	assert.Equal(t, "Saving...", scheduler.Status().Indicator())
	require.ErrorIs(t, scheduler.SaveNow(context.Background()), domain.ErrSaveInProgress)

	close(service.release)
	require.NoError(t, <-firstDone)

	assert.Len(t, service.Calls(), 1)
	assert.Equal(t, SaveStateIdle, scheduler.Status().State)
	assert.Len(t, notifier.AutoSavedEvents(), 1)
}

func TestAutoSaveQueuePolicyRunsOneFollowUpSave(t *testing.T) {
	t.Parallel()

	service := newBlockingDraftService(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: testNow})
	notifier := &mocks.Notifier{}
	capture := NewCaptureAgent(nil, nil)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})
	scheduler, err := NewAutoSaveScheduler(AutoSaveConfig{RecordID: "500A", Overlap: OverlapQueue}, AutoSaveDeps{
		Service: service, Changes: capture, Notifier: notifier,
	})
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() { firstDone <- scheduler.Tick(context.Background()) }()
	waitEntered(t, service.entered)

	capture.Observe(ports.FieldChange{Name: "Subject", Value: "y"})
	require.NoError(t, scheduler.Tick(context.Background()))
	require.NoError(t, scheduler.Tick(context.Background()))

	close(service.release)
	require.NoError(t, <-firstDone)

	calls := service.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, `{"Subject":"x"}`, calls[0].DraftData)
	assert.Equal(t, `{"Subject":"y"}`, calls[1].DraftData)
	assert.Equal(t, SaveStateIdle, scheduler.Status().State)
}

type outcomeRecorder struct {
	ports.NopMetrics
	mu       sync.Mutex
	outcomes []ports.SaveOutcome
}

func (r *outcomeRecorder) ObserveSave(outcome ports.SaveOutcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) Outcomes() []ports.SaveOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.SaveOutcome(nil), r.outcomes...)
}

func TestAutoSaveStopDuringSaveIsNotAFailure(t *testing.T) {
	t.Parallel()

	service := newBlockingDraftService(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: testNow})
	notifier := &mocks.Notifier{}
	metrics := &outcomeRecorder{}
	capture := NewCaptureAgent(nil, nil)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "x"})
	scheduler, err := NewAutoSaveScheduler(AutoSaveConfig{RecordID: "500A", Interval: 10 * time.Millisecond, Overlap: OverlapQueue}, AutoSaveDeps{
		Service: service, Changes: capture, Notifier: notifier, Metrics: metrics,
	})
	require.NoError(t, err)

	task := scheduler.Start(context.Background())
	waitEntered(t, service.entered)
	require.NoError(t, scheduler.SaveNow(context.Background()))
	task.Stop()

	assert.Empty(t, notifier.Toasts())
	assert.Empty(t, notifier.AutoSavedEvents())
	assert.Empty(t, metrics.Outcomes())
	assert.Len(t, service.Calls(), 1)
	assert.Equal(t, SaveStateIdle, scheduler.Status().State)
	assert.True(t, scheduler.Status().Dirty)
}

func TestAutoSaveStatusIndicator(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Auto-save active", AutoSaveStatus{State: SaveStateIdle}.Indicator())
	assert.Equal(t, "Saving...", AutoSaveStatus{State: SaveStateSaving}.Indicator())
	assert.Equal(t, "Last saved: 2026-10-19T09:00:00Z", AutoSaveStatus{State: SaveStateIdle, LastSaved: testNow}.Indicator())
}

func TestNewAutoSaveSchedulerValidation(t *testing.T) {
	t.Parallel()

	capture := NewCaptureAgent(nil, nil)
	notifier := &mocks.Notifier{}
	service := mocks.NewDraftService(t)

	_, err := NewAutoSaveScheduler(AutoSaveConfig{}, AutoSaveDeps{Service: service, Changes: capture, Notifier: notifier})
	assert.ErrorIs(t, err, domain.ErrMissingRecordID)

	_, err = NewAutoSaveScheduler(AutoSaveConfig{RecordID: "r", Overlap: "drop-all"}, AutoSaveDeps{Service: service, Changes: capture, Notifier: notifier})
	assert.ErrorContains(t, err, "unsupported overlap policy")

	_, err = NewAutoSaveScheduler(AutoSaveConfig{RecordID: "r", Retention: "never"}, AutoSaveDeps{Service: service, Changes: capture, Notifier: notifier})
	assert.ErrorContains(t, err, "unsupported retention policy")
}
