package application

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/bnema/draftguard/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingSaver struct {
	calls atomic.Int32
	err   error
}

func (s *countingSaver) SaveNow(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func newTestWatchdog(t *testing.T, cfg WatchdogConfig, store *mocks.StateStore, clock *mocks.Clock) (*SessionWatchdog, *countingSaver, *mocks.Notifier) {
	t.Helper()

	saver := &countingSaver{}
	notifier := &mocks.Notifier{}
	watchdog, err := NewSessionWatchdog(cfg, WatchdogDeps{
		Store:    store,
		Saver:    saver,
		Notifier: notifier,
		Clock:    clock,
	})
	require.NoError(t, err)
	return watchdog, saver, notifier
}

func TestWatchdogFirstCheckSetsAnchorWithoutWarning(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	clock := mocks.NewClock(testNow)
	watchdog, saver, notifier := newTestWatchdog(t, WatchdogConfig{}, store, clock)

	fired, err := watchdog.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, fired)

	raw, err := store.Get(context.Background(), domain.SessionAnchorKey)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(testNow.UnixMilli(), 10), raw)
	assert.Empty(t, notifier.Toasts())
	assert.Zero(t, saver.calls.Load())
}

func TestWatchdogEndToEndFiresOnceInsideWindow(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	clock := mocks.NewClock(testNow)
	watchdog, saver, notifier := newTestWatchdog(t, WatchdogConfig{}, store, clock)
	ctx := context.Background()

	_, err := watchdog.Check(ctx)
	require.NoError(t, err)

	clock.Set(testNow.Add(55*time.Minute + 30*time.Second))
	fired, err := watchdog.Check(ctx)
	require.NoError(t, err)
	assert.True(t, fired)

	clock.Set(testNow.Add(55*time.Minute + 45*time.Second))
	fired, err = watchdog.Check(ctx)
	require.NoError(t, err)
	assert.False(t, fired)

	warnings := notifier.ToastsWithVariant(domain.ToastWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Session Timeout Warning", warnings[0].Title)
	assert.True(t, warnings[0].Sticky())
	assert.Equal(t, int32(1), saver.calls.Load())
}

func TestWatchdogPollCadenceFiresExactlyOnce(t *testing.T) {
	t.Parallel()

	for _, cadence := range []time.Duration{10 * time.Second, 30 * time.Second, 45 * time.Second, 60 * time.Second} {
		cadence := cadence
		t.Run(cadence.String(), func(t *testing.T) {
			t.Parallel()

			store := mocks.NewStateStore()
			clock := mocks.NewClock(testNow)
			watchdog, saver, notifier := newTestWatchdog(t, WatchdogConfig{Interval: cadence}, store, clock)
			ctx := context.Background()

			_, err := watchdog.Check(ctx)
			require.NoError(t, err)

			firedAt := []time.Duration{}
			for elapsed := cadence; elapsed <= 70*time.Minute; elapsed += cadence {
				clock.Set(testNow.Add(elapsed))
				fired, err := watchdog.Check(ctx)
				require.NoError(t, err)
				if fired {
					firedAt = append(firedAt, elapsed)
				}
			}

			require.Len(t, firedAt, 1)
			assert.GreaterOrEqual(t, firedAt[0], 55*time.Minute)
			assert.Less(t, firedAt[0], 56*time.Minute)
			assert.Len(t, notifier.ToastsWithVariant(domain.ToastWarning), 1)
			assert.Equal(t, int32(1), saver.calls.Load())
		})
	}
}

func TestWatchdogNoWarningOutsideWindow(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	clock := mocks.NewClock(testNow)
	watchdog, saver, notifier := newTestWatchdog(t, WatchdogConfig{}, store, clock)
	ctx := context.Background()
	_, err := watchdog.Check(ctx)
	require.NoError(t, err)

	for _, elapsed := range []time.Duration{time.Minute, 54*time.Minute + 59*time.Second, 56 * time.Minute, 2 * time.Hour} {
		clock.Set(testNow.Add(elapsed))
		fired, err := watchdog.Check(ctx)
		require.NoError(t, err)
		assert.False(t, fired, "elapsed %s", elapsed)
	}

	assert.Empty(t, notifier.Toasts())
	assert.Zero(t, saver.calls.Load())
}

func TestWatchdogWarningMarkerSurvivesRestart(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	clock := mocks.NewClock(testNow)
	ctx := context.Background()

	first, _, _ := newTestWatchdog(t, WatchdogConfig{}, store, clock)
	_, err := first.Check(ctx)
	require.NoError(t, err)
	clock.Set(testNow.Add(55*time.Minute + 10*time.Second))
	fired, err := first.Check(ctx)
	require.NoError(t, err)
	require.True(t, fired)

	second, saver, notifier := newTestWatchdog(t, WatchdogConfig{}, store, clock)
	clock.Set(testNow.Add(55*time.Minute + 40*time.Second))
	fired, err = second.Check(ctx)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Empty(t, notifier.Toasts())
	assert.Zero(t, saver.calls.Load())
}

func TestWatchdogResetStartsNewSession(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	clock := mocks.NewClock(testNow)
	watchdog, saver, _ := newTestWatchdog(t, WatchdogConfig{}, store, clock)
	ctx := context.Background()

	_, err := watchdog.Check(ctx)
	require.NoError(t, err)
	clock.Set(testNow.Add(55*time.Minute + 10*time.Second))
	_, err = watchdog.Check(ctx)
	require.NoError(t, err)

	require.NoError(t, watchdog.Reset(ctx))
	_, err = watchdog.Anchor(ctx)
	require.ErrorIs(t, err, domain.ErrAnchorNotSet)

	restart := clock.Now()
	_, err = watchdog.Check(ctx)
	require.NoError(t, err)
	clock.Set(restart.Add(55*time.Minute + 10*time.Second))
	fired, err := watchdog.Check(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, int32(2), saver.calls.Load())
}

func TestWatchdogWidensWindowForSlowPolling(t *testing.T) {
	t.Parallel()

	watchdog, _, _ := newTestWatchdog(t, WatchdogConfig{Interval: 3 * time.Minute}, mocks.NewStateStore(), mocks.NewClock(testNow))

	assert.Equal(t, 3*time.Minute, watchdog.Window().Width)
	assert.Equal(t, 55*time.Minute, watchdog.Window().WarnAfter)
}

func TestWatchdogRejectsCorruptAnchor(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	require.NoError(t, store.Put(context.Background(), domain.SessionAnchorKey, "NaN"))
	watchdog, _, _ := newTestWatchdog(t, WatchdogConfig{}, store, mocks.NewClock(testNow))

	_, err := watchdog.Check(context.Background())
	assert.ErrorContains(t, err, "parse session anchor")
}

func TestWatchdogStoreFailureAbandonsCheck(t *testing.T) {
	t.Parallel()

	store := mocks.NewStateStore()
	store.PutErr = errors.New("disk full")
	watchdog, _, notifier := newTestWatchdog(t, WatchdogConfig{}, store, mocks.NewClock(testNow))

	_, err := watchdog.Check(context.Background())
	require.ErrorContains(t, err, "store session anchor")
	assert.Empty(t, notifier.Toasts())
}

func TestWatchdogWarningDuringIntervalSaveReliesOnInFlightSave(t *testing.T) {
	t.Parallel()

	service := newBlockingDraftService(domain.SaveResult{Success: true, DraftID: "d1", Timestamp: testNow})
	capture := NewCaptureAgent(nil, nil)
	capture.Observe(ports.FieldChange{Name: "Subject", Value: "Printer jam"})
	notifier := &mocks.Notifier{}
	scheduler, err := NewAutoSaveScheduler(AutoSaveConfig{RecordID: "500A"}, AutoSaveDeps{
		Service: service, Changes: capture, Notifier: notifier,
	})
	require.NoError(t, err)

	store := mocks.NewStateStore()
	require.NoError(t, store.Put(context.Background(), domain.SessionAnchorKey, strconv.FormatInt(testNow.UnixMilli(), 10)))
	core, logs := observer.New(zapcore.WarnLevel)
	watchdog, err := NewSessionWatchdog(WatchdogConfig{}, WatchdogDeps{
		Store:    store,
		Saver:    scheduler,
		Notifier: notifier,
		Clock:    mocks.NewClock(testNow.Add(55*time.Minute + 30*time.Second)),
		Logger:   zap.New(core),
	})
	require.NoError(t, err)

	tickDone := make(chan error, 1)
	go func() { tickDone <- scheduler.Tick(context.Background()) }()
	waitEntered(t, service.entered)

	fired, err := watchdog.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, fired)
	require.Len(t, notifier.ToastsWithVariant(domain.ToastWarning), 1)

	warnings := logs.FilterMessage("emergency save did not complete").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.ErrSaveInProgress.Error(), warnings[0].ContextMap()["error"])

	close(service.release)
	require.NoError(t, <-tickDone)

	calls := service.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, `{"Subject":"Printer jam"}`, calls[0].DraftData)
	assert.Len(t, notifier.AutoSavedEvents(), 1)
}
