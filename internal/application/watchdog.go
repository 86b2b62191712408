package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

const (
	DefaultWatchdogInterval = time.Minute
	DefaultWarnAfter        = 55 * time.Minute
	DefaultWarnWindow       = time.Minute
)

type WatchdogConfig struct {
	Interval  time.Duration
	WarnAfter time.Duration
	Window    time.Duration
}

// Saver triggers an out-of-band save.
type Saver interface {
	SaveNow(ctx context.Context) error
}

// SessionWatchdog warns once per session anchor when the session is about to
// time out, and forces a save at that moment.
type SessionWatchdog struct {
	interval time.Duration
	window   domain.TimeoutWindow
	store    ports.StateStore
	saver    Saver
	notifier ports.Notifier
	clock    ports.Clock
	metrics  ports.Metrics
	logger   *zap.Logger

	mu        sync.Mutex
	warnedFor string
}

type WatchdogDeps struct {
	Store    ports.StateStore
	Saver    Saver
	Notifier ports.Notifier
	Clock    ports.Clock
	Metrics  ports.Metrics
	Logger   *zap.Logger
}

func NewSessionWatchdog(cfg WatchdogConfig, deps WatchdogDeps) (*SessionWatchdog, error) {
	if deps.Store == nil {
		return nil, errors.New("state store is required")
	}
	if deps.Saver == nil {
		return nil, errors.New("saver is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWatchdogInterval
	}
	if cfg.WarnAfter <= 0 {
		cfg.WarnAfter = DefaultWarnAfter
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWarnWindow
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	window := domain.TimeoutWindow{WarnAfter: cfg.WarnAfter, Width: cfg.Window}.Widen(cfg.Interval)

	return &SessionWatchdog{
		interval: cfg.Interval,
		window:   window,
		store:    deps.Store,
		saver:    deps.Saver,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}, nil
}

func (w *SessionWatchdog) Window() domain.TimeoutWindow {
	return w.window
}

// Start checks immediately, so the anchor is set when monitoring begins, and
// then once per interval.
func (w *SessionWatchdog) Start(ctx context.Context) *Task {
	return StartTask(ctx, w.interval, TaskOptions{Immediate: true}, func(ctx context.Context) {
		if _, err := w.Check(ctx); err != nil {
			w.logger.Warn("session check failed", zap.Error(err))
		}
	})
}

// Check reports whether the timeout warning fired on this call.
func (w *SessionWatchdog) Check(ctx context.Context) (bool, error) {
	now := w.clock.Now()

	anchor, err := w.Anchor(ctx)
	if errors.Is(err, domain.ErrAnchorNotSet) {
		if err := w.store.Put(ctx, domain.SessionAnchorKey, formatAnchor(now)); err != nil {
			return false, fmt.Errorf("store session anchor: %w", err)
		}
		w.logger.Debug("session anchor set", zap.Time("start", now))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !w.window.Contains(anchor.Elapsed(now)) {
		return false, nil
	}

	if !w.claimWarning(ctx, anchor) {
		return false, nil
	}

	w.metrics.SessionWarning()
	w.logger.Info("session timeout warning", zap.Duration("elapsed", anchor.Elapsed(now)))
	w.notifier.Toast(ctx, domain.Toast{
		Title:   "Session Timeout Warning",
		Message: "Your session will expire in 5 minutes. Your work has been auto-saved.",
		Variant: domain.ToastWarning,
		Mode:    domain.ToastSticky,
	})

	if err := w.saver.SaveNow(ctx); err != nil {
		w.logger.Warn("emergency save did not complete", zap.Error(err))
	}

	return true, nil
}

func (w *SessionWatchdog) Anchor(ctx context.Context) (domain.SessionAnchor, error) {
	return LoadSessionAnchor(ctx, w.store)
}

// LoadSessionAnchor reads the session start from store. It returns
// domain.ErrAnchorNotSet when no session has been recorded yet.
func LoadSessionAnchor(ctx context.Context, store ports.StateStore) (domain.SessionAnchor, error) {
	raw, err := store.Get(ctx, domain.SessionAnchorKey)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.SessionAnchor{}, domain.ErrAnchorNotSet
		}
		return domain.SessionAnchor{}, fmt.Errorf("load session anchor: %w", err)
	}

	start, err := parseAnchor(raw)
	if err != nil {
		return domain.SessionAnchor{}, err
	}

	return domain.SessionAnchor{Start: start}, nil
}

// Reset clears the anchor and the warning marker so the next check starts a
// new session.
func (w *SessionWatchdog) Reset(ctx context.Context) error {
	w.mu.Lock()
	w.warnedFor = ""
	w.mu.Unlock()

	return ResetSession(ctx, w.store)
}

func ResetSession(ctx context.Context, store ports.StateStore) error {
	return errors.Join(
		store.Delete(ctx, domain.SessionAnchorKey),
		store.Delete(ctx, domain.SessionWarnedKey),
	)
}

// claimWarning records that the warning for anchor is being shown. It
// returns false when it was already shown, in this process or a previous one.
func (w *SessionWatchdog) claimWarning(ctx context.Context, anchor domain.SessionAnchor) bool {
	key := anchor.Key()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.warnedFor == key {
		return false
	}

	stored, err := w.store.Get(ctx, domain.SessionWarnedKey)
	if err == nil && stored == key {
		w.warnedFor = key
		return false
	}
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		w.logger.Warn("read session warning marker", zap.Error(err))
	}

	w.warnedFor = key
	if err := w.store.Put(ctx, domain.SessionWarnedKey, key); err != nil {
		w.logger.Warn("store session warning marker", zap.Error(err))
	}

	return true
}

func formatAnchor(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseAnchor(raw string) (time.Time, error) {
	millis, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session anchor %q: %w", raw, err)
	}
	return time.UnixMilli(millis), nil
}
