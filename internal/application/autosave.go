package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

const DefaultAutoSaveInterval = 30 * time.Second

// OverlapPolicy decides what happens to a save requested while another save
// is still outstanding.
type OverlapPolicy string

const (
	OverlapSkip  OverlapPolicy = "skip"
	OverlapQueue OverlapPolicy = "queue"
)

func (p OverlapPolicy) Valid() bool {
	switch p {
	case OverlapSkip, OverlapQueue:
		return true
	default:
		return false
	}
}

// RetentionPolicy decides what happens to captured fields after a
// successful save.
type RetentionPolicy string

const (
	RetentionRetain RetentionPolicy = "retain"
	RetentionClear  RetentionPolicy = "clear"
)

func (p RetentionPolicy) Valid() bool {
	switch p {
	case RetentionRetain, RetentionClear:
		return true
	default:
		return false
	}
}

type SaveState string

const (
	SaveStateIdle   SaveState = "idle"
	SaveStateSaving SaveState = "saving"
)

type AutoSaveConfig struct {
	RecordID    domain.RecordID
	PageContext string
	Interval    time.Duration
	Overlap     OverlapPolicy
	Retention   RetentionPolicy
}

type AutoSaveStatus struct {
	State     SaveState
	LastSaved time.Time
	DraftID   domain.DraftID
	Pending   int
	Dirty     bool
}

// Indicator is the one-line save status shown to the user.
func (s AutoSaveStatus) Indicator() string {
	if s.State == SaveStateSaving {
		return "Saving..."
	}
	if !s.LastSaved.IsZero() {
		return fmt.Sprintf("Last saved: %s", s.LastSaved.Format(time.RFC3339))
	}
	return "Auto-save active"
}

type AutoSaveScheduler struct {
	cfg      AutoSaveConfig
	service  ports.DraftService
	changes  *CaptureAgent
	notifier ports.Notifier
	clock    ports.Clock
	metrics  ports.Metrics
	logger   *zap.Logger

	mu        sync.Mutex
	state     SaveState
	queued    bool
	lastSaved time.Time
	draftID   domain.DraftID
}

type AutoSaveDeps struct {
	Service  ports.DraftService
	Changes  *CaptureAgent
	Notifier ports.Notifier
	Clock    ports.Clock
	Metrics  ports.Metrics
	Logger   *zap.Logger
}

func NewAutoSaveScheduler(cfg AutoSaveConfig, deps AutoSaveDeps) (*AutoSaveScheduler, error) {
	if cfg.RecordID == "" {
		return nil, domain.ErrMissingRecordID
	}
	if deps.Service == nil {
		return nil, errors.New("draft service is required")
	}
	if deps.Changes == nil {
		return nil, errors.New("capture agent is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.PageContext == "" {
		cfg.PageContext = domain.DefaultPageContext
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutoSaveInterval
	}
	if cfg.Overlap == "" {
		cfg.Overlap = OverlapSkip
	}
	if !cfg.Overlap.Valid() {
		return nil, fmt.Errorf("unsupported overlap policy %q", cfg.Overlap)
	}
	if cfg.Retention == "" {
		cfg.Retention = RetentionRetain
	}
	if !cfg.Retention.Valid() {
		return nil, fmt.Errorf("unsupported retention policy %q", cfg.Retention)
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

	return &AutoSaveScheduler{
		cfg:      cfg,
		service:  deps.Service,
		changes:  deps.Changes,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With(zap.String("record_id", string(cfg.RecordID))),
		state:    SaveStateIdle,
	}, nil
}

// Start runs Tick every configured interval until the returned task is
// stopped.
func (s *AutoSaveScheduler) Start(ctx context.Context) *Task {
	s.logger.Info("auto-save activated", zap.Duration("interval", s.cfg.Interval))
	return StartTask(ctx, s.cfg.Interval, TaskOptions{}, func(ctx context.Context) {
		_ = s.Tick(ctx)
	})
}

// Tick is one scheduled save attempt.
func (s *AutoSaveScheduler) Tick(ctx context.Context) error {
	return s.save(ctx, "interval")
}

// SaveNow is the one-shot save path used outside the regular interval.
func (s *AutoSaveScheduler) SaveNow(ctx context.Context) error {
	return s.save(ctx, "manual")
}

func (s *AutoSaveScheduler) Status() AutoSaveStatus {
	s.mu.Lock()
	status := AutoSaveStatus{
		State:     s.state,
		LastSaved: s.lastSaved,
		DraftID:   s.draftID,
	}
	s.mu.Unlock()

	status.Pending = s.changes.Len()
	status.Dirty = s.changes.HasUnsavedChanges()
	return status
}

func (s *AutoSaveScheduler) save(ctx context.Context, trigger string) error {
	if s.changes.Len() == 0 {
		return nil
	}

	started, queued := s.begin()
	if !started {
		if queued {
			s.logger.Debug("save queued behind in-flight save", zap.String("trigger", trigger))
			return nil
		}
		s.metrics.SaveSkipped()
		s.logger.Debug("save skipped, previous save still in flight", zap.String("trigger", trigger))
		return domain.ErrSaveInProgress
	}

	var err error
	for {
		err = s.saveOnce(ctx, trigger)
		if !s.finish(ctx.Err() != nil) {
			return err
		}
		trigger = "queued"
	}
}

func (s *AutoSaveScheduler) begin() (started bool, queued bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SaveStateSaving {
		if s.cfg.Overlap == OverlapQueue {
			s.queued = true
			return false, true
		}
		return false, false
	}

	s.state = SaveStateSaving
	return true, false
}

// finish reports whether a queued save must run before going idle. A
// cancelled caller drops the queued save.
func (s *AutoSaveScheduler) finish(cancelled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queued {
		s.queued = false
		if !cancelled {
			return true
		}
	}

	s.state = SaveStateIdle
	return false
}

func (s *AutoSaveScheduler) saveOnce(ctx context.Context, trigger string) error {
	snapshot := s.changes.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	payload, err := domain.EncodeFields(snapshot)
	if err != nil {
		return err
	}

	started := s.clock.Now()
	result, err := s.service.Save(ctx, domain.SaveRequest{
		CaseID:      s.cfg.RecordID,
		DraftData:   payload,
		PageContext: s.cfg.PageContext,
	})
	elapsed := s.clock.Now().Sub(started)

	if err != nil && ctx.Err() != nil {
		s.logger.Debug("auto-save abandoned on shutdown", zap.String("trigger", trigger), zap.Error(err))
		return fmt.Errorf("save draft: %w", err)
	}
	if err == nil && !result.Success {
		err = domain.ErrSaveRejected
	}
	if err != nil {
		outcome := ports.SaveOutcomeFailure
		if errors.Is(err, domain.ErrSaveRejected) {
			outcome = ports.SaveOutcomeRejected
		}
		s.metrics.ObserveSave(outcome, elapsed)
		s.logger.Warn("auto-save failed", zap.String("trigger", trigger), zap.Error(err))
		s.notifier.Toast(ctx, domain.Toast{
			Title:   "Auto-save failed",
			Message: "Your latest changes could not be saved as a draft.",
			Variant: domain.ToastError,
			Mode:    domain.ToastDismissible,
		})
		return fmt.Errorf("save draft: %w", err)
	}

	timestamp := result.Timestamp
	if timestamp.IsZero() {
		timestamp = s.clock.Now()
	}

	s.mu.Lock()
	s.lastSaved = timestamp
	if result.DraftID != "" {
		s.draftID = result.DraftID
	}
	draftID := s.draftID
	s.mu.Unlock()

	s.changes.markSaved(snapshot, s.cfg.Retention)
	s.metrics.ObserveSave(ports.SaveOutcomeSuccess, elapsed)
	s.logger.Info("auto-saved",
		zap.String("trigger", trigger),
		zap.String("draft_id", string(draftID)),
		zap.Time("timestamp", timestamp),
		zap.Int("fields", len(snapshot)),
	)
	s.notifier.AutoSaved(ctx, domain.AutoSaveEvent{Timestamp: timestamp, DraftID: draftID})

	return nil
}
