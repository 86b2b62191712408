package application

import (
	"context"
	"errors"
	"sync"

	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMonitorRunning    = errors.New("monitor already running")
	ErrMonitorNotRunning = errors.New("monitor not running")
)

// Monitor owns the capture subscriptions and both timers of one editing
// session. Everything it starts is torn down by Stop.
type Monitor struct {
	capture   *CaptureAgent
	scheduler *AutoSaveScheduler
	watchdog  *SessionWatchdog
	existence *ExistenceCheck
	sources   []ports.ChangeSource
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

type MonitorDeps struct {
	Capture   *CaptureAgent
	Scheduler *AutoSaveScheduler
	Watchdog  *SessionWatchdog
	Existence *ExistenceCheck
	Sources   []ports.ChangeSource
	Logger    *zap.Logger
}

func NewMonitor(deps MonitorDeps) (*Monitor, error) {
	if deps.Capture == nil || deps.Scheduler == nil || deps.Watchdog == nil {
		return nil, errors.New("capture, scheduler and watchdog are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Monitor{
		capture:   deps.Capture,
		scheduler: deps.Scheduler,
		watchdog:  deps.Watchdog,
		existence: deps.Existence,
		sources:   deps.Sources,
		logger:    deps.Logger,
	}, nil
}

func (m *Monitor) Capture() *CaptureAgent {
	return m.capture
}

func (m *Monitor) Scheduler() *AutoSaveScheduler {
	return m.scheduler
}

func (m *Monitor) Start(parent context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.group != nil {
		return ErrMonitorRunning
	}

	ctx, cancel := context.WithCancel(parent)
	group, ctx := errgroup.WithContext(ctx)

	if m.existence != nil {
		check := *m.existence
		if check.Sink == nil {
			check.Sink = m.capture
		}
		group.Go(func() error {
			check.Run(ctx)
			return nil
		})
	}

	for _, source := range m.sources {
		source := source
		group.Go(func() error {
			if err := m.capture.Attach(ctx, source); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("change source stopped", zap.Error(err))
			}
			return nil
		})
	}

	for _, task := range []*Task{m.scheduler.Start(ctx), m.watchdog.Start(ctx)} {
		task := task
		group.Go(func() error {
			<-ctx.Done()
			task.Stop()
			return nil
		})
	}

	m.cancel = cancel
	m.group = group
	m.logger.Info("monitor started", zap.Int("sources", len(m.sources)))

	return nil
}

// Stop cancels every task and subscription and waits for them to return.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	cancel, group := m.cancel, m.group
	m.cancel, m.group = nil, nil
	m.mu.Unlock()

	if group == nil {
		return ErrMonitorNotRunning
	}

	cancel()
	err := group.Wait()
	m.logger.Info("monitor stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Run starts the monitor and blocks until ctx is done, then stops it.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return m.Stop()
}
