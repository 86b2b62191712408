package domain

import "time"

const (
	SessionAnchorKey = "sessionStart"
	SessionWarnedKey = "sessionWarned"
)

// TimeoutWindow is the half-open interval [WarnAfter, WarnAfter+Width) of
// elapsed session time during which the timeout warning is due.
type TimeoutWindow struct {
	WarnAfter time.Duration
	Width     time.Duration
}

func (w TimeoutWindow) Contains(elapsed time.Duration) bool {
	return elapsed >= w.WarnAfter && elapsed < w.WarnAfter+w.Width
}

// Widen returns a window at least as wide as pollInterval so one poll always
// lands inside it.
func (w TimeoutWindow) Widen(pollInterval time.Duration) TimeoutWindow {
	if pollInterval > w.Width {
		w.Width = pollInterval
	}
	return w
}

type SessionAnchor struct {
	Start time.Time
}

func (a SessionAnchor) Elapsed(now time.Time) time.Duration {
	return now.Sub(a.Start)
}

func (a SessionAnchor) Key() string {
	return a.Start.UTC().Format(time.RFC3339Nano)
}
