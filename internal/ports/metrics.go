package ports

import "time"

type SaveOutcome string

const (
	SaveOutcomeSuccess  SaveOutcome = "success"
	SaveOutcomeFailure  SaveOutcome = "failure"
	SaveOutcomeRejected SaveOutcome = "rejected"
)

type Metrics interface {
	ObserveSave(outcome SaveOutcome, elapsed time.Duration)
	SaveSkipped()
	SessionWarning()
	ChangeCaptured()
}

type NopMetrics struct{}

func (NopMetrics) ObserveSave(SaveOutcome, time.Duration) {}
func (NopMetrics) SaveSkipped()                           {}
func (NopMetrics) SessionWarning()                        {}
func (NopMetrics) ChangeCaptured()                        {}
