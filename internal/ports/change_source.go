package ports

import "context"

// FieldChange is one change notification. Changes with an empty Name are
// ignored by the capture agent.
type FieldChange struct {
	Name  string
	Value string
}

// ChangeSink is the capability a host is granted to push edits.
type ChangeSink interface {
	Observe(change FieldChange)
	Merge(values map[string]string)
}

// ChangeSource feeds a sink until ctx is done or the source is exhausted.
type ChangeSource interface {
	Run(ctx context.Context, sink ChangeSink) error
}
