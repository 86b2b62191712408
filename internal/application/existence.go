package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

// ExistenceCheck looks for a saved draft of the record once, at start-up,
// and tells the user and the host about it. It never restores on its own
// unless ApplyFound is set.
type ExistenceCheck struct {
	RecordID   domain.RecordID
	Service    ports.DraftService
	Notifier   ports.Notifier
	Sink       ports.ChangeSink
	ApplyFound bool
	Logger     *zap.Logger
}

func (c ExistenceCheck) Run(ctx context.Context) (domain.DraftSnapshot, bool) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	snapshot, err := c.Service.Get(ctx, c.RecordID)
	if err != nil {
		if errors.Is(err, domain.ErrDraftNotFound) {
			logger.Debug("no saved draft for record", zap.String("record_id", string(c.RecordID)))
		} else {
			logger.Error("error checking draft", zap.String("record_id", string(c.RecordID)), zap.Error(err))
		}
		return domain.DraftSnapshot{}, false
	}
	if !snapshot.Success {
		return domain.DraftSnapshot{}, false
	}

	c.Notifier.Toast(ctx, domain.Toast{
		Title:   "Draft Available",
		Message: fmt.Sprintf("A draft from %s was found. Would you like to restore it?", formatSavedAt(snapshot.LastSaved)),
		Variant: domain.ToastInfo,
		Mode:    domain.ToastSticky,
	})
	c.Notifier.DraftFound(ctx, domain.DraftFoundEvent{DraftData: snapshot.DraftData, LastSaved: snapshot.LastSaved})

	if c.ApplyFound && c.Sink != nil {
		fields, err := snapshot.Fields()
		if err != nil {
			logger.Warn("found draft payload is not a field map", zap.Error(err))
		} else {
			c.Sink.Merge(fields)
			logger.Info("applied found draft", zap.Int("fields", len(fields)))
		}
	}

	return snapshot, true
}

func formatSavedAt(t time.Time) string {
	if t.IsZero() {
		return "an earlier session"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
