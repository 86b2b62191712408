package ports

import (
	"context"

	"github.com/bnema/draftguard/internal/domain"
)

// DraftService is the remote draft controller. Every call is a single
// request/response; implementations impose their own timeout.
type DraftService interface {
	ListActive(ctx context.Context) ([]domain.DraftRecord, error)
	Save(ctx context.Context, req domain.SaveRequest) (domain.SaveResult, error)
	Get(ctx context.Context, caseID domain.RecordID) (domain.DraftSnapshot, error)
	Restore(ctx context.Context, id domain.DraftID) (bool, error)
	Delete(ctx context.Context, id domain.DraftID) (bool, error)
}
