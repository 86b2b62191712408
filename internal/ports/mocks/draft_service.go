package mocks

import (
	"context"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/stretchr/testify/mock"
)

type DraftService struct {
	mock.Mock
}

var _ ports.DraftService = (*DraftService)(nil)

func NewDraftService(t interface {
	mock.TestingT
	Cleanup(func())
}) *DraftService {
	m := &DraftService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *DraftService) ListActive(ctx context.Context) ([]domain.DraftRecord, error) {
	args := m.Called(ctx)
	drafts, _ := args.Get(0).([]domain.DraftRecord)
	return drafts, args.Error(1)
}

func (m *DraftService) Save(ctx context.Context, req domain.SaveRequest) (domain.SaveResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.SaveResult), args.Error(1)
}

func (m *DraftService) Get(ctx context.Context, caseID domain.RecordID) (domain.DraftSnapshot, error) {
	args := m.Called(ctx, caseID)
	return args.Get(0).(domain.DraftSnapshot), args.Error(1)
}

func (m *DraftService) Restore(ctx context.Context, id domain.DraftID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *DraftService) Delete(ctx context.Context, id domain.DraftID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
