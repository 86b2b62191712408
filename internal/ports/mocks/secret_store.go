package mocks

import (
	"context"
	"sync"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
)

type SecretStore struct {
	mu     sync.Mutex
	values    map[string]string
	GetErr    error
	PutErr    error
	DeleteErr error
}

var _ ports.SecretStore = (*SecretStore)(nil)

func NewSecretStore(values map[string]string) *SecretStore {
	copied := make(map[string]string, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return &SecretStore{values: copied}
}

func (s *SecretStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s *SecretStore) Put(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.values[key] = value
	return nil
}

func (s *SecretStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.values, key)
	return nil
}
