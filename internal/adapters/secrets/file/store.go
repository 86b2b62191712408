package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
)

const (
	dirMode    = 0o700
	secretMode = 0o600
)

// Store is the plain-file fallback for API credentials. Each key is a file
// below root, written atomically and only read back while it stays private
// to the owner.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateSecret(value); err != nil {
		return fmt.Errorf("store secret %q: %w", key, err)
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create secret directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stage secret %q: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(value + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write secret %q: %w", key, err)
	}
	if err := tmp.Chmod(secretMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("protect secret %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write secret %q: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store secret %q: %w", key, err)
	}
	return nil
}

// Get refuses files that group or other can read; a leaked token must be
// rotated, not silently used.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat secret %q: %w", key, err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return "", fmt.Errorf("secret %q is accessible by other users (mode %#o), run chmod 600 %s", key, perm, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", key, err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("secret %q is empty: %w", key, domain.ErrSecretNotFound)
	}
	return line, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}

// resolve maps key to a path inside root.
func (s *Store) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("secret key is empty")
	}
	if filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid secret key %q", key)
	}

	rel := filepath.Clean(key)
	if rel == "." || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid secret key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}
