package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

const missingEntryMarker = "is not in the password store"

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

// Store keeps API credentials in the pass password manager. Only the first
// line of an entry is the secret, so operators can annotate entries below it.
type Store struct {
	run runFunc
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: runPassCommand}
}

// CommandError is a failed pass invocation.
type CommandError struct {
	Op     string
	Key    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("pass %s %q: %v", e.Op, e.Key, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) missingEntry() bool {
	return strings.Contains(e.Stderr, missingEntryMarker)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := domain.ValidateSecret(value); err != nil {
		return fmt.Errorf("pass put %q: %w", key, err)
	}

	_, err := s.exec(ctx, "put", key, value+"\n", "insert", "-m", "-f", key)
	return err
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	stdout, err := s.exec(ctx, "get", key, "", "show", key)
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.missingEntry() {
		return "", fmt.Errorf("pass get %q: %w", key, domain.ErrSecretNotFound)
	}
	if err != nil {
		return "", err
	}

	line, _, _ := strings.Cut(stdout, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("pass entry %q has an empty first line: %w", key, domain.ErrSecretNotFound)
	}
	return line, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.exec(ctx, "delete", key, "", "rm", "-f", key)
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.missingEntry() {
		return nil
	}
	return err
}

func (s *Store) exec(ctx context.Context, op, key, input string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, input, args...)
	if errors.Is(err, ErrUnavailable) {
		return "", err
	}
	if err != nil {
		return "", &CommandError{Op: op, Key: key, Stderr: stderr, Err: err}
	}
	return stdout, nil
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if errors.Is(err, exec.ErrNotFound) {
		return "", "", ErrUnavailable
	}
	if err != nil {
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
