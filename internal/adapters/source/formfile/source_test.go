package formfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/draftguard/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mergeSink struct {
	mu     sync.Mutex
	merged []map[string]string
}

func (s *mergeSink) Observe(ports.FieldChange) {}

func (s *mergeSink) Merge(values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merged = append(s.merged, values)
}

func (s *mergeSink) last() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.merged) == 0 {
		return nil
	}
	return s.merged[len(s.merged)-1]
}

func startSource(t *testing.T, path string, sink *mergeSink) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(path, 10*time.Millisecond, nil).Run(ctx, sink) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("form file source did not stop")
		}
	})
}

func TestSourceLoadsExistingFileOnStart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Subject":"Printer jam"}`), 0o600))

	sink := &mergeSink{}
	startSource(t, path, sink)

	require.Eventually(t, func() bool {
		return sink.last()["Subject"] == "Printer jam"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSourceMergesOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "form.json")
	sink := &mergeSink{}
	startSource(t, path, sink)

	// Writes before the watcher is registered would be missed, so keep
	// writing until one lands.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"Subject":"Updated","Priority":"High"}`), 0o600)
		last := sink.last()
		return last["Subject"] == "Updated" && last["Priority"] == "High"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSourceSkipsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Subject":`), 0o600))

	sink := &mergeSink{}
	startSource(t, path, sink)

	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, sink.last())
}

func TestSourceFailsForMissingDirectory(t *testing.T) {
	t.Parallel()

	err := New(filepath.Join(t.TempDir(), "missing", "form.json"), 0, nil).Run(context.Background(), &mergeSink{})
	assert.ErrorContains(t, err, "watch form file directory")
}
