package formfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/draftguard/internal/ports"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 100 * time.Millisecond

// Source watches a JSON object file holding the form's current field values
// and merges it into the sink whenever the file settles after a write.
type Source struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
}

var _ ports.ChangeSource = (*Source)(nil)

func New(path string, debounce time.Duration, logger *zap.Logger) *Source {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Source{path: filepath.Clean(path), debounce: debounce, logger: logger}
}

func (s *Source) Run(ctx context.Context, sink ports.ChangeSink) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors save through rename, so the directory is watched rather than
	// the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch form file directory: %w", err)
	}

	s.load(sink)
	s.logger.Info("watching form file", zap.String("path", s.path))

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(s.debounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(s.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			s.load(sink)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("form file watcher error", zap.Error(err))
		}
	}
}

func (s *Source) load(sink ports.ChangeSink) {
	values, err := readFields(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("skip unreadable form file", zap.String("path", s.path), zap.Error(err))
		return
	}
	sink.Merge(values)
}

func readFields(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode form file: %w", err)
	}
	return values, nil
}
