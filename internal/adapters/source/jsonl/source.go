package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/draftguard/internal/ports"
	"go.uber.org/zap"
)

const maxLineBytes = 1 << 20

// message is one line of the stream. A line carries either a single change
// ({"field":"Subject","value":"..."}) or a merge ({"fields":{...}}).
type message struct {
	Field  string            `json:"field"`
	Value  string            `json:"value"`
	Fields map[string]string `json:"fields"`
}

// Source turns newline-delimited JSON from a host process into change
// notifications.
type Source struct {
	reader io.Reader
	logger *zap.Logger
}

var _ ports.ChangeSource = (*Source)(nil)

func New(reader io.Reader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{reader: reader, logger: logger}
}

// Run returns when the stream ends or ctx is done. Malformed lines are
// logged and skipped.
func (s *Source) Run(ctx context.Context, sink ports.ChangeSink) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(s.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read change stream: %w", err)
					}
				default:
				}
				return nil
			}
			lineNo++
			s.apply(sink, lineNo, line)
		}
	}
}

func (s *Source) apply(sink ports.ChangeSink, lineNo int, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	var msg message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		s.logger.Warn("skip malformed change line", zap.Int("line", lineNo), zap.Error(err))
		return
	}

	if len(msg.Fields) > 0 {
		sink.Merge(msg.Fields)
	}
	if msg.Field != "" {
		sink.Observe(ports.FieldChange{Name: msg.Field, Value: msg.Value})
	}
}
