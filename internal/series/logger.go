package series

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the per-series logging context. Structured harness events go to
// both the terminal and labrat.log; raw experiment output is appended to the
// stdout.log and stderr.log streams as contiguous per-run blocks.
type Logger struct {
	*slog.Logger

	stdout  *os.File
	stderr  *os.File
	harness *os.File
}

// NewLogger opens the series log sinks. Structured entries fan out to
// terminal (respecting level) and to labrat.log, which always records debug.
func NewLogger(s *Series, terminal io.Writer, level slog.Level) (*Logger, error) {
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open series log %s: %w", name, err)
		}
		return f, nil
	}
	stdout, err := open(StdoutLog)
	if err != nil {
		return nil, err
	}
	stderr, err := open(StderrLog)
	if err != nil {
		stdout.Close()
		return nil, err
	}
	harness, err := open(HarnessLog)
	if err != nil {
		stdout.Close()
		stderr.Close()
		return nil, err
	}

	handler := slogmulti.Fanout(
		slog.NewTextHandler(terminal, &slog.HandlerOptions{Level: level}),
		slog.NewTextHandler(harness, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(handler).With("series", s.ID.String())

	return &Logger{
		Logger:  logger,
		stdout:  stdout,
		stderr:  stderr,
		harness: harness,
	}, nil
}

// Close flushes and closes all three sinks.
func (l *Logger) Close() error {
	var first error
	for _, f := range []*os.File{l.stdout, l.stderr, l.harness} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AppendStdout appends a run's captured standard output as one contiguous
// block, preceded by a header naming the run.
func (l *Logger) AppendStdout(runName string, data []byte) error {
	return appendBlock(l.stdout, runName, data)
}

// AppendStderr appends a run's captured standard error as one contiguous
// block, preceded by a header naming the run.
func (l *Logger) AppendStderr(runName string, data []byte) error {
	return appendBlock(l.stderr, runName, data)
}

func appendBlock(f *os.File, runName string, data []byte) error {
	if _, err := fmt.Fprintf(f, "==== %s ====\n", runName); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if data[len(data)-1] != '\n' {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}
