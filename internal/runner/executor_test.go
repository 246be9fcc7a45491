package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrat-sci/labrat/internal/series"
)

// buildSource writes an experiment source whose run script is real shell.
func buildSource(t *testing.T, root, script string, envs map[string]string) string {
	t.Helper()
	src := filepath.Join(root, "exp")
	require.NoError(t, os.MkdirAll(filepath.Join(src, series.SourceTemplateDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, series.SourceEnvDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, series.MarkerSource), nil, 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(src, series.SourceTemplateDir, series.SourceRunFile),
		[]byte(script), 0o755))
	for name, content := range envs {
		require.NoError(t, os.WriteFile(
			filepath.Join(src, series.SourceEnvDir, name), []byte(content), 0o644))
	}
	return src
}

func startSeries(t *testing.T, src, target string) (*series.Series, *series.Logger) {
	t.Helper()
	s, err := series.Create(src, target)
	require.NoError(t, err)
	logger, err := series.NewLogger(s, io.Discard, slog.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return s, logger
}

func TestExecuteAllRunsFullSeries(t *testing.T) {
	root := t.TempDir()
	script := "#!/bin/sh\n" +
		". ./" + series.RunEnvFile + "\n" +
		"echo \"value $VALUE rep marker\"\n" +
		"echo \"$VALUE\" > out_value\n"
	src := buildSource(t, root, script, map[string]string{
		"0.env": "VALUE=alpha\n",
		"1.env": "VALUE=beta\n",
	})

	s, logger := startSeries(t, src, filepath.Join(root, "series"))

	envFiles := []string{
		filepath.Join(s.EnvDir(), "0.env"),
		filepath.Join(s.EnvDir(), "1.env"),
	}
	plan, err := Plan(envFiles, 3)
	require.NoError(t, err)

	exec := &Executor{Series: s, Log: logger}
	require.NoError(t, exec.ExecuteAll(context.Background(), plan))

	entries, err := os.ReadDir(s.RunsDir())
	require.NoError(t, err)
	assert.Len(t, entries, 6)

	for _, d := range plan {
		assert.Equal(t, Completed, d.State, d.Name())
		assert.Equal(t, 0, d.ExitCode, d.Name())

		runDir := filepath.Join(s.RunsDir(), d.Name())
		envText, err := os.ReadFile(filepath.Join(runDir, series.RunEnvFile))
		require.NoError(t, err)
		want := "alpha"
		if d.EnvName == "1" {
			want = "beta"
		}
		assert.Equal(t, "VALUE="+want+"\n", string(envText))

		out, err := os.ReadFile(filepath.Join(runDir, "out_value"))
		require.NoError(t, err)
		assert.Equal(t, want+"\n", string(out))

		_, err = os.Stat(filepath.Join(runDir, series.MarkerRun))
		assert.NoError(t, err)
	}

	logger.Close()
	stdout, err := os.ReadFile(filepath.Join(s.Dir, series.StdoutLog))
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "==== run_0_rep0 ====\nvalue alpha rep marker\n")
	assert.Contains(t, string(stdout), "==== run_1_rep2 ====\nvalue beta rep marker\n")
}

func TestExecuteAllFailFast(t *testing.T) {
	root := t.TempDir()
	script := "#!/bin/sh\n" +
		". ./" + series.RunEnvFile + "\n" +
		"if [ \"$MODE\" = \"bad\" ]; then\n" +
		"  echo boom >&2\n" +
		"  exit 3\n" +
		"fi\n" +
		"echo fine\n"
	src := buildSource(t, root, script, map[string]string{
		"0.env": "MODE=good\n",
		"1.env": "MODE=bad\n",
		"2.env": "MODE=good\n",
	})

	s, logger := startSeries(t, src, filepath.Join(root, "series"))

	envFiles := []string{
		filepath.Join(s.EnvDir(), "0.env"),
		filepath.Join(s.EnvDir(), "1.env"),
		filepath.Join(s.EnvDir(), "2.env"),
	}
	plan, err := Plan(envFiles, 1)
	require.NoError(t, err)

	exec := &Executor{Series: s, Log: logger}
	err = exec.ExecuteAll(context.Background(), plan)
	require.Error(t, err)
	assert.Equal(t, ErrCodeRunProcess, CodeOf(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "run_1_rep0", re.Run)

	assert.Equal(t, Completed, plan[0].State)
	assert.Equal(t, Failed, plan[1].State)
	assert.Equal(t, 3, plan[1].ExitCode)
	assert.Equal(t, Pending, plan[2].State)

	// the third run never touched the filesystem, the first two remain
	entries, err := os.ReadDir(s.RunsDir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	logger.Close()
	stderr, err := os.ReadFile(filepath.Join(s.Dir, series.StderrLog))
	require.NoError(t, err)
	assert.Contains(t, string(stderr), "==== run_1_rep0 ====\nboom\n")
}

func TestExecuteAllAbortsOnExistingRunDir(t *testing.T) {
	root := t.TempDir()
	src := buildSource(t, root, "#!/bin/sh\necho ok\n", map[string]string{"0.env": "A=1\n"})
	s, logger := startSeries(t, src, filepath.Join(root, "series"))

	plan, err := Plan([]string{filepath.Join(s.EnvDir(), "0.env")}, 1)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(s.RunsDir(), plan[0].Name()), 0o755))

	exec := &Executor{Series: s, Log: logger}
	err = exec.ExecuteAll(context.Background(), plan)
	assert.Equal(t, ErrCodeRunSetup, CodeOf(err))
	assert.Equal(t, Failed, plan[0].State)
}

func TestExecuteAllStopsAtRunBoundaryOnCancel(t *testing.T) {
	root := t.TempDir()
	src := buildSource(t, root, "#!/bin/sh\necho ok\n", map[string]string{"0.env": "A=1\n"})
	s, logger := startSeries(t, src, filepath.Join(root, "series"))

	plan, err := Plan([]string{filepath.Join(s.EnvDir(), "0.env")}, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &Executor{Series: s, Log: logger}
	err = exec.ExecuteAll(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)

	// cancellation is only observed between runs, no run was started
	entries, err := os.ReadDir(s.RunsDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, Pending, plan[0].State)
}

func TestWriteReportCollectsLogsAndOutputs(t *testing.T) {
	root := t.TempDir()
	script := "#!/bin/sh\necho hello\necho 42 > out_answer\n"
	src := buildSource(t, root, script, map[string]string{"0.env": "A=1\n"})
	s, logger := startSeries(t, src, filepath.Join(root, "series"))

	plan, err := Plan([]string{filepath.Join(s.EnvDir(), "0.env")}, 1)
	require.NoError(t, err)
	exec := &Executor{Series: s, Log: logger}
	require.NoError(t, exec.ExecuteAll(context.Background(), plan))
	logger.Close()

	var report strings.Builder
	require.NoError(t, WriteReport(&report, s))
	assert.Contains(t, report.String(), "---- stdout.log ----")
	assert.Contains(t, report.String(), "hello")
	assert.Contains(t, report.String(), "---- run_0_rep0/out_answer ----\n42")
}
