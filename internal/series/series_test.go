package series

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SourceTemplateDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SourceEnvDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerSource), nil, 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, SourceTemplateDir, SourceRunFile),
		[]byte("#!/bin/sh\necho hi\n"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, SourceEnvDir, "0.env"),
		[]byte("SEED=1\n"), 0o644))
}

func TestCreateLaysOutSeries(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "exp")
	writeSource(t, src)

	target := filepath.Join(root, "exp-series")
	s, err := Create(src, target)
	require.NoError(t, err)
	assert.Equal(t, target, s.Dir)
	assert.NotEqual(t, "", s.ID.String())

	for _, name := range []string{StdoutLog, StderrLog, HarnessLog, MarkerSeries} {
		info, err := os.Stat(filepath.Join(target, name))
		require.NoError(t, err, name)
		assert.True(t, info.Mode().IsRegular(), name)
	}
	info, err := os.Stat(s.RunsDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// backup carries the copy marker, never the source marker
	_, err = os.Stat(filepath.Join(s.SourceBackupDir(), MarkerSource))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.SourceBackupDir(), MarkerSourceCopy))
	assert.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(s.TemplateDir(), SourceRunFile))
	require.NoError(t, err)
	assert.Contains(t, string(script), "echo hi")
}

func TestCreateRefusesExistingTarget(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "exp")
	writeSource(t, src)

	target := filepath.Join(root, "taken")
	require.NoError(t, os.Mkdir(target, 0o755))

	_, err := Create(src, target)
	var exists *ErrSeriesExists
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, target, exists.Path)
}

func TestCreateRefusesNonSource(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "plain")
	require.NoError(t, os.Mkdir(src, 0o755))

	_, err := Create(src, filepath.Join(root, "series"))
	require.Error(t, err)
}

func TestCreateRefusesTargetInsideSource(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "exp")
	writeSource(t, src)

	_, err := Create(src, filepath.Join(src, "series"))
	require.Error(t, err)
}

func TestOpenRoundTrip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "exp")
	writeSource(t, src)

	s, err := Create(src, filepath.Join(root, "series"))
	require.NoError(t, err)

	reopened, err := Open(s.Dir)
	require.NoError(t, err)
	assert.Equal(t, s.ID, reopened.ID)
}

func TestDefaultDirName(t *testing.T) {
	at := time.Date(2026, 8, 30, 13, 5, 9, 0, time.UTC)
	assert.Equal(t, "probe-2026-08-30-13-05-09", DefaultDirName("probe", at))
}

func TestFindMarkerWalksUp(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "exp")
	writeSource(t, src)
	nested := filepath.Join(src, SourceTemplateDir)

	found, err := FindMarker(nested, MarkerSource)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(src)
	require.NoError(t, err)
	assert.Equal(t, want, resolved)

	_, err = FindMarker(root, MarkerSeries)
	require.Error(t, err)
}

func TestLoggerAppendsContiguousBlocks(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "exp")
	writeSource(t, src)
	s, err := Create(src, filepath.Join(root, "series"))
	require.NoError(t, err)

	var term bytes.Buffer
	logger, err := NewLogger(s, &term, slog.LevelInfo)
	require.NoError(t, err)

	require.NoError(t, logger.AppendStdout("run_0_rep0", []byte("alpha\n")))
	require.NoError(t, logger.AppendStdout("run_0_rep1", []byte("beta")))
	require.NoError(t, logger.AppendStderr("run_0_rep0", nil))
	logger.Info("run finished", "run", "run_0_rep0", "exit", 0)
	require.NoError(t, logger.Close())

	stdout, err := os.ReadFile(filepath.Join(s.Dir, StdoutLog))
	require.NoError(t, err)
	assert.Equal(t,
		"==== run_0_rep0 ====\nalpha\n==== run_0_rep1 ====\nbeta\n",
		string(stdout))

	stderr, err := os.ReadFile(filepath.Join(s.Dir, StderrLog))
	require.NoError(t, err)
	assert.Equal(t, "==== run_0_rep0 ====\n", string(stderr))

	harness, err := os.ReadFile(filepath.Join(s.Dir, HarnessLog))
	require.NoError(t, err)
	assert.Contains(t, string(harness), "run finished")
	assert.Contains(t, term.String(), "run finished")
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), m.Name)
	assert.Equal(t, 1, m.Repetitions)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SourceManifest),
		[]byte("name: probe\nrepetitions: 5\nscript: envs.star\n"), 0o644))
	m, err = LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "probe", m.Name)
	assert.Equal(t, 5, m.Repetitions)
	assert.Equal(t, "envs.star", m.Script)
}
