package series

import (
	"fmt"
	"os"
	"path/filepath"
)

// File and directory names shared across the harness layout.
const (
	// experiment source directory
	SourceTemplateDir = "template"
	SourceEnvDir      = "envs"
	SourceRunFile     = "run.sh"
	SourceManifest    = "experiment.yaml"

	// series directory
	SeriesSourceDir = ".src"
	SeriesRunsDir   = "runs"
	StdoutLog       = "stdout.log"
	StderrLog       = "stderr.log"
	HarnessLog      = "labrat.log"

	// run directory
	RunEnvFile = "environment.env"

	// marker files identifying harness-owned directories
	MarkerSource     = ".labrat_source"
	MarkerSourceCopy = ".labrat_source_copy"
	MarkerSeries     = ".labrat_series"
	MarkerRun        = ".labrat_run"
)

// FindMarker walks from start upward to the filesystem root looking for a
// directory containing the given marker file, and returns that directory.
func FindMarker(start, marker string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(filepath.Join(dir, marker))
		if err == nil && info.Mode().IsRegular() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found in %s or any parent directory", marker, start)
		}
		dir = parent
	}
}

// FindMarkerCwd is FindMarker starting at the current working directory.
func FindMarkerCwd(marker string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindMarker(cwd, marker)
}
