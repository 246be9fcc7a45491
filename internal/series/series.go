package series

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Series is one experiment series directory: the complete, isolated output
// of a single run invocation.
type Series struct {
	// Dir is the series root.
	Dir string

	// ID identifies this series in log entries. UUIDv7 so that IDs sort
	// by creation time.
	ID uuid.UUID
}

// ErrSeriesExists is reported when the target series path already exists.
type ErrSeriesExists struct {
	Path string
}

func (e *ErrSeriesExists) Error() string {
	return fmt.Sprintf("series directory %s already exists", e.Path)
}

// DefaultDirName derives a series directory name from the experiment name
// and a timestamp, mirroring `NAME-YYYY-MM-DD-HH-MM-SS`.
func DefaultDirName(experimentName string, now time.Time) string {
	return experimentName + now.Format("-2006-01-02-15-04-05")
}

// Create builds a new series directory for the experiment source at
// sourceDir. The target must not exist; pre-existing targets fail with
// ErrSeriesExists and nothing is written.
//
// The experiment source is copied into .src/ as a read-only backup (its
// source marker replaced by a copy marker), runs/ is created, and the three
// log streams are created empty.
func Create(sourceDir, target string) (*Series, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s is not an experiment source directory", sourceDir)
	}
	if _, err := os.Stat(filepath.Join(sourceDir, MarkerSource)); err != nil {
		return nil, fmt.Errorf("%s is not an experiment source directory (missing %s)", sourceDir, MarkerSource)
	}
	if inside, err := isWithin(target, sourceDir); err != nil {
		return nil, err
	} else if inside {
		return nil, fmt.Errorf("cannot create series inside the experiment source %s", sourceDir)
	}

	if err := os.Mkdir(target, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, &ErrSeriesExists{Path: target}
		}
		return nil, fmt.Errorf("create series directory: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate series id: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, MarkerSeries), []byte(id.String()+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write series marker: %w", err)
	}

	// read-only backup of the source, marker swapped so nested discovery
	// never mistakes the copy for a live source
	backup := filepath.Join(target, SeriesSourceDir)
	if err := CopyTree(sourceDir, backup); err != nil {
		return nil, fmt.Errorf("back up experiment source: %w", err)
	}
	if err := os.Remove(filepath.Join(backup, MarkerSource)); err != nil {
		return nil, fmt.Errorf("replace source marker: %w", err)
	}
	if err := touch(filepath.Join(backup, MarkerSourceCopy)); err != nil {
		return nil, err
	}

	if err := os.Mkdir(filepath.Join(target, SeriesRunsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create runs directory: %w", err)
	}
	for _, name := range []string{StdoutLog, StderrLog, HarnessLog} {
		if err := touch(filepath.Join(target, name)); err != nil {
			return nil, err
		}
	}

	return &Series{Dir: target, ID: id}, nil
}

// Open loads an existing series directory, reading back its ID.
func Open(dir string) (*Series, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MarkerSeries))
	if err != nil {
		return nil, fmt.Errorf("%s is not a series directory: %w", dir, err)
	}
	id, err := uuid.Parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse series id: %w", err)
	}
	return &Series{Dir: dir, ID: id}, nil
}

// RunsDir returns the directory owning all run directories.
func (s *Series) RunsDir() string { return filepath.Join(s.Dir, SeriesRunsDir) }

// SourceBackupDir returns the read-only copy of the experiment source.
func (s *Series) SourceBackupDir() string { return filepath.Join(s.Dir, SeriesSourceDir) }

// TemplateDir returns the template directory inside the source backup. Runs
// are materialized from the backup, not the live source, so edits to the
// source during a long series cannot leak into later runs.
func (s *Series) TemplateDir() string {
	return filepath.Join(s.SourceBackupDir(), SourceTemplateDir)
}

// EnvDir returns the environment directory inside the source backup.
func (s *Series) EnvDir() string {
	return filepath.Join(s.SourceBackupDir(), SourceEnvDir)
}

// Name returns the series directory's base name.
func (s *Series) Name() string { return filepath.Base(s.Dir) }

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return f.Close()
}

// CopyTree recursively copies the directory tree at src to dst, creating
// dst. File modes are preserved; symlinks are followed.
func CopyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyTree(from, to); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// isWithin reports whether path is lexically inside dir (or equal to it).
func isWithin(path, dir string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}
