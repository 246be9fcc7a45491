package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/labrat-sci/labrat/internal/series"
)

// WriteReport prints a human-readable summary of a finished series: the
// three log streams followed by every out_* file each run produced. Used by
// trial runs, where the series lives in a temp directory the user will
// never open by hand.
func WriteReport(w io.Writer, s *series.Series) error {
	for _, name := range []string{series.StdoutLog, series.StderrLog, series.HarnessLog} {
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		fmt.Fprintf(w, "---- %s ----\n", name)
		w.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}

	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		return fmt.Errorf("read runs directory: %w", err)
	}
	var runs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "run_") {
			runs = append(runs, entry.Name())
		}
	}
	sort.Strings(runs)

	for _, run := range runs {
		runDir := filepath.Join(s.RunsDir(), run)
		files, err := os.ReadDir(runDir)
		if err != nil {
			return fmt.Errorf("read run directory %s: %w", run, err)
		}
		for _, file := range files {
			if !file.Type().IsRegular() || !strings.HasPrefix(file.Name(), "out_") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(runDir, file.Name()))
			if err != nil {
				return fmt.Errorf("read %s/%s: %w", run, file.Name(), err)
			}
			fmt.Fprintf(w, "---- %s/%s ----\n%s\n", run, file.Name(), strings.TrimSpace(string(data)))
		}
	}
	return nil
}
