package table

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/labrat-sci/labrat/internal/envset"
	"github.com/labrat-sci/labrat/internal/series"
)

// outPrefix marks files whose content becomes a result column.
const outPrefix = "out_"

// Row is one run's contribution: its environment assignments plus its
// harvested out_* values, keyed by column name.
type Row struct {
	// Run is the run directory's name.
	Run string

	// Cells maps column name to value. Columns the run did not produce
	// are simply absent.
	Cells map[string]string
}

// Table is the aggregated result set of a series.
type Table struct {
	// Columns is the union of all column names across rows, sorted.
	Columns []string

	// Rows holds one entry per run directory, in directory listing order.
	Rows []Row
}

// Aggregate scans a series' run directories and collects one row per run.
// Every environment variable and every out_* file becomes a column; a file
// named exactly "out_" has no column name and is rejected.
func Aggregate(s *series.Series) (*Table, error) {
	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		return nil, fmt.Errorf("read runs directory: %w", err)
	}

	tbl := &Table{}
	columns := map[string]bool{}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "run_") {
			continue
		}
		row, err := readRun(filepath.Join(s.RunsDir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		row.Run = entry.Name()
		for col := range row.Cells {
			columns[col] = true
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	tbl.Columns = make([]string, 0, len(columns))
	for col := range columns {
		tbl.Columns = append(tbl.Columns, col)
	}
	sort.Strings(tbl.Columns)
	return tbl, nil
}

func readRun(dir string) (Row, error) {
	row := Row{Cells: map[string]string{}}

	envText, err := os.ReadFile(filepath.Join(dir, series.RunEnvFile))
	if err != nil {
		return row, fmt.Errorf("read %s: %w", series.RunEnvFile, err)
	}
	env, err := envset.ParseEnvironment(string(envText))
	if err != nil {
		return row, err
	}
	for _, a := range env.Assignments() {
		row.Cells[a.Name] = a.Value
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return row, err
	}
	for _, file := range files {
		if !file.Type().IsRegular() || !strings.HasPrefix(file.Name(), outPrefix) {
			continue
		}
		col := strings.TrimPrefix(file.Name(), outPrefix)
		if col == "" {
			return row, fmt.Errorf("output file %q has no column name", file.Name())
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return row, err
		}
		row.Cells[col] = strings.TrimSpace(string(data))
	}
	return row, nil
}
