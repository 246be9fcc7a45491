package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteCSV renders the table. The header is "run" followed by the sorted
// column names; missing cells are written blank.
func WriteCSV(w io.Writer, tbl *Table) error {
	cw := csv.NewWriter(w)

	header := append([]string{"run"}, tbl.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range tbl.Rows {
		record[0] = row.Run
		for i, col := range tbl.Columns {
			record[i+1] = row.Cells[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DefaultCSVPath names the CSV file for a series directory: the series
// name plus .csv, inside the series directory itself.
func DefaultCSVPath(seriesDir string) string {
	return filepath.Join(seriesDir, filepath.Base(seriesDir)+".csv")
}

// WriteCSVFile writes the table to path, creating or truncating it.
func WriteCSVFile(path string, tbl *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, tbl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
