package table

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// WriteDB stores the table in a SQLite database at path, in a single
// `results` table with TEXT columns and one row per run. An existing
// results table is replaced so repeated aggregation stays idempotent.
func WriteDB(path string, tbl *Table) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	// single writer, same reasoning as any sqlite sink
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS results`); err != nil {
		return fmt.Errorf("drop results table: %w", err)
	}

	cols := make([]string, 0, len(tbl.Columns)+1)
	cols = append(cols, `"run" TEXT PRIMARY KEY`)
	for _, col := range tbl.Columns {
		cols = append(cols, quoteIdent(col)+" TEXT")
	}
	create := "CREATE TABLE results (" + strings.Join(cols, ", ") + ")"
	if _, err := tx.Exec(create); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}

	names := make([]string, 0, len(tbl.Columns)+1)
	marks := make([]string, 0, len(tbl.Columns)+1)
	names = append(names, `"run"`)
	marks = append(marks, "?")
	for _, col := range tbl.Columns {
		names = append(names, quoteIdent(col))
		marks = append(marks, "?")
	}
	insert := fmt.Sprintf("INSERT INTO results (%s) VALUES (%s)",
		strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(tbl.Columns)+1)
	for _, row := range tbl.Rows {
		args[0] = row.Run
		for i, col := range tbl.Columns {
			if value, ok := row.Cells[col]; ok {
				args[i+1] = value
			} else {
				args[i+1] = nil
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row %s: %w", row.Run, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
