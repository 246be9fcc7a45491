// Package table aggregates the outputs of a finished series into tabular
// form. Each run directory contributes one row: its environment assignments
// plus the trimmed contents of every out_* file it produced. Columns are the
// union over all runs; cells for columns a run did not produce stay blank.
//
// Rows are written as CSV or into a SQLite database.
package table
