package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labrat-sci/labrat/internal/series"
	"github.com/labrat-sci/labrat/internal/table"
)

// TableOptions holds flags for the table command.
type TableOptions struct {
	*RootOptions
	Out string
	DB  string
}

// NewTableCommand creates the table command.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "table [SERIES]",
		Short: "Aggregate a series' outputs into a result table",
		Long: `Aggregate a series' outputs into a result table.

Each run contributes one row: its environment assignments plus the contents
of its out_* files. Without SERIES, the series enclosing the current
directory is used. The table is written as CSV into the series directory
unless -o names another file; --db additionally writes a SQLite database.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return aggregateSeries(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "CSV output file (default SERIES/SERIES.csv)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "also write a SQLite database at this path")

	return cmd
}

func aggregateSeries(opts *TableOptions, dir string, cmd *cobra.Command) error {
	if dir == "" {
		found, err := series.FindMarkerCwd(series.MarkerSeries)
		if err != nil {
			return WrapExitError(ExitCommandError, "not inside a series directory", err)
		}
		dir = found
	}

	s, err := series.Open(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "open series", err)
	}

	tbl, err := table.Aggregate(s)
	if err != nil {
		return WrapExitError(ExitCommandError, "aggregate series", err)
	}

	csvPath := opts.Out
	if csvPath == "" {
		csvPath = table.DefaultCSVPath(s.Dir)
	}
	if err := table.WriteCSVFile(csvPath, tbl); err != nil {
		return WrapExitError(ExitCommandError, "write CSV", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), csvPath)

	if opts.DB != "" {
		if err := table.WriteDB(opts.DB, tbl); err != nil {
			return WrapExitError(ExitCommandError, "write database", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), opts.DB)
	}
	return nil
}
