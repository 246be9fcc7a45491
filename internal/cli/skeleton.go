package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labrat-sci/labrat/internal/skeleton"
)

// NewSkeletonCommand creates the skeleton command.
func NewSkeletonCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "skeleton NAME",
		Short: "Scaffold a new experiment source directory",
		Long: `Scaffold a new experiment source directory.

Creates NAME/ with a starter environment, a runnable template script and a
manifest. Refuses to overwrite an existing path.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := skeleton.Create(args[0]); err != nil {
				return WrapExitError(ExitCommandError, "create skeleton", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	}
}
