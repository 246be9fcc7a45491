package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/labrat-sci/labrat/internal/envset"
	"github.com/labrat-sci/labrat/internal/series"
)

// NewEnvCommand creates the env command group for editing the environment
// set of the enclosing experiment source.
func NewEnvCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect and edit the experiment's environment set",
		Long: `Inspect and edit the experiment's environment set.

All subcommands operate on the envs/ directory of the experiment source
enclosing the current working directory. Environments are stored as numbered
.env files; edits rewrite the whole set with fresh, zero-padded numbering.`,
	}

	cmd.AddCommand(newEnvShowCommand())
	cmd.AddCommand(newEnvAddCommand())
	cmd.AddCommand(newEnvAppendCommand())
	cmd.AddCommand(newEnvRemoveCommand())
	cmd.AddCommand(newEnvEvalCommand())

	return cmd
}

// sourceStore locates the enclosing experiment source and returns its
// environment store.
func sourceStore() (*envset.Store, error) {
	src, err := series.FindMarkerCwd(series.MarkerSource)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "not inside an experiment source", err)
	}
	return envset.NewStore(filepath.Join(src, series.SourceEnvDir)), nil
}

func storeCommandError(action string, err error) error {
	if code := envset.CodeOf(err); code != "" {
		return WrapExitError(ExitCommandError, action, err)
	}
	return err
}

func newEnvShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "List all environments",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sourceStore()
			if err != nil {
				return err
			}
			files, err := store.Files()
			if err != nil {
				return storeCommandError("list environments", err)
			}
			set, err := store.Load()
			if err != nil {
				return storeCommandError("load environments", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			for i, file := range files {
				var pairs []string
				for _, a := range set.At(i).Assignments() {
					pairs = append(pairs, a.Name+"="+a.Value)
				}
				fmt.Fprintf(tw, "%s\t%s\n", filepath.Base(file), strings.Join(pairs, " "))
			}
			return tw.Flush()
		},
	}
}

func newEnvAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME VALUE...",
		Short: "Add a new variable, crossing it with every environment",
		Long: `Add a new variable with one or more values.

The existing set is replaced by its cross product with the new variable, so
every prior environment is repeated once per value. Fails if the variable
already exists.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sourceStore()
			if err != nil {
				return err
			}
			if err := store.Add(args[0], args[1:]); err != nil {
				return storeCommandError("add variable", err)
			}
			return nil
		},
	}
}

func newEnvAppendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "append NAME VALUE...",
		Short: "Append values to an existing variable",
		Long: `Append one or more values to a variable that already exists.

New environments are generated for the added values and appended after the
existing ones; nothing already stored is rewritten or reordered.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sourceStore()
			if err != nil {
				return err
			}
			if err := store.Append(args[0], args[1:]); err != nil {
				return storeCommandError("append values", err)
			}
			return nil
		},
	}
}

func newEnvRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME [VALUE...]",
		Short: "Remove a variable, or specific values of it",
		Long: `Remove a variable or some of its values.

Without values, the variable is dropped from every environment. With values,
every environment assigning one of them is deleted.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sourceStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0], args[1:]); err != nil {
				return storeCommandError("remove", err)
			}
			return nil
		},
	}
}

func newEnvEvalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eval SCRIPT",
		Short: "Evaluate an environment script and replace the stored set",
		Long: `Evaluate an environment script and replace the stored set.

The script is a Starlark file that must assign the resulting set to a
variable named "envs". Available builtins: from_list(name, values),
from_output(name, text), cross(...), command_output(argv...); the + operator
unions two sets.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sourceStore()
			if err != nil {
				return err
			}
			set, err := envset.EvalScript(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "evaluate script", err)
			}
			if err := store.Write(set); err != nil {
				return storeCommandError("write environments", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d environments\n", set.Len())
			return nil
		},
	}
}
