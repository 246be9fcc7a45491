package cli

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/labrat-sci/labrat/internal/envset"
	"github.com/labrat-sci/labrat/internal/runner"
	"github.com/labrat-sci/labrat/internal/series"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Reps  int
	Out   string
	Trial bool
	Seed  int64
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [EXPERIMENT]",
		Short: "Plan and execute an experiment series",
		Long: `Plan and execute an experiment series.

Expands every environment times the repetition count into run directories,
executes them sequentially in shuffled order, and aborts on the first
failure. Without EXPERIMENT, the source enclosing the current directory is
used.

Example:
  labrat run ./sorting -r 10 -o sorting-series`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := ""
			if len(args) == 1 {
				src = args[0]
			}
			return runSeries(opts, src, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Reps, "repetitions", "r", 0, "repetitions per environment (default from experiment.yaml)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "series directory to create (default NAME-TIMESTAMP)")
	cmd.Flags().BoolVar(&opts.Trial, "trial", false, "single trial run in a temp series, printing a report")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "shuffle seed (0 = random)")

	return cmd
}

func runSeries(opts *RunOptions, src string, cmd *cobra.Command) error {
	if src == "" {
		found, err := series.FindMarkerCwd(series.MarkerSource)
		if err != nil {
			return WrapExitError(ExitCommandError, "not inside an experiment source", err)
		}
		src = found
	}

	manifest, err := series.LoadManifest(src)
	if err != nil {
		return WrapExitError(ExitCommandError, "load experiment manifest", err)
	}

	reps := manifest.Repetitions
	if opts.Reps > 0 {
		reps = opts.Reps
	}
	if opts.Trial {
		reps = 1
	}

	// a manifest script regenerates the environment store before the
	// series is created, so the backup copy carries the expanded set
	if manifest.Script != "" {
		set, err := envset.EvalScript(filepath.Join(src, manifest.Script))
		if err != nil {
			return WrapExitError(ExitCommandError, "evaluate environment script", err)
		}
		store := envset.NewStore(filepath.Join(src, series.SourceEnvDir))
		if err := store.Write(set); err != nil {
			return WrapExitError(ExitCommandError, "write environments", err)
		}
	}

	target := opts.Out
	if target == "" {
		target = series.DefaultDirName(manifest.Name, time.Now())
	}
	if opts.Trial {
		target = filepath.Join(os.TempDir(), series.DefaultDirName(manifest.Name+"-trial", time.Now()))
	}

	s, err := series.Create(src, target)
	if err != nil {
		return WrapExitError(ExitCommandError, "create series", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger, err := series.NewLogger(s, cmd.ErrOrStderr(), level)
	if err != nil {
		return WrapExitError(ExitCommandError, "open series logs", err)
	}
	defer logger.Close()

	backup := envset.NewStore(s.EnvDir())
	envFiles, err := backup.Files()
	if err != nil {
		return WrapExitError(ExitCommandError, "list environments", err)
	}

	plan, err := runner.Plan(envFiles, reps)
	if err != nil {
		return WrapExitError(ExitCommandError, "plan series", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runner.Shuffle(plan, rand.New(rand.NewSource(seed)))

	if opts.Trial {
		plan = plan[:1]
	}

	logger.Info("series started",
		"experiment", manifest.Name,
		"environments", len(envFiles),
		"repetitions", reps,
		"runs", len(plan))

	exec := &runner.Executor{Series: s, Log: logger}
	if !opts.Verbose {
		exec.Progress = cmd.ErrOrStderr()
	}
	if err := exec.ExecuteAll(cmd.Context(), plan); err != nil {
		logger.Error("series aborted", "error", err)
		code := ExitFailure
		if runner.CodeOf(err) == runner.ErrCodeRunSetup {
			code = ExitCommandError
		}
		return WrapExitError(code, fmt.Sprintf("series aborted, partial output in %s", s.Dir), err)
	}

	logger.Info("series finished", "dir", s.Dir)

	if opts.Trial {
		return runner.WriteReport(cmd.OutOrStdout(), s)
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.Dir)
	return nil
}
