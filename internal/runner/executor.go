package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/labrat-sci/labrat/internal/envset"
	"github.com/labrat-sci/labrat/internal/series"
)

// Executor runs a plan sequentially inside a series directory. The first
// failing run aborts everything that follows; nothing already written is
// rolled back.
type Executor struct {
	Series *series.Series
	Log    *series.Logger

	// Progress receives a progress bar while runs execute. Nil disables it.
	Progress io.Writer
}

// ExecuteAll processes the plan in order. Between runs the context is
// checked, so cancellation takes effect at the next run boundary; a running
// script is never interrupted mid-run.
func (e *Executor) ExecuteAll(ctx context.Context, plan []*Descriptor) error {
	var bar *progressbar.ProgressBar
	if e.Progress != nil {
		bar = progressbar.NewOptions(len(plan),
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSetDescription("running"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	for _, desc := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.execute(desc); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return nil
}

func (e *Executor) execute(desc *Descriptor) error {
	name := desc.Name()
	runDir := filepath.Join(e.Series.RunsDir(), name)

	// pre-existing directories are fatal, same as any other mkdir failure
	if err := os.Mkdir(runDir, 0o755); err != nil {
		desc.State = Failed
		return setupError(name, "create run directory", err)
	}
	desc.State = DirCreated

	if err := series.CopyTree(e.Series.TemplateDir(), runDir); err != nil {
		desc.State = Failed
		return setupError(name, "copy template", err)
	}
	desc.State = TemplateCopied

	env, err := loadEnvironment(desc.EnvFile)
	if err != nil {
		desc.State = Failed
		return setupError(name, "read environment file", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, series.RunEnvFile), []byte(env.Serialize()), 0o644); err != nil {
		desc.State = Failed
		return setupError(name, "write environment file", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, series.MarkerRun), nil, 0o644); err != nil {
		desc.State = Failed
		return setupError(name, "write run marker", err)
	}
	desc.State = EnvWritten

	e.Log.Info("run started", "run", name, "env", desc.EnvName, "rep", desc.Rep)
	desc.State = Executing

	var stdout, stderr bytes.Buffer
	cmd := exec.Command("./" + series.SourceRunFile)
	cmd.Dir = runDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if err := e.Log.AppendStdout(name, stdout.Bytes()); err != nil {
		desc.State = Failed
		return setupError(name, "append stdout log", err)
	}
	if err := e.Log.AppendStderr(name, stderr.Bytes()); err != nil {
		desc.State = Failed
		return setupError(name, "append stderr log", err)
	}

	if runErr != nil {
		desc.State = Failed
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			desc.ExitCode = exitErr.ExitCode()
			e.Log.Error("run failed",
				"run", name,
				"exit_code", desc.ExitCode,
				"stderr_nonempty", stderr.Len() > 0)
			return processError(name, desc.ExitCode, nil)
		}
		e.Log.Error("run failed to start", "run", name, "error", runErr)
		return &Error{Code: ErrCodeRunProcess, Run: name, Message: "spawn run script", Err: runErr}
	}

	desc.ExitCode = 0
	desc.State = Completed
	e.Log.Info("run finished",
		"run", name,
		"exit_code", 0,
		"stderr_nonempty", stderr.Len() > 0)
	return nil
}

func loadEnvironment(path string) (envset.Environment, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return envset.Environment{}, err
	}
	return envset.ParseEnvironment(string(text))
}
