package runner

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/labrat-sci/labrat/internal/envset"
)

// State tracks how far a run descriptor progressed through the executor.
type State int

const (
	Pending State = iota
	DirCreated
	TemplateCopied
	EnvWritten
	Executing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case DirCreated:
		return "dir-created"
	case TemplateCopied:
		return "template-copied"
	case EnvWritten:
		return "env-written"
	case Executing:
		return "executing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Descriptor is one planned run: a single (environment, repetition) pair.
// Its name is fixed at planning time and never changes, regardless of the
// order runs actually execute in.
type Descriptor struct {
	// EnvFile is the path of the environment file feeding this run.
	EnvFile string

	// EnvName is the environment file's base name without extension.
	EnvName string

	// Rep is the repetition index, 0-based.
	Rep int

	// repWidth is the zero-padding width shared by the whole plan.
	repWidth int

	// State is the executor's progress through this run.
	State State

	// ExitCode is the run script's exit code once State is Completed or
	// Failed after spawning.
	ExitCode int
}

// Name returns the run directory name, run_<env>_rep<NNN>.
func (d *Descriptor) Name() string {
	return fmt.Sprintf("run_%s_rep%0*d", d.EnvName, d.repWidth, d.Rep)
}

// Plan expands environment files and a repetition count into the full run
// descriptor list, env-major: all repetitions of the first environment, then
// the second, and so on. Repetition indices are zero-padded to the digit
// count of reps-1 so directory listings sort correctly.
func Plan(envFiles []string, reps int) ([]*Descriptor, error) {
	if len(envFiles) == 0 {
		return nil, &Error{Code: ErrCodeNothingPlanned, Message: "no environment files"}
	}
	if reps < 1 {
		return nil, &Error{
			Code:    ErrCodeNothingPlanned,
			Message: fmt.Sprintf("repetition count %d, need at least 1", reps),
		}
	}
	width := envset.IndexWidth(reps)
	plan := make([]*Descriptor, 0, len(envFiles)*reps)
	for _, file := range envFiles {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		for rep := 0; rep < reps; rep++ {
			plan = append(plan, &Descriptor{
				EnvFile:  file,
				EnvName:  name,
				Rep:      rep,
				repWidth: width,
				State:    Pending,
			})
		}
	}
	return plan, nil
}

// Shuffle permutes the plan uniformly in place. Run names and log identity
// are unaffected; only wall-clock execution order changes.
func Shuffle(plan []*Descriptor, rng *rand.Rand) {
	rng.Shuffle(len(plan), func(i, j int) {
		plan[i], plan[j] = plan[j], plan[i]
	})
}
