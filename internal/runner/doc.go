// Package runner plans and executes a series of experiment runs.
//
// The planner expands environment files and a repetition count into run
// descriptors with stable, sortable directory names; the descriptor list may
// then be shuffled so wall-clock execution order carries no systematic bias.
// Shuffling never changes a run's name or log identity.
//
// The executor materializes each descriptor into an isolated run directory,
// invokes the run script, captures its output, and appends it to the series
// log streams. Execution is strictly sequential and fail-fast: the first
// failing run aborts the remaining series, and everything already written
// stays on disk for inspection.
package runner
