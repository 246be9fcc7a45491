// Package series owns the on-disk layout and process-wide logging state of
// one experiment series: the output of a single run invocation.
//
// A series directory is created atomically (creation fails if the target
// exists) and holds:
//
//	SERIES/
//	  .labrat_series    marker file, contains the series UUID
//	  .src/             read-only backup copy of the experiment source
//	  runs/             one subdirectory per executed run
//	  stdout.log        captured stdout of every run, appended in order
//	  stderr.log        captured stderr of every run, appended in order
//	  labrat.log        structured log of the invocation
//
// During execution the series is append-only and touched only by the
// executor through the Logger; afterwards it is read-only data consumed by
// the table aggregator in a later, independent invocation.
//
// The Logger is an explicit series context, not ambient global state: it is
// constructed once per invocation and passed into the executor, so tests
// can substitute in-memory sinks.
package series
