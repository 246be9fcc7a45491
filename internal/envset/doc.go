// Package envset implements the environment-configuration algebra and its
// on-disk store.
//
// An Environment is one complete configuration: an ordered list of NAME=value
// assignments with unique names. A Set is an ordered collection of
// environments that all share the same variable-name set. Sets are built from
// two primitives and two combinators:
//
//   - FromList(name, values):   one environment per value
//   - FromOutput(name, text):   one environment per non-empty line
//   - Union(a, b):              concatenation; operands must have identical
//     variable-name sets
//   - Cross(sets...):           Cartesian product; operands must have
//     pairwise-disjoint variable-name sets
//
// Cross enumerates in mixed-radix counting order with the last operand
// varying fastest. This ordering is a contract: the store numbers files by
// position, and identical inputs must produce identical file layouts.
//
// The Store persists a Set as a directory of zero-padded, sequentially
// numbered .env files and supports three edit operations (Add, Append,
// Remove) over the materialized set. Every edit deletes the previous file
// set before rewriting, so the file count always matches the current total.
//
// Sets can also be produced by evaluating a Starlark script; see script.go.
package envset
