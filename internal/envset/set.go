package envset

import (
	"sort"
	"strings"
)

// Set is an ordered collection of environments sharing one variable-name
// set. Order is meaningful only for deterministic file numbering.
type Set struct {
	envs []Environment
}

// NewSet builds a set from the given environments. The caller guarantees
// that all environments share the same variable names.
func NewSet(envs ...Environment) Set {
	return Set{envs: envs}
}

// Len returns the number of environments in the set.
func (s Set) Len() int { return len(s.envs) }

// Environments returns the environments in order. The slice is a copy.
func (s Set) Environments() []Environment {
	out := make([]Environment, len(s.envs))
	copy(out, s.envs)
	return out
}

// At returns the i-th environment.
func (s Set) At(i int) Environment { return s.envs[i] }

// Names returns the sorted variable-name set shared by the environments.
// An empty set has no names.
func (s Set) Names() []string {
	if len(s.envs) == 0 {
		return nil
	}
	names := s.envs[0].Names()
	sort.Strings(names)
	return names
}

// nameKey returns a canonical identity for the variable-name set.
func (s Set) nameKey() string {
	return strings.Join(s.Names(), "\x00")
}

// HasVariable reports whether any environment in the set assigns name.
func (s Set) HasVariable(name string) bool {
	for _, env := range s.envs {
		if env.Has(name) {
			return true
		}
	}
	return false
}

// FromList builds a set with one single-assignment environment per value,
// in the given order.
func FromList(name string, values []string) (Set, error) {
	if err := CheckName(name); err != nil {
		return Set{}, err
	}
	envs := make([]Environment, len(values))
	for i, v := range values {
		envs[i] = NewEnvironment(Assignment{Name: name, Value: v})
	}
	return Set{envs: envs}, nil
}

// FromOutput builds a set from newline-separated text, typically captured
// command output. Trailing empty lines are dropped and interior empty lines
// are skipped; each remaining line becomes one environment.
func FromOutput(name, text string) (Set, error) {
	if err := CheckName(name); err != nil {
		return Set{}, err
	}
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	var values []string
	for _, line := range lines {
		if line != "" {
			values = append(values, line)
		}
	}
	return FromList(name, values)
}

// Union concatenates two sets, left then right. Both operands must be
// non-empty and share an identical variable-name set.
func Union(a, b Set) (Set, error) {
	if a.Len() == 0 || b.Len() == 0 {
		return Set{}, newError(ErrCodeEmptySet, "union requires non-empty operands")
	}
	if a.nameKey() != b.nameKey() {
		return Set{}, newError(ErrCodeVariableSetMismatch,
			"union operands must define the same variables",
			append(a.Names(), b.Names()...)...)
	}
	envs := make([]Environment, 0, a.Len()+b.Len())
	envs = append(envs, a.envs...)
	envs = append(envs, b.envs...)
	return Set{envs: envs}, nil
}

// Cross computes the Cartesian product of the given sets. Operands must be
// non-empty and have pairwise-disjoint variable-name sets. Enumeration is
// mixed-radix counting order with the last operand varying fastest, so
// identical inputs always yield identical numbering downstream.
func Cross(sets ...Set) (Set, error) {
	if len(sets) == 0 {
		return Set{}, newError(ErrCodeEmptySet, "cross requires at least one operand")
	}

	seen := map[string]bool{}
	total := 1
	for _, s := range sets {
		if s.Len() == 0 {
			return Set{}, newError(ErrCodeEmptySet, "cross requires non-empty operands")
		}
		for _, name := range s.Names() {
			if seen[name] {
				return Set{}, newError(ErrCodeVariableNameCollision,
					"cross operands must define disjoint variables", name)
			}
			seen[name] = true
		}
		total *= s.Len()
	}

	envs := make([]Environment, 0, total)
	indices := make([]int, len(sets))
	for {
		var env Environment
		for i, s := range sets {
			env = env.concat(s.At(indices[i]))
		}
		envs = append(envs, env)

		// increment the mixed-radix counter, last digit fastest
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < sets[pos].Len() {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return Set{envs: envs}, nil
}

// EqualAsMultiset reports whether two sets contain the same environments
// with the same multiplicities, ignoring order.
func (s Set) EqualAsMultiset(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	counts := map[string]int{}
	for _, env := range s.envs {
		counts[env.key()]++
	}
	for _, env := range other.envs {
		counts[env.key()]--
		if counts[env.key()] < 0 {
			return false
		}
	}
	return true
}
