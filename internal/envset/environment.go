package envset

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Assignment binds one variable name to one value.
type Assignment struct {
	Name  string
	Value string
}

// Environment is one complete configuration: an ordered list of assignments
// with unique names. It corresponds to the content of one .env file.
type Environment struct {
	assignments []Assignment
}

// validName follows the POSIX convention for environment variable names:
// uppercase letters, digits and underscore, not starting with a digit.
var validName = regexp.MustCompile(`^[A-Z_][0-9A-Z_]*$`)

// CheckName validates a variable name.
func CheckName(name string) error {
	if !validName.MatchString(name) {
		return newError(ErrCodeInvalidName,
			"variable names must match [A-Z_][0-9A-Z_]*", name)
	}
	return nil
}

// NewEnvironment builds an environment from assignments in the given order.
// Duplicate names keep the last value, matching file-parse semantics.
func NewEnvironment(assignments ...Assignment) Environment {
	var env Environment
	for _, a := range assignments {
		env.Set(a.Name, a.Value)
	}
	return env
}

// Set assigns value to name, updating in place if name already exists.
func (e *Environment) Set(name, value string) {
	for i, a := range e.assignments {
		if a.Name == name {
			e.assignments[i].Value = value
			return
		}
	}
	e.assignments = append(e.assignments, Assignment{Name: name, Value: value})
}

// Get returns the value bound to name.
func (e Environment) Get(name string) (string, bool) {
	for _, a := range e.assignments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Has reports whether name is assigned in this environment.
func (e Environment) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Len returns the number of assignments.
func (e Environment) Len() int { return len(e.assignments) }

// Assignments returns the assignments in order. The slice is a copy.
func (e Environment) Assignments() []Assignment {
	out := make([]Assignment, len(e.assignments))
	copy(out, e.assignments)
	return out
}

// Names returns the variable names in assignment order.
func (e Environment) Names() []string {
	names := make([]string, len(e.assignments))
	for i, a := range e.assignments {
		names[i] = a.Name
	}
	return names
}

// clone returns a deep copy whose assignments share no backing storage
// with the receiver.
func (e Environment) clone() Environment {
	return Environment{assignments: append([]Assignment(nil), e.assignments...)}
}

// Without returns a copy of the environment with name removed.
func (e Environment) Without(name string) Environment {
	var out Environment
	for _, a := range e.assignments {
		if a.Name != name {
			out.assignments = append(out.assignments, a)
		}
	}
	return out
}

// concat returns a new environment holding e's assignments followed by
// other's. The caller guarantees disjoint names.
func (e Environment) concat(other Environment) Environment {
	out := Environment{assignments: make([]Assignment, 0, len(e.assignments)+len(other.assignments))}
	out.assignments = append(out.assignments, e.assignments...)
	out.assignments = append(out.assignments, other.assignments...)
	return out
}

// key returns a canonical string identity for the environment, used for
// multiset comparison and duplicate detection. Assignment order does not
// matter for identity, only the name/value pairs.
func (e Environment) key() string {
	pairs := make([]string, len(e.assignments))
	for i, a := range e.assignments {
		pairs[i] = a.Name + "\x00" + a.Value
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\x01")
}

// Equal reports whether two environments hold the same name/value pairs,
// ignoring assignment order.
func (e Environment) Equal(other Environment) bool {
	return len(e.assignments) == len(other.assignments) && e.key() == other.key()
}

// Serialize renders the environment as env-file text: one NAME=value line
// per assignment, in order, no quoting.
func (e Environment) Serialize() string {
	var b strings.Builder
	for _, a := range e.assignments {
		fmt.Fprintf(&b, "%s=%s\n", a.Name, a.Value)
	}
	return b.String()
}

// ParseEnvironment parses env-file text into an environment. Values follow
// dotenv conventions (godotenv handles quoting and comments); assignment
// order follows first appearance of each name in the file.
func ParseEnvironment(text string) (Environment, error) {
	values, err := godotenv.Unmarshal(text)
	if err != nil {
		return Environment{}, storeError("parse environment file", err)
	}

	var env Environment
	for _, name := range namesInOrder(text) {
		if val, ok := values[name]; ok && !env.Has(name) {
			env.Set(name, val)
		}
	}
	// godotenv may accept forms the order scan missed; append those in
	// sorted order so nothing is silently dropped.
	if env.Len() != len(values) {
		rest := make([]string, 0, len(values))
		for name := range values {
			if !env.Has(name) {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		for _, name := range rest {
			env.Set(name, values[name])
		}
	}
	return env, nil
}

// namesInOrder scans raw env-file text for variable names in line order.
func namesInOrder(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		names = append(names, strings.TrimSpace(line[:eq]))
	}
	return names
}
