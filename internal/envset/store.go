package envset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// envFileSuffix is the extension shared by every stored environment file.
const envFileSuffix = ".env"

// Store persists an environment set as a directory of numbered .env files.
// File names are zero-padded so that lexical and numeric sort agree; the
// padding width is the digit count of count-1 (minimum 1).
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory must already exist.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's directory.
func (st *Store) Dir() string { return st.dir }

// Files returns the paths of all .env files in the store, sorted by file
// name. An empty slice means an empty store.
func (st *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, storeError("read environment directory", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), envFileSuffix) {
			files = append(files, filepath.Join(st.dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load reads the materialized environment set, ordered by file name.
func (st *Store) Load() (Set, error) {
	files, err := st.Files()
	if err != nil {
		return Set{}, err
	}
	envs := make([]Environment, 0, len(files))
	for _, file := range files {
		text, err := os.ReadFile(file)
		if err != nil {
			return Set{}, storeError("read environment file", err)
		}
		env, err := ParseEnvironment(string(text))
		if err != nil {
			return Set{}, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		envs = append(envs, env)
	}
	return Set{envs: envs}, nil
}

// IndexWidth returns the zero-padding width for count items: the digit
// count of count-1, minimum 1.
func IndexWidth(count int) int {
	if count <= 1 {
		return 1
	}
	return len(fmt.Sprint(count - 1))
}

// FileName returns the store file name for position index out of count.
func FileName(index, count int) string {
	return fmt.Sprintf("%0*d%s", IndexWidth(count), index, envFileSuffix)
}

// Write replaces the store's content with the given set. All existing .env
// files are deleted first, so the file count always reflects the new total
// and stale files never survive a shrink.
func (st *Store) Write(set Set) error {
	files, err := st.Files()
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return storeError("delete stale environment file", err)
		}
	}
	for i, env := range set.Environments() {
		path := filepath.Join(st.dir, FileName(i, set.Len()))
		if err := os.WriteFile(path, []byte(env.Serialize()), 0o644); err != nil {
			return storeError("write environment file", err)
		}
	}
	return nil
}

// Add introduces a new variable with the given values: the existing set is
// crossed with FromList(name, values) and the store rewritten. Fails with
// DUPLICATE_VARIABLE, leaving the store untouched, if any environment
// already assigns name.
func (st *Store) Add(name string, values []string) error {
	if len(values) == 0 {
		return newError(ErrCodeEmptySet, "add requires at least one value", name)
	}
	branch, err := FromList(name, values)
	if err != nil {
		return err
	}
	existing, err := st.Load()
	if err != nil {
		return err
	}
	if existing.HasVariable(name) {
		return newError(ErrCodeDuplicateVariable, "variable is already defined", name)
	}

	result := branch
	if existing.Len() > 0 {
		result, err = Cross(existing, branch)
		if err != nil {
			return err
		}
	}
	return st.Write(result)
}

// Append extends the value range of an existing variable. The existing
// environments are kept untouched; for each new value, one new environment
// per distinct projection of the existing set onto the other variables is
// appended (never interleaved).
func (st *Store) Append(name string, values []string) error {
	if len(values) == 0 {
		return newError(ErrCodeEmptySet, "append requires at least one value", name)
	}
	existing, err := st.Load()
	if err != nil {
		return err
	}
	if !existing.HasVariable(name) {
		return newError(ErrCodeUnknownVariable, "variable is not defined yet", name)
	}

	// distinct projections onto the remaining variables, in first-occurrence
	// order, so new branches mirror the existing layout
	var bases []Environment
	seen := map[string]bool{}
	for _, env := range existing.Environments() {
		base := env.Without(name)
		if !seen[base.key()] {
			seen[base.key()] = true
			bases = append(bases, base)
		}
	}

	result := existing.Environments()
	for _, value := range values {
		for _, base := range bases {
			// clone before mutating: all branches for one base project
			// from the same environment and must not share storage
			env := base.clone()
			env.Set(name, value)
			result = append(result, env)
		}
	}
	return st.Write(Set{envs: result})
}

// Remove narrows the set. With no values, the variable is deleted from
// every environment; duplicate environments that result are kept, since
// duplicate runs are cheap and deduplication is not promised. With values,
// only environments assigning one of those values to name are dropped.
func (st *Store) Remove(name string, values []string) error {
	existing, err := st.Load()
	if err != nil {
		return err
	}
	if !existing.HasVariable(name) {
		return newError(ErrCodeUnknownVariable, "variable is not defined", name)
	}

	if len(values) == 0 {
		narrowed := make([]Environment, existing.Len())
		for i, env := range existing.Environments() {
			narrowed[i] = env.Without(name)
		}
		return st.Write(Set{envs: narrowed})
	}

	for _, value := range values {
		found := false
		for _, env := range existing.Environments() {
			if got, ok := env.Get(name); ok && got == value {
				found = true
				break
			}
		}
		if !found {
			return newError(ErrCodeUnknownValue,
				fmt.Sprintf("no environment assigns %s=%s", name, value), name)
		}
	}

	drop := map[string]bool{}
	for _, value := range values {
		drop[value] = true
	}
	var kept []Environment
	for _, env := range existing.Environments() {
		if got, ok := env.Get(name); ok && drop[got] {
			continue
		}
		kept = append(kept, env)
	}
	return st.Write(Set{envs: kept})
}
