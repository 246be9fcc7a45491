package series

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional experiment.yaml at the experiment source root.
// All fields are defaults; command-line flags win.
type Manifest struct {
	// Name labels the experiment. Defaults to the source directory's
	// base name when empty.
	Name string `yaml:"name"`

	// Script is an environment script evaluated instead of envs/*.env
	// when set, relative to the source root.
	Script string `yaml:"script"`

	// Repetitions is the default repetition count per environment.
	Repetitions int `yaml:"repetitions"`
}

// LoadManifest reads experiment.yaml from the experiment source at dir.
// A missing manifest is not an error; defaults are returned.
func LoadManifest(dir string) (Manifest, error) {
	m := Manifest{Name: filepath.Base(dir), Repetitions: 1}
	raw, err := os.ReadFile(filepath.Join(dir, SourceManifest))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("read %s: %w", SourceManifest, err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", SourceManifest, err)
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	if m.Repetitions < 1 {
		m.Repetitions = 1
	}
	return m, nil
}
