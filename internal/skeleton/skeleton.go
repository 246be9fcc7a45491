// Package skeleton scaffolds a fresh experiment source directory.
package skeleton

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labrat-sci/labrat/internal/series"
)

//go:embed run.sh
var defaultRunScript []byte

// Create scaffolds a new experiment source at dir: marker file, an empty
// starter environment, a runnable template and a manifest. A template
// directory in the user's config dir (labrat/template) takes precedence
// over the built-in run script. Create refuses to touch a path that
// already exists.
func Create(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%s already exists", dir)
	} else if !os.IsNotExist(err) {
		return err
	}

	templateDir := filepath.Join(dir, series.SourceTemplateDir)
	if err := os.MkdirAll(templateDir, 0o755); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	if err := os.Mkdir(filepath.Join(dir, series.SourceEnvDir), 0o755); err != nil {
		return fmt.Errorf("create environment directory: %w", err)
	}

	if user := userTemplateDir(); user != "" {
		if err := series.CopyTree(user, templateDir); err != nil {
			return fmt.Errorf("copy user template: %w", err)
		}
	} else {
		script := filepath.Join(templateDir, series.SourceRunFile)
		if err := os.WriteFile(script, defaultRunScript, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", script, err)
		}
	}

	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(dir, series.MarkerSource), nil},
		{filepath.Join(dir, series.SourceEnvDir, "0.env"), nil},
		{filepath.Join(dir, series.SourceManifest), manifestFor(filepath.Base(dir))},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return nil
}

// userTemplateDir returns the user's template override directory, or ""
// when none exists.
func userTemplateDir() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(cfg, "labrat", series.SourceTemplateDir)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

func manifestFor(name string) []byte {
	return []byte(fmt.Sprintf("name: %s\nrepetitions: 1\n", name))
}
