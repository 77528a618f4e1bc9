// Package config loads flux.yaml, the project configuration file: default
// module roots and error-count limits that CLI flags may override.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file's expected name.
const FileName = "flux.yaml"

// markers are the files/directories findProjectRoot looks for while walking
// up from the starting directory.
var markers = []string{FileName, ".flux", "go.mod"}

// Config is flux.yaml's shape. Either field may be absent, in which case
// the CLI's own defaults apply.
type Config struct {
	Roots     []string `yaml:"roots"`
	MaxErrors int      `yaml:"max_errors"`
}

// Load reads and parses path. A missing file is not an error: it returns a
// zero Config so callers fall back to their own defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// FindProjectRoot walks up from start looking for one of flux.yaml, .flux,
// or go.mod, returning the first directory that has one. It returns start
// unchanged if no marker is found before reaching the filesystem root.
func FindProjectRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// LoadFromProjectRoot finds the project root from start and loads its
// flux.yaml, if any.
func LoadFromProjectRoot(start string) (Config, string, error) {
	root := FindProjectRoot(start)
	cfg, err := Load(filepath.Join(root, FileName))
	return cfg, root, err
}
