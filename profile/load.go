package profile

// This file contains the YAML loader for user-supplied profile overlay
// files.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a profile overlay.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile parses a YAML profile overlay. The returned profiles are
// validated for a name and a non-empty build sequence by Merge, not
// here.
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	return f.Profiles, nil
}
