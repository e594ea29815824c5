package bench

// This file contains the YAML loader for benchmark matrix files.

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of a matrix file. Durations are
// time.ParseDuration strings ("30s", "2m").
type fileConfig struct {
	Backends     []Backend `yaml:"backends"`
	Projects     []string  `yaml:"projects"`
	TargetDir    string    `yaml:"target_dir"`
	Output       string    `yaml:"output"`
	LogDir       string    `yaml:"log_dir"`
	BestEffort   bool      `yaml:"best_effort"`
	ReadyTimeout string    `yaml:"ready_timeout"`
	Drain        string    `yaml:"drain"`
}

// LoadConfig parses a YAML benchmark matrix.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Config{
		Backends:   fc.Backends,
		Projects:   fc.Projects,
		TargetDir:  fc.TargetDir,
		Output:     fc.Output,
		LogDir:     fc.LogDir,
		BestEffort: fc.BestEffort,
	}

	if cfg.ReadyTimeout, err = parseDuration(fc.ReadyTimeout); err != nil {
		return Config{}, fmt.Errorf("config %s: ready_timeout: %w", path, err)
	}
	if cfg.Drain, err = parseDuration(fc.Drain); err != nil {
		return Config{}, fmt.Errorf("config %s: drain: %w", path, err)
	}

	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
