// Package bench sequences workload runs across filesystem backends. One
// (backend, project) pair runs to completion, including filesystem
// teardown, before the next begins; no two runs ever share a target
// directory or a live filesystem session.
package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fsbench/fsbench/fssession"
	"github.com/fsbench/fsbench/model"
	"github.com/fsbench/fsbench/profile"
	"github.com/fsbench/fsbench/report"
	"github.com/fsbench/fsbench/workload"
)

// Backend identifies one filesystem to benchmark. An empty Binary means
// the target directory's native disk, with no session to manage.
type Backend struct {
	// Label recorded in the report (e.g. "disk", "myfs")
	Name string `yaml:"name"`
	// Filesystem executable; empty for plain disk
	Binary string `yaml:"binary,omitempty"`
	// Configuration file passed through to the binary unmodified
	ConfigPath string `yaml:"config,omitempty"`
}

// Config is the full benchmark matrix. All process-wide state (target
// directory, output path, log naming) is explicit configuration, never
// derived from ambient environment.
type Config struct {
	// Backends to benchmark, in order
	Backends []Backend `yaml:"backends"`
	// Projects to run against each backend, in order
	Projects []string `yaml:"projects"`
	// TargetDir is recreated empty before and removed after every run
	TargetDir string `yaml:"target_dir"`
	// Output is the shared report CSV path
	Output string `yaml:"output"`
	// LogDir receives per-run diagnostics and filesystem logs
	LogDir string `yaml:"log_dir,omitempty"`
	// BestEffort runs the stat phase even after a failed build
	BestEffort bool `yaml:"best_effort,omitempty"`
	// ReadyTimeout bounds the filesystem readiness poll
	ReadyTimeout time.Duration `yaml:"ready_timeout,omitempty"`
	// Drain bounds the graceful-shutdown wait
	Drain time.Duration `yaml:"drain,omitempty"`
}

func (c *Config) validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("no backends configured")
	}
	if len(c.Projects) == 0 {
		return fmt.Errorf("no projects configured")
	}
	if c.TargetDir == "" {
		return fmt.Errorf("target directory not configured")
	}
	if c.Output == "" {
		return fmt.Errorf("output path not configured")
	}
	for _, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("backend with empty name")
		}
	}
	return nil
}

// Orchestrator drives the benchmark matrix strictly sequentially.
type Orchestrator struct {
	logger   zerolog.Logger
	cfg      Config
	registry *profile.Registry
}

func New(logger zerolog.Logger, cfg Config, registry *profile.Registry) *Orchestrator {
	return &Orchestrator{logger: logger, cfg: cfg, registry: registry}
}

// Run executes every (backend, project) pair. Pair-local failures
// (clone, build, stat, session) are recorded in the report and the
// sequence continues; only configuration errors and an unwritable
// report abort the whole run. On context cancellation any live session
// is still stopped before returning, so no background process leaks.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.cfg.validate(); err != nil {
		return err
	}

	// Resolve every project up front: a bad identifier is fatal before
	// any phase starts.
	profiles := make([]profile.Profile, 0, len(o.cfg.Projects))
	for _, name := range o.cfg.Projects {
		prof, err := o.registry.Lookup(name)
		if err != nil {
			return err
		}
		profiles = append(profiles, prof)
	}

	if o.cfg.LogDir != "" {
		if err := os.MkdirAll(o.cfg.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	var failed int
	total := len(o.cfg.Backends) * len(profiles)

	for _, backend := range o.cfg.Backends {
		for _, prof := range profiles {
			if err := ctx.Err(); err != nil {
				return err
			}

			o.logger.Info().
				Str("backend", backend.Name).
				Str("project", prof.Name).
				Msg("Starting benchmark pair")

			if err := o.runPair(ctx, backend, prof); err != nil {
				if fatal(err) {
					return err
				}
				failed++
				o.logger.Error().Err(err).
					Str("backend", backend.Name).
					Str("project", prof.Name).
					Msg("Benchmark pair failed")
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d benchmark runs failed", failed, total)
	}

	o.logger.Info().Int("runs", total).Str("report", o.cfg.Output).Msg("Benchmark complete")
	return nil
}

// runPair executes one (backend, project) run: clean target, optional
// session start, workload, session stop, report append, target removal.
func (o *Orchestrator) runPair(ctx context.Context, backend Backend, prof profile.Profile) error {
	// Every run starts from a clean, empty tree so the prior run's
	// files cannot contaminate stat counts or on-disk state.
	if err := os.RemoveAll(o.cfg.TargetDir); err != nil {
		return &reportError{fmt.Errorf("clean target dir: %w", err)}
	}
	if err := os.MkdirAll(o.cfg.TargetDir, 0o755); err != nil {
		return &reportError{fmt.Errorf("create target dir: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(o.cfg.TargetDir); err != nil {
			o.logger.Warn().Err(err).Str("dir", o.cfg.TargetDir).Msg("Failed to remove target dir")
		}
	}()

	var sess *fssession.Session
	if backend.Binary != "" {
		var err error
		sess, err = fssession.Start(o.logger, fssession.Config{
			Binary:       backend.Binary,
			ConfigPath:   backend.ConfigPath,
			MountDir:     o.cfg.TargetDir,
			LogDir:       o.cfg.LogDir,
			ReadyTimeout: o.cfg.ReadyTimeout,
			Drain:        o.cfg.Drain,
		})
		if err != nil {
			// No workload ran, but the pair must still be visible in
			// the aggregate report as a failed row.
			res := &model.Result{
				ID:        uuid.NewString(),
				Project:   prof.Name,
				TargetDir: o.cfg.TargetDir,
				Backend:   backend.Name,
				Timestamp: time.Now(),
				Tainted:   true,
				Error:     err.Error(),
			}
			if aerr := report.Append(o.cfg.Output, res); aerr != nil {
				return &reportError{aerr}
			}
			return err
		}
		sess.Begin()
	}

	runner := workload.NewRunner(o.logger, workload.Options{
		Backend:    backend.Name,
		BestEffort: o.cfg.BestEffort,
		LogDir:     o.cfg.LogDir,
	})
	res, runErr := runner.Run(ctx, prof, o.cfg.TargetDir)

	// Stop the session before reporting so a drain anomaly taints the
	// row. This runs even when the workload was cancelled.
	if sess != nil {
		if err := sess.Stop(); err != nil {
			o.logger.Error().Err(err).Msg("Filesystem session anomaly")
			res.Tainted = true
			if runErr == nil {
				runErr = err
			}
		}
	}

	if err := report.Append(o.cfg.Output, res); err != nil {
		return &reportError{err}
	}

	return runErr
}

// reportError marks failures that must abort the whole orchestration
// (unwritable output, unusable target directory).
type reportError struct {
	err error
}

func (e *reportError) Error() string { return e.err.Error() }
func (e *reportError) Unwrap() error { return e.err }

func fatal(err error) bool {
	var re *reportError
	if errors.As(err, &re) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
