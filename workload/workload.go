// Package workload executes one project's full phase sequence (clone,
// build, stat) inside a target directory, timing each phase
// independently.
package workload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fsbench/fsbench/model"
	"github.com/fsbench/fsbench/profile"
	"github.com/fsbench/fsbench/statwalk"
)

// CloneError indicates the clone phase failed: the repository was
// unreachable or the target directory was unusable. Never retried.
type CloneError struct {
	Err error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone failed: %v", e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

// BuildError indicates a build command exited non-zero or the expected
// build artifact was missing afterwards. Index is the position of the
// failing command in the profile's sequence, or -1 for the artifact
// check.
type BuildError struct {
	Index int
	Argv  []string
	Err   error
}

func (e *BuildError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("build failed: %v", e.Err)
	}
	return fmt.Sprintf("build command %d (%s) failed: %v",
		e.Index, shellescape.QuoteCommand(e.Argv), e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// StatError indicates the stat walk itself failed, as opposed to
// individual unreadable entries, which are only counted.
type StatError struct {
	Err error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("stat walk failed: %v", e.Err)
}

func (e *StatError) Unwrap() error { return e.Err }

// Options configures a Runner.
type Options struct {
	// Backend is the label recorded for the filesystem under test
	Backend string
	// BestEffort runs the stat phase even when the build failed, to
	// measure partial-build artifacts
	BestEffort bool
	// LogDir, when set, receives a per-run directory with phase output
	// and result metadata for post-hoc diagnosis
	LogDir string
}

// Runner executes workloads. It treats builds as opaque blocking
// subprocess invocations with a single exit code.
type Runner struct {
	logger zerolog.Logger
	opts   Options
}

func NewRunner(logger zerolog.Logger, opts Options) *Runner {
	return &Runner{logger: logger, opts: opts}
}

// Run executes the clone, build and stat phases for the given profile
// inside targetDir. The returned result is always populated with the
// timings of every attempted phase; the error describes the first phase
// failure (CloneError, BuildError or StatError) and is nil on full
// success. Phase failures never panic or abort the caller's sequence.
func (r *Runner) Run(ctx context.Context, prof profile.Profile, targetDir string) (*model.Result, error) {
	res := &model.Result{
		ID:        uuid.NewString(),
		Project:   prof.Name,
		TargetDir: targetDir,
		Backend:   r.opts.Backend,
		Timestamp: time.Now(),
	}

	rec, err := newRecorder(r.opts.LogDir, res)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Run recording disabled")
	}
	defer func() {
		res.Duration = time.Since(res.Timestamp)
		rec.finish(r.logger, res)
	}()

	logger := r.logger.With().
		Str("project", prof.Name).
		Str("target", targetDir).
		Logger()

	// Clone phase. The timing brackets only the clone itself; the
	// timer-to-subprocess distance is what downstream duration
	// comparisons rely on.
	start := time.Now()
	cloneErr := r.clone(ctx, logger, prof, targetDir, rec.phaseLog("clone"))
	res.Phases = append(res.Phases, timing(model.PhaseClone, start, cloneErr == nil))

	if cloneErr != nil {
		logger.Error().Err(cloneErr).Msg("Clone phase failed")
		err := &CloneError{Err: cloneErr}
		res.Error = err.Error()
		return res, err
	}
	logger.Info().
		Dur("elapsed", res.Phases[0].Elapsed).
		Msg("Clone phase complete")

	// Build phase.
	start = time.Now()
	buildErr := r.build(ctx, logger, prof, targetDir, rec.phaseLog("build"))
	res.Phases = append(res.Phases, timing(model.PhaseBuild, start, buildErr == nil))

	if buildErr != nil {
		logger.Error().Err(buildErr).Msg("Build phase failed")
		res.Error = buildErr.Error()
		if !r.opts.BestEffort {
			return res, buildErr
		}
		logger.Info().Msg("Continuing to stat phase (best effort)")
	} else {
		logger.Info().
			Dur("elapsed", res.Phases[1].Elapsed).
			Msg("Build phase complete")
	}

	// Stat phase. Runs only after a successful build unless best-effort
	// measurement was requested.
	start = time.Now()
	sum, walkErr := statwalk.Walk(targetDir)
	res.Phases = append(res.Phases, timing(model.PhaseStat, start, walkErr == nil))

	res.FileCount = len(sum.Files)
	res.DirCount = sum.Dirs
	res.TotalBytes = sum.TotalBytes
	res.WalkErrors = sum.Errors

	if walkErr != nil {
		logger.Error().Err(walkErr).Msg("Stat phase failed")
		err := &StatError{Err: walkErr}
		if res.Error == "" {
			res.Error = err.Error()
		}
		if buildErr != nil {
			return res, buildErr
		}
		return res, err
	}

	logger.Info().
		Int("files", res.FileCount).
		Int("dirs", res.DirCount).
		Int64("bytes", res.TotalBytes).
		Int("walk_errors", res.WalkErrors).
		Msg("Stat phase complete")

	if buildErr != nil {
		return res, buildErr
	}

	res.OK = true
	return res, nil
}

// clone materializes the project checkout inside targetDir, which must
// be an existing, empty, writable directory.
func (r *Runner) clone(ctx context.Context, logger zerolog.Logger, prof profile.Profile, targetDir string, out io.Writer) error {
	info, err := os.Stat(targetDir)
	if err != nil {
		return fmt.Errorf("target %s: %w", targetDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target %s is not a directory", targetDir)
	}

	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return fmt.Errorf("target %s: %w", targetDir, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("target %s is not empty", targetDir)
	}

	argv := prof.CloneArgv(prof.CheckoutDir(targetDir))
	logger.Debug().
		Str("command", shellescape.QuoteCommand(argv)).
		Msg("Starting clone")

	return runCommand(ctx, argv, targetDir, out)
}

// build runs the profile's commands sequentially in the checkout. A
// non-zero exit halts the sequence; commands after the failing one never
// execute.
func (r *Runner) build(ctx context.Context, logger zerolog.Logger, prof profile.Profile, targetDir string, out io.Writer) error {
	checkout := prof.CheckoutDir(targetDir)

	for i, c := range prof.Commands {
		dir := checkout
		if c.Dir != "" {
			dir = filepath.Join(checkout, c.Dir)
		}

		logger.Debug().
			Int("index", i).
			Str("command", shellescape.QuoteCommand(c.Argv)).
			Str("dir", dir).
			Msg("Running build command")

		if err := runCommand(ctx, c.Argv, dir, out); err != nil {
			return &BuildError{Index: i, Argv: c.Argv, Err: err}
		}
	}

	if prof.Marker != "" {
		marker := filepath.Join(checkout, prof.Marker)
		if _, err := os.Stat(marker); err != nil {
			return &BuildError{
				Index: -1,
				Err:   fmt.Errorf("expected build artifact %s not found", prof.Marker),
			}
		}
	}

	return nil
}

// runCommand executes one argv in dir, capturing combined output both
// for the run log and for the error message. Output is diagnostic only
// and never parsed.
func runCommand(ctx context.Context, argv []string, dir string, out io.Writer) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = io.MultiWriter(out, &buf)
	cmd.Stderr = io.MultiWriter(out, &buf)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("exit code %d: %s",
				exitErr.ExitCode(), tail(buf.String(), 512))
		}
		return err
	}
	return nil
}

func timing(phase model.Phase, start time.Time, ok bool) model.PhaseTiming {
	end := time.Now()
	return model.PhaseTiming{
		Phase:   phase,
		Start:   start,
		End:     end,
		Elapsed: end.Sub(start),
		OK:      ok,
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
