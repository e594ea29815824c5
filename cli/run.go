package cli

// This file contains the run command: the standalone workload entry
// point that executes one clone/build/stat sequence and appends the
// result to the report.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/fsbench/fsbench/profile"
	"github.com/fsbench/fsbench/report"
	"github.com/fsbench/fsbench/workload"
)

func (a *App) run(ctx *cli.Context) error {
	output := ctx.String("output")

	if ctx.Bool("header-only") {
		if err := report.WriteHeader(output); err != nil {
			return cli.Exit(err.Error(), exitConfig)
		}
		a.logger.Info().Str("output", output).Msg("Report header written")
		return nil
	}

	target := ctx.Args().First()
	if target == "" {
		return cli.Exit("target directory required: fsbench run <targetDir>", exitConfig)
	}
	if ctx.Args().Len() > 1 {
		return cli.Exit("exactly one target directory expected", exitConfig)
	}

	// Not flagged Required upstream: header-only mode above has no use
	// for a project.
	project := ctx.String("project")
	if project == "" {
		return cli.Exit("required flag --project not set (see 'fsbench projects')", exitConfig)
	}

	reg, err := a.loadRegistry(ctx.String("profiles"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	prof, err := reg.Lookup(project)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%v (supported: %v)", err, reg.Names()), exitConfig)
	}

	// An operator interrupt cancels the in-flight subprocess instead of
	// leaving it running.
	sigCtx, stop := signal.NotifyContext(ctx.Context, unix.SIGINT, unix.SIGTERM)
	defer stop()

	runner := workload.NewRunner(a.logger, workload.Options{
		Backend:    ctx.String("backend"),
		BestEffort: ctx.Bool("best-effort"),
		LogDir:     ctx.String("log-dir"),
	})
	res, runErr := runner.Run(sigCtx, prof, target)

	if err := report.Append(output, res); err != nil {
		return cli.Exit(fmt.Sprintf("report path unwritable: %v", err), exitConfig)
	}

	// Echo the full result for humans and pipelines alike.
	if data, err := json.MarshalIndent(res, "", "  "); err == nil {
		fmt.Fprintln(os.Stdout, string(data))
	}

	return exitCode(runErr)
}

// exitCode maps phase failures to their distinct exit codes.
func exitCode(err error) error {
	if err == nil {
		return nil
	}

	var cloneErr *workload.CloneError
	if errors.As(err, &cloneErr) {
		return cli.Exit(err.Error(), exitClone)
	}

	var buildErr *workload.BuildError
	if errors.As(err, &buildErr) {
		return cli.Exit(err.Error(), exitBuild)
	}

	var statErr *workload.StatError
	if errors.As(err, &statErr) {
		return cli.Exit(err.Error(), exitStat)
	}

	return cli.Exit(err.Error(), exitConfig)
}

// loadRegistry returns the builtin registry, with the overlay file
// merged over it when given.
func (a *App) loadRegistry(overlayPath string) (*profile.Registry, error) {
	reg := profile.Builtin()
	if overlayPath == "" {
		return reg, nil
	}

	profiles, err := profile.LoadFile(overlayPath)
	if err != nil {
		return nil, err
	}
	if err := reg.Merge(profiles); err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("path", overlayPath).
		Int("profiles", len(profiles)).
		Msg("Merged profile overlay")
	return reg, nil
}
