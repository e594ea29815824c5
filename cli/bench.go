package cli

// This file contains the bench command: the orchestrator that sequences
// workload runs across filesystem backends.

import (
	"fmt"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/fsbench/fsbench/bench"
)

func (a *App) bench(ctx *cli.Context) error {
	var cfg bench.Config
	if path := ctx.String("config"); path != "" {
		var err error
		cfg, err = bench.LoadConfig(path)
		if err != nil {
			return cli.Exit(err.Error(), exitConfig)
		}
	}

	// Flags override the config file.
	for _, spec := range ctx.StringSlice("backend") {
		backend, err := parseBackend(spec)
		if err != nil {
			return cli.Exit(err.Error(), exitConfig)
		}
		cfg.Backends = append(cfg.Backends, backend)
	}
	if projects := ctx.StringSlice("project"); len(projects) > 0 {
		cfg.Projects = append(cfg.Projects, projects...)
	}
	if ctx.IsSet("target-dir") || cfg.TargetDir == "" {
		cfg.TargetDir = ctx.String("target-dir")
	}
	if ctx.IsSet("log-dir") || cfg.LogDir == "" {
		cfg.LogDir = ctx.String("log-dir")
	}
	if ctx.IsSet("best-effort") {
		cfg.BestEffort = ctx.Bool("best-effort")
	}
	if ctx.IsSet("ready-timeout") || cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = ctx.Duration("ready-timeout")
	}
	if ctx.IsSet("drain") || cfg.Drain == 0 {
		cfg.Drain = ctx.Duration("drain")
	}
	if out := ctx.String("output"); out != "" {
		cfg.Output = out
	}
	if cfg.Output == "" {
		// One shared, timestamped report per invocation.
		cfg.Output = fmt.Sprintf("results-%s.csv", time.Now().Format("20060102-150405"))
	}

	reg, err := a.loadRegistry(ctx.String("profiles"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	// Stopping any live filesystem session on operator interrupt is the
	// orchestrator's job; the signal context cancels the workload and
	// the session teardown still runs.
	sigCtx, stop := signal.NotifyContext(ctx.Context, unix.SIGINT, unix.SIGTERM)
	defer stop()

	if err := bench.New(a.logger, cfg, reg).Run(sigCtx); err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	return nil
}

// parseBackend parses NAME or NAME=BINARY:CONFIGPATH.
func parseBackend(spec string) (bench.Backend, error) {
	name, rest, found := strings.Cut(spec, "=")
	if name == "" {
		return bench.Backend{}, fmt.Errorf("invalid backend %q: empty name", spec)
	}
	if !found {
		return bench.Backend{Name: name}, nil
	}

	binary, configPath, _ := strings.Cut(rest, ":")
	if binary == "" {
		return bench.Backend{}, fmt.Errorf("invalid backend %q: empty binary", spec)
	}
	return bench.Backend{Name: name, Binary: binary, ConfigPath: configPath}, nil
}
