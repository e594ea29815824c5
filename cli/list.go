package cli

// This file contains the list command for displaying recorded benchmark
// runs.

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fsbench/fsbench/history"
)

func (a *App) list(ctx *cli.Context) error {
	filterProject := ctx.String("project")
	limit := ctx.Int("limit")

	root, err := history.Root(ctx.String("log-dir"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	entries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var filtered []history.Entry
	for _, entry := range entries {
		if filterProject == "" || entry.Result.Project == filterProject {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterProject != "" {
			fmt.Printf("No runs found for project: %s\n", filterProject)
		} else {
			fmt.Println("No runs found")
		}
		return nil
	}

	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Printf("\n=== Runs (%d total) ===\n\n", len(filtered))

	for _, entry := range display {
		res := entry.Result
		timestamp := res.Timestamp.Format("2006-01-02 15:04:05")
		duration := res.Duration.Round(time.Millisecond)

		status := "✓"
		if !res.OK {
			status = "✗"
		}

		shortID := res.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%s]  %s  id=%s\n", status, timestamp, duration, res.Project, shortID)
		if res.Backend != "" {
			fmt.Printf("   Backend: %s\n", res.Backend)
		}
		fmt.Printf("   Files: %d (%d bytes)\n", res.FileCount, res.TotalBytes)
		if res.Tainted {
			fmt.Printf("   Tainted: filesystem session anomaly\n")
		}
		if res.Error != "" {
			fmt.Printf("   Error: %s\n", res.Error)
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Println("\nView phase output: cat <path>/build.log")

	return nil
}
