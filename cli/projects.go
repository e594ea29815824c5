package cli

// This file contains the projects command for displaying the supported
// project profiles.

import (
	"fmt"

	"al.essio.dev/pkg/shellescape"
	"github.com/urfave/cli/v2"
)

func (a *App) projects(ctx *cli.Context) error {
	reg, err := a.loadRegistry(ctx.String("profiles"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	for _, name := range reg.Names() {
		prof, err := reg.Lookup(name)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", name)
		fmt.Printf("   Repo: %s\n", prof.Repo)
		if prof.Ref != "" {
			fmt.Printf("   Ref: %s\n", prof.Ref)
		}
		for i, c := range prof.Commands {
			dir := ""
			if c.Dir != "" {
				dir = fmt.Sprintf(" (in %s)", c.Dir)
			}
			fmt.Printf("   Build %d: %s%s\n", i+1, shellescape.QuoteCommand(c.Argv), dir)
		}
		if prof.Marker != "" {
			fmt.Printf("   Artifact: %s\n", prof.Marker)
		}
		fmt.Println()
	}

	return nil
}
