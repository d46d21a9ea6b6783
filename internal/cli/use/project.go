package use

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// ProjectCmd returns the use project subcommand
func ProjectCmd() *cobra.Command {
	return target{
		kind: "project",
		env:  cli.ProjectEnv,
		describe: func(ctx context.Context, c *cli.CLI, id string) (string, error) {
			p, err := c.App.ProjectService.GetProject(ctx, id)
			if err != nil {
				return "", err
			}
			return p.Name, nil
		},
	}.command()
}
