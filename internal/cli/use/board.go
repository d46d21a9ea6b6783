package use

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// BoardCmd returns the use board subcommand
func BoardCmd() *cobra.Command {
	return target{
		kind: "board",
		env:  cli.BoardEnv,
		describe: func(ctx context.Context, c *cli.CLI, id string) (string, error) {
			b, err := c.App.BoardService.Open(ctx, id)
			if err != nil {
				return "", err
			}
			return b.Title, nil
		},
	}.command()
}
