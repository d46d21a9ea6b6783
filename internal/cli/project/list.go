package project

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// ListCmd returns the project list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the projects you are a member of",
		RunE:  runList,
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	projects, err := cliInstance.App.ProjectService.FetchProjects(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	if formatter.Quiet {
		for _, p := range projects {
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		}
		return nil
	}

	return formatter.Success(projects, func(w io.Writer) error {
		if len(projects) == 0 {
			fmt.Fprintln(w, "No projects found")
			return nil
		}
		fmt.Fprintf(w, "Found %d project(s):\n\n", len(projects))
		for _, p := range projects {
			fmt.Fprintf(w, "  %s  %s  (%d members)\n", p.ID, p.Name, len(p.Members))
		}
		return nil
	})
}
