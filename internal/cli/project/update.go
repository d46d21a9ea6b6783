package project

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	projectservice "github.com/thenoetrevino/collabflow/internal/services/project"
)

// UpdateCmd returns the project update subcommand
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a project",
		Long: `Update project fields. Only the flags given are changed.

Examples:
  collabflow project update --project=<id> --name="Mobile App v2"
  collabflow project update --members=alice,bob,carol
`,
		RunE: runUpdate,
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("description", "", "New description (use - for stdin)")
	cmd.Flags().String("start", "", "New start date")
	cmd.Flags().String("end", "", "New end date")
	cmd.Flags().String("members", "", "Replace the member list (comma separated)")

	cli.AddProjectFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	projectID, err := cli.ProjectID(cmd)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	changed := false
	for _, name := range []string{"name", "description", "start", "end", "members"} {
		changed = changed || cmd.Flags().Changed(name)
	}
	if !changed {
		return cli.Usage(formatter, "at least one of --name, --description, --start, --end or --members must be specified")
	}

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	// Resolve first so a missing project reports NOT_FOUND
	if _, err := cliInstance.App.ProjectService.GetProject(ctx, projectID); err != nil {
		return cli.Fail(formatter, err)
	}

	req := projectservice.UpdateProjectRequest{ID: projectID}
	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		req.Name = &name
	}
	if cmd.Flags().Changed("description") {
		description, _ := cmd.Flags().GetString("description")
		if description, err = cli.ReadText(description, cmd.InOrStdin()); err != nil {
			return cli.Fail(formatter, err)
		}
		req.Description = &description
	}
	if cmd.Flags().Changed("members") {
		members, _ := cmd.Flags().GetString("members")
		list := cli.SplitList(members)
		req.Members = &list
	}
	if req.StartDate, err = dateFlag(cmd, "start", cliInstance.App.Now()); err != nil {
		return cli.Fail(formatter, err)
	}
	if req.EndDate, err = dateFlag(cmd, "end", cliInstance.App.Now()); err != nil {
		return cli.Fail(formatter, err)
	}

	if err := cliInstance.App.ProjectService.UpdateProject(ctx, req); err != nil {
		return cli.Fail(formatter, err)
	}

	project, err := cliInstance.App.ProjectService.GetProject(ctx, projectID)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(project, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Project '%s' updated successfully (ID: %s)\n", project.Name, project.ID)
		return nil
	})
}
