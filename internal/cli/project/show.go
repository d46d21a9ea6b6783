package project

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/cli/styles"
)

// ShowCmd returns the project show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a project",
		Long:  "Show a project. The project comes from --project or $" + cli.ProjectEnv + ".",
		RunE:  runShow,
	}

	cli.AddProjectFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	projectID, err := cli.ProjectID(cmd)
	if err != nil {
		return cli.Fail(formatter, err)
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

	project, err := cliInstance.App.ProjectService.GetProject(ctx, projectID)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(project, func(w io.Writer) error {
		var b strings.Builder
		b.WriteString(styles.TitleStyle.Render(project.Name) + "\n")
		b.WriteString(styles.SubtitleStyle.Render(project.ID) + "\n\n")
		field := func(label, value string) {
			b.WriteString(styles.LabelStyle.Render(label+": ") + styles.ValueStyle.Render(value) + "\n")
		}
		field("Members", strings.Join(project.Members, ", "))
		field("Created by", project.CreatedBy)
		if project.StartDate != nil || project.EndDate != nil {
			field("Schedule", schedule(project.StartDate, project.EndDate))
		}
		b.WriteString("\n" + styles.RenderDescription(project.Description, styles.CardWidth-4))
		_, err := fmt.Fprintln(w, styles.RenderCard(b.String()))
		return err
	})
}
