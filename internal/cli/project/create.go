package project

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	projectservice "github.com/thenoetrevino/collabflow/internal/services/project"
)

// CreateCmd returns the project create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new project",
		Long: `Create a new project. You are recorded as its creator and first member.

Examples:
  # Human-readable output
  collabflow project create --name="Mobile App"

  # With a schedule and members
  collabflow project create --name="Q3 Launch" --start=2025-07-01 --end="+90d" --members=bob,carol

  # Quiet mode for bash capture
  PROJECT_ID=$(collabflow project create --name="Backend" --quiet)
`,
		RunE: runCreate,
	}

	// Required flags
	cmd.Flags().String("name", "", "Project name (required)")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("description", "", "Project description (use - for stdin)")
	cmd.Flags().String("start", "", "Start date")
	cmd.Flags().String("end", "", "End date")
	cmd.Flags().String("members", "", "Comma separated member ids")

	cli.AddOutputFlags(cmd)

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	members, _ := cmd.Flags().GetString("members")

	description, err := cli.ReadText(description, cmd.InOrStdin())
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

	req := projectservice.CreateProjectRequest{
		Name:        name,
		Description: description,
		Members:     cli.SplitList(members),
	}
	if req.StartDate, err = dateFlag(cmd, "start", cliInstance.App.Now()); err != nil {
		return cli.FailWithSuggestion(formatter, err, `Try "2025-07-01", "+30d" or "next monday"`)
	}
	if req.EndDate, err = dateFlag(cmd, "end", cliInstance.App.Now()); err != nil {
		return cli.FailWithSuggestion(formatter, err, `Try "2025-09-30", "+90d" or "end of month"`)
	}

	project, err := cliInstance.App.ProjectService.CreateProject(ctx, req)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(project, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Project '%s' created successfully (ID: %s)\n", project.Name, project.ID)
		fmt.Fprintf(w, "  Members: %s\n", strings.Join(project.Members, ", "))
		if project.StartDate != nil || project.EndDate != nil {
			fmt.Fprintf(w, "  Schedule: %s\n", schedule(project.StartDate, project.EndDate))
		}
		return nil
	})
}

// dateFlag parses an optional date flag; unset flags give nil.
func dateFlag(cmd *cobra.Command, name string, now time.Time) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := cli.ParseDate(raw, now)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func schedule(start, end *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "?"
		}
		return t.Local().Format("Jan 2 2006")
	}
	return format(start) + " → " + format(end)
}
