package use

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// target describes one kind of shell context.
type target struct {
	kind string
	env  string
	// describe returns a display name for id, failing when it does not exist.
	describe func(ctx context.Context, c *cli.CLI, id string) (string, error)
}

func (tg target) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   tg.kind + " [" + tg.kind + "-id]",
		Short: "Set " + tg.kind + " context for current shell session",
		Long: fmt.Sprintf(`Set the current %[1]s context using environment variables.
This command outputs shell commands that should be evaluated:

  eval $(collabflow use %[1]s <id>)        # Use a %[1]s
  eval $(collabflow use %[1]s --clear)     # Clear %[1]s context
  collabflow use %[1]s --show              # Show current %[1]s

The %[2]s environment variable will be set in your current shell
session only. The --%[1]s flag on other commands takes precedence over
this environment variable.`, tg.kind, tg.env),
		Args: cobra.MaximumNArgs(1),
		RunE: tg.run,
	}

	cmd.Flags().Bool("clear", false, "Clear the current "+tg.kind+" context")
	cmd.Flags().Bool("show", false, "Show the current "+tg.kind+" context")
	cmd.Flags().Bool("dry-run", false, "Show what would be exported without outputting shell commands")

	return cmd
}

func (tg target) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	clearFlag, _ := cmd.Flags().GetBool("clear")
	showFlag, _ := cmd.Flags().GetBool("show")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	// Handle --show flag
	if showFlag {
		return tg.show(cmd)
	}

	// Handle --clear flag
	if clearFlag {
		if dryRun {
			fmt.Fprintf(stderr, "Would clear %s\n", tg.env)
			return nil
		}
		fmt.Fprintf(stdout, "unset %s\n", tg.env)
		fmt.Fprintf(stderr, "Cleared %s context\n", tg.kind)
		return nil
	}

	if len(args) == 0 {
		return cli.Usage(formatter, "%s ID required\nUsage: eval $(collabflow use %s <%s-id>)", tg.kind, tg.kind, tg.kind)
	}
	id := args[0]

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	name, err := tg.describe(ctx, cliInstance, id)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	// Output shell export command (to stdout for eval)
	if dryRun {
		fmt.Fprintf(stderr, "Would set %s=%s (%s)\n", tg.env, id, name)
		return nil
	}

	fmt.Fprintf(stdout, "export %s=%s\n", tg.env, id)
	fmt.Fprintf(stderr, "Now using %s %s: %s\n", tg.kind, id, name)
	return nil
}

func (tg target) show(cmd *cobra.Command) error {
	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()

	current := os.Getenv(tg.env)
	if current == "" {
		fmt.Fprintf(stdout, "No %s context set\n", tg.kind)
		fmt.Fprintf(stdout, "Use 'eval $(collabflow use %s <%s-id>)' to set one\n", tg.kind, tg.kind)
		return nil
	}

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return fmt.Errorf("initialization error: %w", err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	name, err := tg.describe(ctx, cliInstance, current)
	if err != nil {
		fmt.Fprintf(stdout, "Current %s: %s (%s not found)\n", tg.kind, current, tg.kind)
		return nil
	}

	fmt.Fprintf(stdout, "Current %s: %s (%s)\n", tg.kind, current, name)
	return nil
}
