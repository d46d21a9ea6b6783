package notify

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/models"
)

// PrefsCmd returns the notify prefs subcommand
func PrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change notification preferences",
		Long: `Show your notification preferences, or change the ones given as flags.
Unchanged keys keep their stored value.

Examples:
  collabflow notify prefs
  collabflow notify prefs --sound=false --project=false
  collabflow notify prefs --task-priority=high --json
`,
		RunE: runPrefs,
	}

	cmd.Flags().Bool("sound", true, "Play a sound")
	cmd.Flags().Bool("desktop", true, "Show desktop notifications")
	cmd.Flags().Bool("email", false, "Send email copies")
	cmd.Flags().Bool("vibration", true, "Vibrate")
	cmd.Flags().Bool("badge", true, "Show an unread badge")
	cmd.Flags().Bool("task", true, "Receive task notifications")
	cmd.Flags().Bool("project", true, "Receive project notifications")
	cmd.Flags().Bool("system", true, "Receive system notifications")
	cmd.Flags().String("task-priority", "", "Priority of task notifications (high, normal, low)")
	cmd.Flags().String("project-priority", "", "Priority of project notifications")
	cmd.Flags().String("system-priority", "", "Priority of system notifications")

	cli.AddOutputFlags(cmd)

	return cmd
}

func patchFromFlags(cmd *cobra.Command) models.PreferencesPatch {
	var patch models.PreferencesPatch
	boolFlag := func(name string) *bool {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetBool(name)
		return &v
	}
	priorityFlag := func(name string) *models.Priority {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		p := models.Priority(v)
		return &p
	}

	patch.SoundEnabled = boolFlag("sound")
	patch.DesktopEnabled = boolFlag("desktop")
	patch.EmailEnabled = boolFlag("email")
	patch.VibrationEnabled = boolFlag("vibration")
	patch.BadgeEnabled = boolFlag("badge")
	patch.Types.Task = boolFlag("task")
	patch.Types.Project = boolFlag("project")
	patch.Types.System = boolFlag("system")
	patch.Priority.Task = priorityFlag("task-priority")
	patch.Priority.Project = priorityFlag("project-priority")
	patch.Priority.System = priorityFlag("system-priority")
	return patch
}

func runPrefs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)
	patch := patchFromFlags(cmd)

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	svc := cliInstance.App.NotificationService
	prefs, err := svc.LoadPreferences(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	if !patch.IsEmpty() {
		if prefs, err = svc.UpdatePreferences(ctx, patch); err != nil {
			return cli.Fail(formatter, err)
		}
	}

	return formatter.Success(prefs, func(w io.Writer) error {
		onOff := func(b bool) string {
			if b {
				return "on"
			}
			return "off"
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Sound\t%s\n", onOff(prefs.SoundEnabled))
		fmt.Fprintf(tw, "Desktop\t%s\n", onOff(prefs.DesktopEnabled))
		fmt.Fprintf(tw, "Email\t%s\n", onOff(prefs.EmailEnabled))
		fmt.Fprintf(tw, "Vibration\t%s\n", onOff(prefs.VibrationEnabled))
		fmt.Fprintf(tw, "Badge\t%s\n", onOff(prefs.BadgeEnabled))
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Type\tEnabled\tPriority")
		for _, t := range models.NotificationTypes {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t, onOff(prefs.Types.Enabled(t)), prefs.Priority.For(t))
		}
		return tw.Flush()
	})
}
