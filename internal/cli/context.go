package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/models"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	projectservice "github.com/thenoetrevino/collabflow/internal/services/project"
)

// Shell context variables set by `collabflow use`.
const (
	BoardEnv   = "COLLABFLOW_BOARD"
	ProjectEnv = "COLLABFLOW_PROJECT"
)

// AddBoardFlag registers --board on cmd.
func AddBoardFlag(cmd *cobra.Command) {
	cmd.Flags().String("board", "", "Board ID (defaults to $"+BoardEnv+")")
}

// AddProjectFlag registers --project on cmd.
func AddProjectFlag(cmd *cobra.Command) {
	cmd.Flags().String("project", "", "Project ID (defaults to $"+ProjectEnv+")")
}

// BoardID resolves the board a command works on. The --board flag wins over
// the shell context.
func BoardID(cmd *cobra.Command) (string, error) {
	return resolve(cmd, "board", BoardEnv, boardservice.ErrNoBoardSelected)
}

// ProjectID resolves the project a command works on.
func ProjectID(cmd *cobra.Command) (string, error) {
	return resolve(cmd, "project", ProjectEnv, projectservice.ErrNoProjectContext)
}

func resolve(cmd *cobra.Command, flag, env string, missing error) (string, error) {
	if f := cmd.Flags().Lookup(flag); f != nil {
		if v := strings.TrimSpace(f.Value.String()); v != "" {
			return v, nil
		}
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v, nil
	}
	return "", missing
}

// FindColumn matches a column by id, or by title ignoring case.
func FindColumn(b models.Board, ref string) (models.Column, bool) {
	for _, c := range b.Columns {
		if c.ID == ref {
			return c, true
		}
	}
	for _, c := range b.Columns {
		if strings.EqualFold(c.Title, ref) {
			return c, true
		}
	}
	return models.Column{}, false
}

// ColumnTitles lists the column titles of b for suggestions.
func ColumnTitles(b models.Board) string {
	titles := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		titles[i] = c.Title
	}
	return strings.Join(titles, ", ")
}
