package board

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/cli"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	clitest "github.com/thenoetrevino/collabflow/internal/testutil/cli"
)

func TestBoardCmd_Subcommands(t *testing.T) {
	cmd := BoardCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"create", "list", "show", "watch"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestCreateBoard_Positive(t *testing.T) {
	app := clitest.SetupCLITest(t)

	t.Run("quiet prints the id", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, CreateCmd(),
			[]string{"--title", "Launch", "--quiet"})
		require.NoError(t, err)
		assert.Equal(t, "id-1", strings.TrimSpace(output))

		boards, err := app.BoardService.ListBoards(context.Background())
		require.NoError(t, err)
		require.Len(t, boards, 1)
		assert.Equal(t, "Launch", boards[0].Title)
		assert.Len(t, boards[0].Columns, 3)
	})

	t.Run("json carries the board", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, CreateCmd(),
			[]string{"--title", "Roadmap", "--description", "2025 plan", "--json"})
		require.NoError(t, err)

		result := clitest.ParseJSON(t, output)
		assert.Equal(t, true, result["success"])
		data := result["data"].(map[string]any)
		assert.Equal(t, "Roadmap", data["title"])
		assert.Equal(t, "2025 plan", data["description"])
		assert.Len(t, data["columns"], 3)
	})

	t.Run("human output lists columns", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{"--title", "Ops"})
		require.NoError(t, err)
		assert.Contains(t, output, "✓ Board 'Ops' created successfully")
		assert.Contains(t, output, "Column: To Do")
		assert.Contains(t, output, "Column: Done")
	})
}

func TestCreateBoard_Negative(t *testing.T) {
	app := clitest.SetupCLITest(t)

	_, stderr, err := clitest.ExecuteCLICommandWithContext(t, context.Background(), app, CreateCmd(),
		[]string{"--title", "   "})
	require.Error(t, err)
	assert.Equal(t, cli.ExitValidation, clitest.ExitCode(err))
	assert.ErrorIs(t, err, boardservice.ErrEmptyTitle)
	assert.Contains(t, stderr, "title cannot be empty")

	_, err = clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{})
	assert.Error(t, err, "title is required")
}

func TestListBoards(t *testing.T) {
	app := clitest.SetupCLITest(t)

	output, err := clitest.ExecuteCLICommand(t, app, ListCmd(), []string{})
	require.NoError(t, err)
	assert.Contains(t, output, "No boards found")

	ctx := context.Background()
	_, err = app.BoardService.CreateBoard(ctx, "Launch", "")
	require.NoError(t, err)
	_, err = app.BoardService.CreateBoard(ctx, "Ops", "")
	require.NoError(t, err)

	output, err = clitest.ExecuteCLICommand(t, app, ListCmd(), []string{})
	require.NoError(t, err)
	assert.Contains(t, output, "Found 2 board(s)")
	assert.Contains(t, output, "Launch")
	assert.Contains(t, output, "(3 columns, 0 tasks)")

	output, err = clitest.ExecuteCLICommand(t, app, ListCmd(), []string{"--quiet"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-5"}, strings.Fields(output))

	output, err = clitest.ExecuteCLICommand(t, app, ListCmd(), []string{"--json"})
	require.NoError(t, err)
	data := clitest.ParseJSON(t, output)["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "Ops", data[1].(map[string]any)["title"])
}

func TestShowBoard(t *testing.T) {
	app := clitest.SetupCLITest(t)
	ctx := context.Background()

	b, err := app.BoardService.CreateBoard(ctx, "Launch", "Q3 launch")
	require.NoError(t, err)
	_, err = app.BoardService.Open(ctx, b.ID)
	require.NoError(t, err)
	task, err := app.BoardService.CreateTask(ctx, b.Columns[0].ID, boardservice.CreateTaskRequest{Title: "Write docs"})
	require.NoError(t, err)

	t.Run("human", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, ShowCmd(), []string{"--board", b.ID})
		require.NoError(t, err)
		assert.Contains(t, output, "Launch")
		assert.Contains(t, output, "To Do (1)")
		assert.Contains(t, output, "Write docs")
		assert.Contains(t, output, "No tasks")
	})

	t.Run("json", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, ShowCmd(), []string{"--board", b.ID, "--json"})
		require.NoError(t, err)
		data := clitest.ParseJSON(t, output)["data"].(map[string]any)
		tasks := data["tasks"].(map[string]any)
		todo := tasks[b.Columns[0].ID].([]any)
		require.Len(t, todo, 1)
		assert.Equal(t, task.ID, todo[0].(map[string]any)["id"])
	})

	t.Run("board from shell context", func(t *testing.T) {
		t.Setenv(cli.BoardEnv, b.ID)
		output, err := clitest.ExecuteCLICommand(t, app, ShowCmd(), []string{"--quiet"})
		require.NoError(t, err)
		assert.Equal(t, b.ID, strings.TrimSpace(output))
	})
}

func TestShowBoard_Negative(t *testing.T) {
	app := clitest.SetupCLITest(t)
	t.Setenv(cli.BoardEnv, "")

	_, err := clitest.ExecuteCLICommand(t, app, ShowCmd(), []string{})
	assert.ErrorIs(t, err, boardservice.ErrNoBoardSelected)
	assert.Equal(t, cli.ExitUsage, clitest.ExitCode(err))

	_, stderr, err := clitest.ExecuteCLICommandWithContext(t, context.Background(), app, ShowCmd(),
		[]string{"--board", "missing"})
	assert.ErrorIs(t, err, boardservice.ErrBoardNotFound)
	assert.Equal(t, cli.ExitNotFound, clitest.ExitCode(err))
	assert.Contains(t, stderr, "collabflow board list")
}
