package task

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/app"
	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	clitest "github.com/thenoetrevino/collabflow/internal/testutil/cli"
)

func setupBoard(t *testing.T) (*app.App, models.Board) {
	t.Helper()
	a := clitest.SetupCLITest(t)
	b, err := a.BoardService.CreateBoard(context.Background(), "Launch", "")
	require.NoError(t, err)
	t.Setenv(cli.BoardEnv, b.ID)
	return a, b
}

func addTask(t *testing.T, a *app.App, b models.Board, col int, title string) models.Task {
	t.Helper()
	ctx := context.Background()
	_, err := a.BoardService.Open(ctx, b.ID)
	require.NoError(t, err)
	task, err := a.BoardService.CreateTask(ctx, b.Columns[col].ID, boardservice.CreateTaskRequest{Title: title})
	require.NoError(t, err)
	return task
}

func reload(t *testing.T, a *app.App, id string) models.Board {
	t.Helper()
	b, err := a.BoardService.Open(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestTaskCmd_Subcommands(t *testing.T) {
	var names []string
	for _, sub := range TaskCmd().Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"create", "update", "delete", "move", "drop", "show"}, names)
}

func TestCreateTask(t *testing.T) {
	a, b := setupBoard(t)

	t.Run("defaults to the first column", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, a, CreateCmd(), []string{"--title", "Write docs", "--quiet"})
		require.NoError(t, err)
		assert.Equal(t, "id-5", strings.TrimSpace(output))
		assert.Equal(t, []string{"id-5"}, reload(t, a, b.ID).Columns[0].TaskIDs)
	})

	t.Run("all fields by column title", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, a, CreateCmd(), []string{
			"--title", "Add auth",
			"--description", "JWT",
			"--column", "in progress",
			"--assignees", "alice, bob",
			"--labels", "backend",
			"--due", "+2d",
			"--json",
		})
		require.NoError(t, err)
		data := clitest.ParseJSON(t, output)["data"].(map[string]any)
		assert.Equal(t, "Add auth", data["title"])
		assert.Equal(t, "JWT", data["description"])
		assert.Equal(t, []any{"alice", "bob"}, data["assignees"])
		assert.Equal(t, []any{"backend"}, data["labels"])
		assert.NotNil(t, data["dueDate"])

		id := data["id"].(string)
		assert.Equal(t, []string{id}, reload(t, a, b.ID).Columns[1].TaskIDs)
	})

	t.Run("description from stdin", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommandWithInput(t, a, CreateCmd(), "from stdin\n", []string{"--title", "Piped", "--description", "-", "--json"})
		require.NoError(t, err)
		data := clitest.ParseJSON(t, output)["data"].(map[string]any)
		assert.Equal(t, "from stdin", data["description"])
	})

	t.Run("human output", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, a, CreateCmd(), []string{"--title", "Ship", "--column", "Done"})
		require.NoError(t, err)
		assert.Contains(t, output, "✓ Task 'Ship' created successfully")
		assert.Contains(t, output, "Column: Done")
	})
}

func TestCreateTask_Negative(t *testing.T) {
	a, b := setupBoard(t)

	_, err := clitest.ExecuteCLICommand(t, a, CreateCmd(), []string{"--title", " "})
	assert.ErrorIs(t, err, boardservice.ErrEmptyTitle)
	assert.Equal(t, cli.ExitValidation, clitest.ExitCode(err))

	_, stderr, err := clitest.ExecuteCLICommandWithContext(t, context.Background(), a, CreateCmd(),
		[]string{"--title", "x", "--column", "Nope"})
	assert.ErrorIs(t, err, boardservice.ErrColumnNotFound)
	assert.Contains(t, stderr, "Available columns: To Do, In Progress, Done")

	_, err = clitest.ExecuteCLICommand(t, a, CreateCmd(), []string{"--title", "x", "--due", "xyzzy plugh"})
	assert.ErrorIs(t, err, cli.ErrInvalidDate)

	t.Setenv(cli.BoardEnv, "")
	_, err = clitest.ExecuteCLICommand(t, a, CreateCmd(), []string{"--title", "x"})
	assert.ErrorIs(t, err, boardservice.ErrNoBoardSelected)

	// Nothing was written.
	assert.Empty(t, reload(t, a, b.ID).Columns[0].TaskIDs)
}

func TestUpdateTask(t *testing.T) {
	a, b := setupBoard(t)
	task := addTask(t, a, b, 0, "Draft")
	ctx := context.Background()

	output, err := clitest.ExecuteCLICommand(t, a, UpdateCmd(), []string{
		"--id", task.ID, "--title", "Final", "--labels", "docs,release", "--due", "tomorrow",
	})
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Task 'Final' updated successfully")

	snap, err := a.Store.Get(ctx, docstore.Doc(boardservice.TasksCollection, task.ID))
	require.NoError(t, err)
	assert.Equal(t, "Final", snap.Data["title"])

	got, ok := a.BoardService.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"docs", "release"}, got.Labels)
	require.NotNil(t, got.DueDate)

	_, err = clitest.ExecuteCLICommand(t, a, UpdateCmd(), []string{"--id", task.ID, "--due", "none", "--labels", ""})
	require.NoError(t, err)
	got, _ = a.BoardService.Task(task.ID)
	assert.Nil(t, got.DueDate)
	assert.Empty(t, got.Labels)
	assert.Equal(t, "Final", got.Title)
}

func TestUpdateTask_Negative(t *testing.T) {
	a, b := setupBoard(t)
	task := addTask(t, a, b, 0, "Draft")

	_, err := clitest.ExecuteCLICommand(t, a, UpdateCmd(), []string{"--id", task.ID})
	assert.Equal(t, cli.ExitUsage, clitest.ExitCode(err))

	_, err = clitest.ExecuteCLICommand(t, a, UpdateCmd(), []string{"--id", "missing", "--title", "x"})
	assert.ErrorIs(t, err, cli.ErrTaskNotFound)
	assert.Equal(t, cli.ExitNotFound, clitest.ExitCode(err))

	_, err = clitest.ExecuteCLICommand(t, a, UpdateCmd(), []string{"--id", task.ID, "--title", ""})
	assert.ErrorIs(t, err, boardservice.ErrEmptyTitle)
}

func TestDeleteTask(t *testing.T) {
	a, b := setupBoard(t)
	task := addTask(t, a, b, 1, "Obsolete")
	ctx := context.Background()

	output, err := clitest.ExecuteCLICommand(t, a, DeleteCmd(), []string{"--id", task.ID})
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Task 'Obsolete' deleted")

	assert.Empty(t, reload(t, a, b.ID).Columns[1].TaskIDs)
	snap, err := a.Store.Get(ctx, docstore.Doc(boardservice.TasksCollection, task.ID))
	require.NoError(t, err)
	assert.False(t, snap.Exists)

	_, err = clitest.ExecuteCLICommand(t, a, DeleteCmd(), []string{"--id", task.ID})
	assert.ErrorIs(t, err, cli.ErrTaskNotFound)
}

func TestMoveTask(t *testing.T) {
	a, b := setupBoard(t)
	first := addTask(t, a, b, 1, "Already here")
	task := addTask(t, a, b, 0, "Mover")

	output, err := clitest.ExecuteCLICommand(t, a, MoveCmd(), []string{"--id", task.ID, "next"})
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Task 'Mover' moved from 'To Do' to 'In Progress'")

	got := reload(t, a, b.ID)
	assert.Empty(t, got.Columns[0].TaskIDs)
	assert.Equal(t, []string{first.ID, task.ID}, got.Columns[1].TaskIDs, "moves append to the end")

	output, err = clitest.ExecuteCLICommand(t, a, MoveCmd(), []string{"--id", task.ID, "done", "--json"})
	require.NoError(t, err)
	data := clitest.ParseJSON(t, output)["data"].(map[string]any)
	assert.Equal(t, b.Columns[1].ID, data["from"])
	assert.Equal(t, b.Columns[2].ID, data["to"])

	_, err = clitest.ExecuteCLICommand(t, a, MoveCmd(), []string{"--id", task.ID, "next"})
	assert.Equal(t, cli.ExitUsage, clitest.ExitCode(err))

	_, err = clitest.ExecuteCLICommand(t, a, MoveCmd(), []string{"--id", task.ID, "Nowhere"})
	assert.ErrorIs(t, err, boardservice.ErrColumnNotFound)
}

func TestDropTask(t *testing.T) {
	a, b := setupBoard(t)
	task := addTask(t, a, b, 0, "Dragged")
	todo, doing := b.Columns[0].ID, b.Columns[1].ID

	t.Run("outside any column", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, a, DropCmd(),
			[]string{"--id", task.ID, "--from", todo, "--json"})
		require.NoError(t, err)
		data := clitest.ParseJSON(t, output)["data"].(map[string]any)
		assert.Equal(t, false, data["moved"])
	})

	t.Run("same slot", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, a, DropCmd(),
			[]string{"--id", task.ID, "--from", todo, "--to", todo})
		require.NoError(t, err)
		assert.Contains(t, output, "Nothing to do")
		assert.Equal(t, []string{task.ID}, reload(t, a, b.ID).Columns[0].TaskIDs)
	})

	t.Run("json result from stdin", func(t *testing.T) {
		input := `{"draggableId":"` + task.ID + `","source":{"droppableId":"` + todo +
			`","index":0},"destination":{"droppableId":"` + doing + `","index":0}}`
		output, err := clitest.ExecuteCLICommandWithInput(t, a, DropCmd(), input, []string{"--result", "-"})
		require.NoError(t, err)
		assert.Contains(t, output, "✓ Task "+task.ID+" moved to "+doing)

		got := reload(t, a, b.ID)
		assert.Empty(t, got.Columns[0].TaskIDs)
		assert.Equal(t, []string{task.ID}, got.Columns[1].TaskIDs)
	})

	t.Run("stale source column", func(t *testing.T) {
		done := b.Columns[2].ID
		output, err := clitest.ExecuteCLICommand(t, a, DropCmd(),
			[]string{"--id", task.ID, "--from", todo, "--to", done})
		require.NoError(t, err)
		assert.Contains(t, output, "Nothing to do")

		got := reload(t, a, b.ID)
		assert.Equal(t, []string{task.ID}, got.Columns[1].TaskIDs)
		assert.Empty(t, got.Columns[2].TaskIDs)
	})

	t.Run("malformed result", func(t *testing.T) {
		_, err := clitest.ExecuteCLICommand(t, a, DropCmd(), []string{"--result", "{"})
		assert.Equal(t, cli.ExitDataErr, clitest.ExitCode(err))
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := clitest.ExecuteCLICommand(t, a, DropCmd(), []string{})
		assert.Equal(t, cli.ExitUsage, clitest.ExitCode(err))
	})
}

func TestShowTask(t *testing.T) {
	a, b := setupBoard(t)
	ctx := context.Background()
	_, err := a.BoardService.Open(ctx, b.ID)
	require.NoError(t, err)
	task, err := a.BoardService.CreateTask(ctx, b.Columns[0].ID, boardservice.CreateTaskRequest{
		Title:       "Release notes",
		Description: "Summarise the **changes**",
		Assignees:   []string{"alice"},
	})
	require.NoError(t, err)

	output, err := clitest.ExecuteCLICommand(t, a, ShowCmd(), []string{"--id", task.ID})
	require.NoError(t, err)
	assert.Contains(t, output, "Release notes")
	assert.Contains(t, output, "@alice")
	assert.Contains(t, output, "changes")

	output, err = clitest.ExecuteCLICommand(t, a, ShowCmd(), []string{"--id", task.ID, "--json"})
	require.NoError(t, err)
	data := clitest.ParseJSON(t, output)["data"].(map[string]any)
	assert.Equal(t, task.ID, data["id"])

	_, err = clitest.ExecuteCLICommand(t, a, ShowCmd(), []string{"--id", "missing"})
	assert.Equal(t, cli.ExitNotFound, clitest.ExitCode(err))
}
