package project

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	projectservice "github.com/thenoetrevino/collabflow/internal/services/project"
	clitest "github.com/thenoetrevino/collabflow/internal/testutil/cli"
)

func TestProjectCmd_Subcommands(t *testing.T) {
	var names []string
	for _, sub := range ProjectCmd().Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"create", "list", "show", "update", "delete"}, names)
}

func TestCreateProject(t *testing.T) {
	app := clitest.SetupCLITest(t)

	t.Run("quiet prints the id", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{"--name", "Mobile App", "--quiet"})
		require.NoError(t, err)
		assert.Equal(t, "id-1", strings.TrimSpace(output))
	})

	t.Run("creator becomes a member", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{
			"--name", "Q3 Launch", "--members", "bob,carol", "--start", "2024-07-01", "--end", "+90d", "--json",
		})
		require.NoError(t, err)
		data := clitest.ParseJSON(t, output)["data"].(map[string]any)
		assert.Equal(t, "Q3 Launch", data["name"])
		assert.Equal(t, "alice", data["createdBy"])
		assert.Equal(t, []any{"alice", "bob", "carol"}, data["members"])
		assert.NotNil(t, data["startDate"])
		assert.NotNil(t, data["endDate"])
	})

	t.Run("human output", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{"--name", "Backend"})
		require.NoError(t, err)
		assert.Contains(t, output, "✓ Project 'Backend' created successfully")
		assert.Contains(t, output, "Members: alice")
	})
}

func TestCreateProject_Negative(t *testing.T) {
	app := clitest.SetupCLITest(t)

	_, err := clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{"--name", "  "})
	assert.ErrorIs(t, err, projectservice.ErrEmptyName)
	assert.Equal(t, cli.ExitValidation, clitest.ExitCode(err))

	_, err = clitest.ExecuteCLICommand(t, app, CreateCmd(),
		[]string{"--name", "Backwards", "--start", "2024-06-01", "--end", "2024-05-01"})
	assert.ErrorIs(t, err, projectservice.ErrBadDates)

	_, err = clitest.ExecuteCLICommand(t, app, CreateCmd(), []string{"--name", "x", "--start", "xyzzy plugh"})
	assert.ErrorIs(t, err, cli.ErrInvalidDate)

	cfg := clitest.TestConfig(t)
	cfg.User.ID = ""
	anon := clitest.SetupCLITestWithConfig(t, cfg)
	_, err = clitest.ExecuteCLICommand(t, anon, CreateCmd(), []string{"--name", "x"})
	assert.ErrorIs(t, err, projectservice.ErrAuthRequired)
	assert.Equal(t, cli.ExitUnavailable, clitest.ExitCode(err))
}

func TestListProjects(t *testing.T) {
	app := clitest.SetupCLITest(t)
	ctx := context.Background()

	output, err := clitest.ExecuteCLICommand(t, app, ListCmd(), []string{})
	require.NoError(t, err)
	assert.Contains(t, output, "No projects found")

	_, err = app.ProjectService.CreateProject(ctx, projectservice.CreateProjectRequest{Name: "Mine"})
	require.NoError(t, err)

	// A project alice is not a member of stays hidden.
	require.NoError(t, app.Store.Set(ctx, docstore.Doc(projectservice.Collection, "other"), docstore.Document{
		"id": "other", "name": "Theirs", "members": []any{"bob"},
	}))

	output, err = clitest.ExecuteCLICommand(t, app, ListCmd(), []string{})
	require.NoError(t, err)
	assert.Contains(t, output, "Found 1 project(s)")
	assert.Contains(t, output, "Mine")
	assert.NotContains(t, output, "Theirs")

	output, err = clitest.ExecuteCLICommand(t, app, ListCmd(), []string{"--quiet"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", strings.TrimSpace(output))
}

func TestShowAndUpdateProject(t *testing.T) {
	app := clitest.SetupCLITest(t)
	ctx := context.Background()
	p, err := app.ProjectService.CreateProject(ctx, projectservice.CreateProjectRequest{
		Name: "Mobile", Description: "Ship the **app**",
	})
	require.NoError(t, err)
	t.Setenv(cli.ProjectEnv, p.ID)

	output, err := clitest.ExecuteCLICommand(t, app, ShowCmd(), []string{})
	require.NoError(t, err)
	assert.Contains(t, output, "Mobile")
	assert.Contains(t, output, "app")

	output, err = clitest.ExecuteCLICommand(t, app, UpdateCmd(), []string{"--name", "Mobile v2", "--members", "alice,dave"})
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Project 'Mobile v2' updated successfully")

	got, err := app.ProjectService.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mobile v2", got.Name)
	assert.Equal(t, []string{"alice", "dave"}, got.Members)
	assert.Equal(t, "Ship the **app**", got.Description)

	_, err = clitest.ExecuteCLICommand(t, app, UpdateCmd(), []string{})
	assert.Equal(t, cli.ExitUsage, clitest.ExitCode(err))

	_, err = clitest.ExecuteCLICommand(t, app, UpdateCmd(), []string{"--project", "missing", "--name", "x"})
	assert.ErrorIs(t, err, projectservice.ErrProjectNotFound)
	assert.Equal(t, cli.ExitNotFound, clitest.ExitCode(err))

	t.Setenv(cli.ProjectEnv, "")
	_, err = clitest.ExecuteCLICommand(t, app, ShowCmd(), []string{})
	assert.ErrorIs(t, err, projectservice.ErrNoProjectContext)
}

func TestDeleteProject(t *testing.T) {
	app := clitest.SetupCLITest(t)
	ctx := context.Background()
	p, err := app.ProjectService.CreateProject(ctx, projectservice.CreateProjectRequest{Name: "Doomed"})
	require.NoError(t, err)

	t.Run("declined confirmation keeps it", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommandWithInput(t, app, DeleteCmd(), "n\n", []string{"--project", p.ID})
		require.NoError(t, err)
		assert.Contains(t, output, "Cancelled")
		_, err = app.ProjectService.GetProject(ctx, p.ID)
		assert.NoError(t, err)
	})

	t.Run("confirmed", func(t *testing.T) {
		output, err := clitest.ExecuteCLICommandWithInput(t, app, DeleteCmd(), "yes\n", []string{"--project", p.ID})
		require.NoError(t, err)
		assert.Contains(t, output, "✓ Project 'Doomed' deleted")
		_, err = app.ProjectService.GetProject(ctx, p.ID)
		assert.ErrorIs(t, err, projectservice.ErrProjectNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := clitest.ExecuteCLICommand(t, app, DeleteCmd(), []string{"--project", p.ID, "--force"})
		assert.Equal(t, cli.ExitNotFound, clitest.ExitCode(err))
	})
}
