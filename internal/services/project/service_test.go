package project

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/auth"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/memstore"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func setupService(t *testing.T, user string) (Service, *memstore.Store, *auth.Session) {
	t.Helper()
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })
	session := auth.NewSession(auth.User{ID: user})

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(store, session,
		WithIDs(types.Sequence("proj")),
		WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
	)
	return svc, store, session
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateProjectRequiresUser(t *testing.T) {
	svc, _, _ := setupService(t, "")
	_, err := svc.CreateProject(context.Background(), CreateProjectRequest{Name: "Launch"})
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = svc.FetchProjects(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestCreateProject(t *testing.T) {
	svc, store, _ := setupService(t, "alice")
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectRequest{
		Name:    " Launch ",
		Members: []string{"bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch", p.Name)
	assert.Equal(t, "alice", p.CreatedBy)
	assert.Equal(t, []string{"alice", "bob"}, p.Members)

	snap, err := store.Get(ctx, docstore.Doc(Collection, p.ID))
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Equal(t, "alice", snap.Data["createdBy"])
	assert.Len(t, svc.Projects(), 1)
}

func TestCreateProjectValidation(t *testing.T) {
	svc, _, _ := setupService(t, "alice")
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.CreateProject(ctx, CreateProjectRequest{Name: string(make([]byte, 101))})
	assert.ErrorIs(t, err, ErrNameTooLong)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = svc.CreateProject(ctx, CreateProjectRequest{Name: "X", StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrBadDates)
}

func TestFetchProjectsFiltersByMembership(t *testing.T) {
	svc, _, session := setupService(t, "alice")
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "Mine"})
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, CreateProjectRequest{Name: "Shared", Members: []string{"bob"}})
	require.NoError(t, err)

	session.SignIn(auth.User{ID: "bob"})
	_, err = svc.CreateProject(ctx, CreateProjectRequest{Name: "Bob only"})
	require.NoError(t, err)

	projects, err := svc.FetchProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Shared", projects[0].Name)
	assert.Equal(t, "Bob only", projects[1].Name)
}

func TestUpdateProject(t *testing.T) {
	svc, store, _ := setupService(t, "alice")
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "Draft", Description: "old"})
	require.NoError(t, err)

	name := "Final"
	require.NoError(t, svc.UpdateProject(ctx, UpdateProjectRequest{ID: p.ID, Name: &name}))

	got, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Name)
	assert.Equal(t, "old", got.Description)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	assert.Equal(t, "Final", svc.Projects()[0].Name)

	assert.ErrorIs(t, svc.UpdateProject(ctx, UpdateProjectRequest{Name: &name}), ErrNoProjectContext)
	err = svc.UpdateProject(ctx, UpdateProjectRequest{ID: "ghost", Name: &name})
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	snap, err := store.Get(ctx, docstore.Doc(Collection, "ghost"))
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}

func TestDeleteProject(t *testing.T) {
	svc, _, _ := setupService(t, "alice")
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "Temp"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	assert.Empty(t, svc.Projects())

	_, err = svc.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.ErrorIs(t, svc.DeleteProject(ctx, ""), ErrNoProjectContext)
}
