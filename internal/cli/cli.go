package cli

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/collabflow/internal/app"
	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/models"
)

type contextKey struct{}

// CLI represents the CLI application context
type CLI struct {
	App *app.App // Application container with services
	ctx context.Context

	owned bool
}

// WithApp stores a ready application in ctx. Commands run under that
// context use it instead of building their own, and never close it.
func WithApp(ctx context.Context, a *app.App) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// GetCLIFromContext returns the application injected with WithApp, or loads
// the configuration and builds a new one.
func GetCLIFromContext(ctx context.Context, opts ...app.Option) (*CLI, error) {
	if a, ok := ctx.Value(contextKey{}).(*app.App); ok && a != nil {
		return &CLI{App: a, ctx: ctx}, nil
	}
	return NewCLI(ctx, opts...)
}

// NewCLI initializes the CLI from the configuration file and environment
func NewCLI(ctx context.Context, opts ...app.Option) (*CLI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	return &CLI{
		App:   application,
		ctx:   ctx,
		owned: true,
	}, nil
}

// OpenBoard selects a board and loads its tasks.
func (c *CLI) OpenBoard(ctx context.Context, boardID string) (models.Board, error) {
	b, err := c.App.BoardService.Open(ctx, boardID)
	if err != nil {
		return models.Board{}, err
	}
	if err := c.App.BoardService.LoadTasks(ctx); err != nil {
		return models.Board{}, err
	}
	return b, nil
}

// OpenTask opens boardID and returns the task with its column. Tasks that
// are not on the board are reported as ErrTaskNotFound.
func (c *CLI) OpenTask(ctx context.Context, boardID, taskID string) (models.Board, models.Task, string, error) {
	b, err := c.OpenBoard(ctx, boardID)
	if err != nil {
		return models.Board{}, models.Task{}, "", err
	}
	columnID, _, ok := b.LocateTask(taskID)
	if !ok {
		return b, models.Task{}, "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	t, ok := c.App.BoardService.Task(taskID)
	if !ok {
		return b, models.Task{}, "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return b, t, columnID, nil
}

// Close cleans up CLI resources
func (c *CLI) Close() error {
	if !c.owned {
		return nil
	}
	return c.App.Close()
}
