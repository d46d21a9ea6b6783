package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thenoetrevino/collabflow/internal/app"
	"github.com/thenoetrevino/collabflow/internal/models"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	"github.com/thenoetrevino/collabflow/internal/tui"
)

// Watch runs the live board view until the user quits or ctx is cancelled.
func Watch(ctx context.Context, a *app.App, boardID string, opts ...tea.ProgramOption) error {
	// Create root context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snapshots, stop, err := Follow(ctx, a.BoardService, boardID, a.Logger)
	if err != nil {
		return err
	}
	defer stop()

	model := tui.NewWatchModel(ctx, snapshots, a.DragController, nil)
	p := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			slog.Info("shutdown signal received, cleaning up")
			return nil
		}
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// Follow opens boardID, subscribes to it and emits a fresh snapshot each
// time the board changes. Only the latest snapshot is kept when the reader
// falls behind. stop ends the subscription and closes the channel.
func Follow(ctx context.Context, svc boardservice.Service, boardID string, logger *slog.Logger) (<-chan tui.Snapshot, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	dirty := make(chan struct{}, 1)
	markDirty := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	remove := svc.OnChange(func(b models.Board) {
		if b.ID == boardID {
			markDirty()
		}
	})

	if _, err := svc.Open(ctx, boardID); err != nil {
		remove()
		return nil, nil, err
	}
	unsub, err := svc.Subscribe(ctx, boardID)
	if err != nil {
		remove()
		return nil, nil, err
	}
	markDirty()

	out := make(chan tui.Snapshot, 1)
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-dirty:
			}

			if err := svc.LoadTasks(loopCtx); err != nil {
				logger.Warn("failed to load tasks", "board_id", boardID, "error", err)
			}
			snap, ok := snapshotOf(svc)
			if !ok || snap.Board.ID != boardID {
				continue
			}

			// Replace an unread snapshot rather than block.
			select {
			case <-out:
			default:
			}
			select {
			case out <- snap:
			case <-loopCtx.Done():
				return
			}
		}
	}()

	stop := func() {
		unsub()
		remove()
		cancel()
		<-done
	}
	return out, stop, nil
}

func snapshotOf(svc boardservice.Service) (tui.Snapshot, bool) {
	b, ok := svc.CurrentBoard()
	if !ok {
		return tui.Snapshot{}, false
	}
	tasks := make(map[string][]models.Task, len(b.Columns))
	for _, c := range b.Columns {
		tasks[c.ID] = svc.ColumnTasks(c.ID)
	}
	return tui.Snapshot{Board: b, Tasks: tasks}, true
}
