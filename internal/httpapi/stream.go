package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/launcher"
	"github.com/thenoetrevino/collabflow/internal/models"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// frame is one board event on the stream.
type frame struct {
	Board  models.Board             `json:"board"`
	Tasks  map[string][]models.Task `json:"tasks"`
	SentAt time.Time                `json:"sentAt"`
}

// streamBoard sends a snapshot of the board whenever it changes, plus a
// comment line every KeepAlive so proxies keep the connection open.
func streamBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if d.Boards == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "boards are not configured")
		}
		ctx := c.Request().Context()
		boardID := c.Param("id")

		snapshots, stop, err := launcher.Follow(ctx, d.Boards(), boardID, d.Logger)
		if err != nil {
			if errors.Is(err, boardservice.ErrBoardNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, err.Error())
			}
			d.Logger.Error("failed to open board stream", "board_id", boardID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to open board")
		}
		defer stop()

		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		h := c.Response().Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set(echo.HeaderCacheControl, "no-cache")
		h.Set(echo.HeaderConnection, "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		d.Logger.Debug("board stream opened", "board_id", boardID, "user_id", userID(c))

		ticker := time.NewTicker(d.KeepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := c.Response().Write([]byte(": ping\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case snap, ok := <-snapshots:
				if !ok {
					return nil
				}
				data, err := docstore.Marshal(frame{Board: snap.Board, Tasks: snap.Tasks, SentAt: d.Now()})
				if err != nil {
					d.Logger.Error("failed to encode board frame", "board_id", boardID, "error", err)
					continue
				}
				if _, err := c.Response().Write([]byte("event: board\ndata: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
