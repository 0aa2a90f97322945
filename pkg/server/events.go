package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fable/pkg/utils"
)

// GET /api/jobs/:id/events
//
// Streams one SSE event per phase transition. Subscribing replays phases
// already passed, so a late listener still sees the full ordered sequence;
// the stream closes with the terminal job snapshot.
func (s *Server) handleGetJobEvents(c echo.Context) error {
	job, ok := s.Jobs.Load(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}

	w := utils.NewSSEWriter(c)
	defer w.Close()

	events := job.Subscribe()
	defer job.Unsubscribe(events)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-events:
			if !open {
				_ = w.Event("done", viewOf(job))
				return nil
			}
			if err := w.Event("phase", ev); err != nil {
				return nil
			}
		}
	}
}
