package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"fable/pkg/assignment"
	"fable/pkg/pipeline"
	"fable/pkg/schema"
)

type candidatesReq struct {
	Role       schema.RoleDefinition     `json:"role"`
	Characters []schema.CharacterProfile `json:"characters"`
}

// POST /api/candidates
func (s *Server) handlePostCandidates(c echo.Context) error {
	var req candidatesReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if req.Role.RoleID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "role is required")
	}
	return c.JSON(http.StatusOK, assignment.MatchCandidates(req.Role, req.Characters))
}

type validateReq struct {
	Assignments schema.RoleAssignmentMap `json:"assignments"`
	Roles       []schema.RoleDefinition  `json:"roles"`
}

// POST /api/validate
func (s *Server) handlePostValidate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	return c.JSON(http.StatusOK, assignment.Validate(req.Assignments, req.Roles))
}

// POST /api/generate
func (s *Server) handlePostGenerate(c echo.Context) error {
	var input pipeline.Input
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	// The job must outlive this request; it is cancelled through its own
	// handle, not the request context.
	job, err := s.Runner.Start(s.Ctx, input)
	if err != nil {
		log.Warn("generation rejected", "error", err)
		return errResponse(c, err)
	}
	s.Jobs.Store(job.ID, job)

	return c.JSON(http.StatusAccepted, viewOf(job))
}

// DELETE /api/jobs/:id
func (s *Server) handleCancelJob(c echo.Context) error {
	job, ok := s.Jobs.Load(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	job.Cancel()
	log.Info("job cancel requested", "job", job.ID)
	return c.NoContent(http.StatusAccepted)
}
