package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fable/pkg/fault"
	"fable/pkg/pipeline"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Fable Generation API",
		"status":  "ok",
	})
}

// GET /api/templates/:id/roles
func (s *Server) handleGetRoles(c echo.Context) error {
	templateID := c.Param("id")

	var roles []schema.RoleDefinition
	var err error
	if c.QueryParam("refresh") == "true" {
		roles, err = s.Resolver.Refresh(templateID)
	} else {
		roles, err = s.Resolver.Roles(templateID)
	}
	if err != nil {
		return errResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"roles": roles})
}

type jobView struct {
	JobID  string          `json:"job_id"`
	Status pipeline.Status `json:"status"`
	Phase  pipeline.Phase  `json:"phase,omitempty"`
	Result *schema.Story   `json:"result,omitempty"`
	Error  *errView        `json:"error,omitempty"`
}

type errView struct {
	Kind    fault.Kind `json:"kind"`
	Message string     `json:"message"`
}

func viewOf(job *pipeline.Job) jobView {
	view := jobView{
		JobID:  job.ID,
		Status: job.Status(),
		Phase:  job.Phase(),
	}
	switch view.Status {
	case pipeline.StatusSucceeded:
		view.Result = job.Result()
	case pipeline.StatusFailed:
		err := job.Err()
		view.Error = &errView{Kind: fault.KindOf(err), Message: err.Error()}
	}
	return view
}

// GET /api/jobs/:id
func (s *Server) handleGetJob(c echo.Context) error {
	job, ok := s.Jobs.Load(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, viewOf(job))
}

// errResponse converts a classified failure into its HTTP shape.
func errResponse(c echo.Context, err error) error {
	kind := fault.KindOf(err)
	return c.JSON(fault.HTTPStatus(kind), utils.ErrJSON(string(kind), err.Error()))
}
