package server

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fable/pkg/catalog"
	"fable/pkg/flight"
	"fable/pkg/inference"
	"fable/pkg/pipeline"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

// ImageGenerator produces cover art bytes from a visual description.
// Optional; cover endpoints answer 503 without one.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string) ([]byte, error)
}

type Server struct {
	Echo       *echo.Echo
	Resolver   *catalog.Resolver
	Runner     *pipeline.Runner
	Inferencer inference.Inferencer
	Images     ImageGenerator
	Ctx        context.Context

	Jobs      *utils.SyncMap[map[string]*pipeline.Job, string, *pipeline.Job]
	Revisions *utils.SyncMap[map[string][]schema.Revision, string, []schema.Revision]

	coverFlight *flight.Cache[string, []byte]
	coverPrompt *utils.SyncMap[map[string]string, string, string]
}

func NewServer(ctx context.Context, resolver *catalog.Resolver, runner *pipeline.Runner, inf inference.Inferencer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:       e,
		Resolver:   resolver,
		Runner:     runner,
		Inferencer: inf,
		Ctx:        ctx,
		Jobs:       utils.NewSyncMap[map[string]*pipeline.Job](),
		Revisions:  utils.NewSyncMap[map[string][]schema.Revision](),
	}
	s.coverFlight = flight.NewCache(s.generateAndCacheCover)
	s.coverPrompt = utils.NewSyncMap[map[string]string]()

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api")
	api.GET("/templates/:id/roles", s.handleGetRoles)   // role catalog resolver
	api.POST("/candidates", s.handlePostCandidates)     // role+characters -> strict/fallback candidates
	api.POST("/validate", s.handlePostValidate)         // completeness gate for the template flow
	api.POST("/generate", s.handlePostGenerate)         // start a generation job
	api.GET("/jobs/:id", s.handleGetJob)                // job snapshot
	api.GET("/jobs/:id/events", s.handleGetJobEvents)   // SSE phase stream
	api.DELETE("/jobs/:id", s.handleCancelJob)          // abort an in-flight job
	api.POST("/revise", s.handlePostRevise)             // AI-assisted story revision
	api.POST("/cover", s.handlePostCover)               // webp cover art for a finished story
}

func (s *Server) Start(addr string) error {
	log.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")

	saveErr := utils.Save("Revisions.json", s.Revisions.Map())
	if err := s.Echo.Shutdown(ctx); err != nil {
		return err
	}

	return saveErr
}
