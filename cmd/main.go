package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	gommon "github.com/labstack/gommon/log"

	"fable/pkg/catalog"
	"fable/pkg/inference"
	"fable/pkg/pipeline"
	"fable/pkg/schema"
	"fable/pkg/server"
	"fable/pkg/utils"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	openAI := inference.NewOpenAIInferencer(apiKey, model)
	if apiKey == "" {
		openAI.ChangeBaseURL("http://localhost:1234/v1")
		openAI.SetModel("")
	}
	var inf inference.Inferencer = openAI

	var images server.ImageGenerator
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		gemini, err := inference.NewGeminiInferencer(geminiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatal("failed to initialize gemini client", "error", err)
		}
		inf = gemini
		images = gemini
	}

	catalogURL := os.Getenv("CATALOG_URL")
	if catalogURL == "" {
		catalogURL = "http://localhost:9090"
	}
	resolver := catalog.NewResolver(catalog.NewClient(catalogURL))
	runner := pipeline.NewRunner(inf)

	srv := server.NewServer(ctx, resolver, runner, inf)
	srv.Images = images
	srv.Echo.Logger.SetLevel(gommon.INFO)

	revisions, err := utils.Load[map[string][]schema.Revision]("Revisions.json")
	if err == nil && revisions != nil {
		for id, history := range revisions {
			srv.Revisions.Store(id, history)
		}
		log.Info("loaded revision history", "stories", len(revisions))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load Revisions.json", "error", err)
	}

	addr := ":8080"
	if envAddr := os.Getenv("PORT"); envAddr != "" {
		addr = ":" + envAddr
	}

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("shutdown error", "error", err)
		}
		done()
		close(finishedShutDown)
	}()

	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
	}
	<-finishedShutDown
}
