package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/webp"
	"github.com/labstack/echo/v4"

	"fable/pkg/pipeline"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

func ensureCoverDir() error {
	path := filepath.Join("images", "covers")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}

// saveToWebP re-encodes generated image bytes as a high-quality WebP on disk.
func saveToWebP(data []byte, filename string) ([]byte, error) {
	if err := ensureCoverDir(); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		var err2 error
		img, _, err2 = image.Decode(bytes.NewReader(data))
		if err2 != nil {
			return nil, fmt.Errorf("failed to decode image (png: %v, generic: %v)", err, err2)
		}
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, webp.Options{Lossless: false, Quality: 100}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}

	fullPath := filepath.Join("images", "covers", filename)
	if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}

	return buf.Bytes(), nil
}

type coverReq struct {
	JobID string `json:"job_id"`
	Style string `json:"style,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// POST /api/cover
func (s *Server) handlePostCover(c echo.Context) error {
	var req coverReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if s.Images == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image backend not configured")
	}

	job, ok := s.Jobs.Load(req.JobID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	story := job.Result()
	if job.Status() != pipeline.StatusSucceeded || story == nil {
		return echo.NewHTTPError(http.StatusConflict, "job has no finished story")
	}

	prompt := coverScenePrompt(story.Title, firstScene(story), req.Style)
	key := fmt.Sprintf("%s.webp", utils.SanitizeFilename(req.JobID))
	s.coverPrompt.Store(key, prompt)

	var data []byte
	var err error
	if req.Force {
		data, err = s.coverFlight.Force(key)
	} else {
		data, err = s.coverFlight.Get(key)
	}
	if err != nil {
		log.Error("cover generation failed", "job", req.JobID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "generation failed: "+err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentType, "image/webp")
	c.Response().WriteHeader(http.StatusOK)
	_, err = c.Response().Write(data)
	return err
}

func (s *Server) generateAndCacheCover(key string) ([]byte, error) {
	fullPath := filepath.Join("images", "covers", key)
	if data, err := os.ReadFile(fullPath); err == nil {
		log.Info("cover cache hit", "file", key)
		return data, nil
	}

	prompt, ok := s.coverPrompt.Load(key)
	if !ok {
		return nil, fmt.Errorf("no prompt recorded for %s", key)
	}

	log.Info("generating cover", "file", key)
	raw, err := s.Images.GenerateImage(s.Ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return saveToWebP(raw, key)
}

func firstScene(story *schema.Story) string {
	for _, ch := range story.Chapters {
		if ch.Scene != "" {
			return ch.Scene
		}
	}
	return ""
}
