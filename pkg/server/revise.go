package server

import (
	"cmp"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/openai/openai-go/v3"
	"github.com/segmentio/ksuid"

	"fable/pkg/schema"
	"fable/pkg/utils"
)

type reviseReq struct {
	StoryID   string `json:"story_id"`
	Selection string `json:"selection"`
	Prompt    string `json:"prompt"`
}

const (
	maxReviseSelectionRunes = 8192 * 4
	maxRevisionEntries      = 50
)

// POST /api/revise
func (s *Server) handlePostRevise(c echo.Context) error {
	var req reviseReq
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid JSON in /api/revise", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if req.StoryID == "" || req.Selection == "" || req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "story_id, selection, and prompt are required")
	}

	runes := []rune(req.Selection)
	if len(runes) > maxReviseSelectionRunes {
		req.Selection = string(runes[:maxReviseSelectionRunes])
	}

	ctx := c.Request().Context()
	params := &openai.ChatCompletionNewParams{
		MaxCompletionTokens: openai.Int(int64(cmp.Or(len(req.Selection)*2, 4096))),
		Temperature:         openai.Float(0.25),
	}
	result, err := s.Inferencer.Edit(ctx, params, buildReviseSystemPrompt(req.Prompt), req.Selection)
	if err != nil {
		log.Error("revise inference failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "revise inference failed")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return echo.NewHTTPError(http.StatusBadGateway, "empty revise result")
	}

	entry := schema.Revision{
		ID:        ksuid.New().String(),
		Prompt:    req.Prompt,
		Original:  req.Selection,
		Result:    result,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	history, _ := s.Revisions.Load(req.StoryID)
	history = append([]schema.Revision{entry}, history...)
	if len(history) > maxRevisionEntries {
		history = history[:maxRevisionEntries]
	}
	s.Revisions.Store(req.StoryID, history)

	log.Info("revision complete", "story", req.StoryID, "entries", len(history))

	return c.JSON(http.StatusOK, map[string]any{
		"result": result,
		"entry":  entry,
		"diff":   utils.DiffWords(req.Selection, result),
	})
}

func buildReviseSystemPrompt(instruction string) string {
	var b strings.Builder
	b.WriteString(revisePrompt)
	b.WriteString("\n\nInstruction from the user:\n")
	b.WriteString(instruction)
	return b.String()
}
