package inference

import (
	"cmp"
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// GeminiInferencer implements Inferencer using the Google GenAI SDK.
type GeminiInferencer struct {
	client *genai.Client
	apiKey string
	model  string
}

func NewGeminiInferencer(apiKey string, model string) (*GeminiInferencer, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return &GeminiInferencer{
		client: client,
		apiKey: apiKey,
		model:  model,
	}, nil
}

// Infer sends text to the Gemini generate-content endpoint and returns the
// output. The shared openai params shape carries the token budget so the
// pipeline stays backend-agnostic.
func (g *GeminiInferencer) Infer(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	if params == nil {
		params = new(openai.ChatCompletionNewParams)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleModel),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   int32(cmp.Or(params.MaxCompletionTokens.Value, 4096)),
	}

	result, err := g.client.Models.GenerateContent(
		ctx,
		cmp.Or(params.Model, g.model),
		genai.Text(user),
		config,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return result.Text(), nil
}

// Edit mirrors Infer but scales the completion budget to the selection.
func (g *GeminiInferencer) Edit(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	if params == nil {
		params = new(openai.ChatCompletionNewParams)
	}
	if params.MaxCompletionTokens.Value == 0 {
		params.MaxCompletionTokens = openai.Int(int64(len(user) * 2))
	}
	return g.Infer(ctx, params, system, user)
}

// GenerateImage produces raw image bytes from a visual description using a
// Gemini image model. Used for story cover art.
func (g *GeminiInferencer) GenerateImage(ctx context.Context, model, prompt string) ([]byte, error) {
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	result, err := g.client.Models.GenerateContent(
		ctx,
		model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE"}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no image data returned")
}
