package inference

import (
	"context"

	"github.com/openai/openai-go/v3"
)

// Inferencer defines an interface for running model inference.
type Inferencer interface {
	Infer(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error)
	Edit(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error)
}
