package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"

	"fable/pkg/fault"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

// generate issues the single backend call of a run and decodes the result.
// Every failure path returns a classified error.
func (r *Runner) generate(ctx context.Context, input Input) (*schema.Story, error) {
	user := buildUserPrompt(input)

	if budget := r.PromptBudget; budget > 0 {
		if n := utils.CountTokens(storyPrompt + user); n > budget {
			return nil, fault.Errorf(fault.ContentTooLong, "prompt is %d tokens, budget is %d", n, budget)
		}
	}

	if r.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CallTimeout)
		defer cancel()
	}

	params := &openai.ChatCompletionNewParams{
		ResponseFormat: schema.StoryResponseFormat(),
	}
	out, err := r.inf.Infer(ctx, params, storyPrompt, user)
	if err != nil {
		return nil, classify(err)
	}

	var story schema.Story
	if err := json.Unmarshal([]byte(utils.ExtractJSON(out)), &story); err != nil {
		return nil, fault.Errorf(fault.Unknown, "decoding generated story: %w", err)
	}
	if story.Title == "" && len(story.Chapters) == 0 {
		return nil, fault.Errorf(fault.Unknown, "backend returned an empty story")
	}

	return &story, nil
}

// classify maps a backend error onto the failure taxonomy so the UI can
// present differentiated guidance.
func classify(err error) error {
	switch kind := fault.KindOf(err); kind {
	case fault.Timeout, fault.Canceled:
		return fault.New(kind, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context length") ||
		strings.Contains(msg, "maximum context") ||
		strings.Contains(msg, "too long") ||
		strings.Contains(msg, "max_tokens"):
		return fault.New(fault.ContentTooLong, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return fault.New(fault.Timeout, err)
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "service unavailable") ||
		strings.Contains(msg, "bad gateway"):
		return fault.New(fault.Unavailable, err)
	default:
		return fault.New(fault.Unknown, err)
	}
}

func buildUserPrompt(input Input) string {
	var b strings.Builder

	if input.Config != nil {
		cfg := input.Config
		kind := cfg.Kind
		if kind == "" {
			kind = schema.KindStory
		}
		fmt.Fprintf(&b, "Write a %s for children", kind)
		if cfg.AgeGroup != "" {
			fmt.Fprintf(&b, " aged %s", cfg.AgeGroup)
		}
		b.WriteString(".\n")
		if cfg.Topic != "" {
			fmt.Fprintf(&b, "Topic: %s\n", cfg.Topic)
		}
		if cfg.Genre != "" {
			fmt.Fprintf(&b, "Genre: %s\n", cfg.Genre)
		}
		if cfg.Chapters > 0 {
			fmt.Fprintf(&b, "Number of chapters: %d\n", cfg.Chapters)
		}
		if len(cfg.CharacterIDs) > 0 {
			fmt.Fprintf(&b, "Featured characters: %s\n", strings.Join(cfg.CharacterIDs, ", "))
		}
		if cfg.Notes != "" {
			fmt.Fprintf(&b, "Additional notes: %s\n", cfg.Notes)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Write a personalized fairy tale based on template %q.\n", input.TemplateID)
	b.WriteString("Cast:\n")
	for _, role := range input.Roles {
		id, ok := input.Assignments[role.RoleID]
		if !ok {
			continue
		}
		ch, found := input.character(id)
		name := id
		if found {
			name = ch.DisplayName
		}
		fmt.Fprintf(&b, "- %s (%s)", name, role.DisplayName)
		if role.Description != "" {
			fmt.Fprintf(&b, ": %s", role.Description)
		}
		if found {
			attrs := describeAttributes(ch.Attributes)
			if attrs != "" {
				fmt.Fprintf(&b, " [%s]", attrs)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describeAttributes(a schema.CharacterAttributes) string {
	var parts []string
	if a.Age != nil {
		parts = append(parts, fmt.Sprintf("%d years old", *a.Age))
	}
	if a.Gender != "" {
		parts = append(parts, a.Gender)
	}
	if a.Archetype != "" {
		parts = append(parts, a.Archetype)
	}
	return strings.Join(parts, ", ")
}
