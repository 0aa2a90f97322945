// Package wizard models the free-form story flow as an explicit,
// serializable StoryConfig value updated through a reducer-style patch
// function, with step gating expressed as pure predicates.
package wizard

import (
	"strings"

	"fable/pkg/fault"
	"fable/pkg/schema"
)

// Step is one screen of the free-form wizard.
type Step string

const (
	StepKind       Step = "kind"
	StepTopic      Step = "topic"
	StepCharacters Step = "characters"
	StepReview     Step = "review"
)

// Steps lists the wizard screens in order.
var Steps = []Step{StepKind, StepTopic, StepCharacters, StepReview}

// Patch carries the fields one step may change. Nil fields leave the
// config untouched, so steps never clobber each other's state.
type Patch struct {
	Kind         *schema.StoryKind `json:"kind,omitempty"`
	Topic        *string           `json:"topic,omitempty"`
	Genre        *string           `json:"genre,omitempty"`
	CharacterIDs []string          `json:"character_ids,omitempty"`
	AgeGroup     *string           `json:"age_group,omitempty"`
	Chapters     *int              `json:"chapters,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
}

// Apply returns config with the patch folded in.
func Apply(config schema.StoryConfig, patch Patch) schema.StoryConfig {
	if patch.Kind != nil {
		config.Kind = *patch.Kind
	}
	if patch.Topic != nil {
		config.Topic = *patch.Topic
	}
	if patch.Genre != nil {
		config.Genre = *patch.Genre
	}
	if patch.CharacterIDs != nil {
		config.CharacterIDs = patch.CharacterIDs
	}
	if patch.AgeGroup != nil {
		config.AgeGroup = *patch.AgeGroup
	}
	if patch.Chapters != nil {
		config.Chapters = *patch.Chapters
	}
	if patch.Notes != nil {
		config.Notes = *patch.Notes
	}
	return config
}

// CanProceed reports whether the config has what the given step requires.
func CanProceed(step Step, config schema.StoryConfig) bool {
	switch step {
	case StepKind:
		return config.Kind == schema.KindStory || config.Kind == schema.KindDocumentary
	case StepTopic:
		return strings.TrimSpace(config.Topic) != "" || strings.TrimSpace(config.Genre) != ""
	case StepCharacters:
		return len(config.CharacterIDs) > 0
	case StepReview:
		return ValidateForGeneration(config) == nil
	default:
		return false
	}
}

// ValidateForGeneration is the free-form precondition gate: at least one
// selected character and a non-empty topic or genre. Runs before any
// backend effect.
func ValidateForGeneration(config schema.StoryConfig) error {
	if len(config.CharacterIDs) == 0 {
		return fault.Errorf(fault.InvalidInput, "no characters selected")
	}
	if strings.TrimSpace(config.Topic) == "" && strings.TrimSpace(config.Genre) == "" {
		return fault.Errorf(fault.InvalidInput, "topic or genre is required")
	}
	return nil
}
