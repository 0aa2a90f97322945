package pipeline

import (
	"fable/pkg/assignment"
	"fable/pkg/fault"
	"fable/pkg/schema"
	"fable/pkg/wizard"
)

// Input is the payload for one generation attempt: either a validated role
// assignment against a template, or a free-form wizard config. Exactly one
// of the two shapes must be populated.
type Input struct {
	// Template-based flow.
	TemplateID  string                    `json:"template_id,omitempty"`
	Roles       []schema.RoleDefinition   `json:"roles,omitempty"`
	Assignments schema.RoleAssignmentMap  `json:"assignments,omitempty"`
	Characters  []schema.CharacterProfile `json:"characters,omitempty"`

	// Free-form flow.
	Config *schema.StoryConfig `json:"config,omitempty"`
}

// Validate enforces the generation preconditions. Every violation is an
// InvalidInput caught before any backend effect.
func (in Input) Validate() error {
	switch {
	case in.Config != nil && in.TemplateID != "":
		return fault.Errorf(fault.InvalidInput, "template and free-form input are mutually exclusive")
	case in.Config != nil:
		return wizard.ValidateForGeneration(*in.Config)
	case in.TemplateID != "":
		if result := assignment.Validate(in.Assignments, in.Roles); !result.OK {
			return fault.Errorf(fault.InvalidInput, "required roles unassigned: %v", result.MissingRoleIDs)
		}
		return nil
	default:
		return fault.Errorf(fault.InvalidInput, "template or free-form input is required")
	}
}

// character resolves an assigned character ID against the session's
// character list.
func (in Input) character(id string) (schema.CharacterProfile, bool) {
	for _, ch := range in.Characters {
		if ch.CharacterID == id {
			return ch, true
		}
	}
	return schema.CharacterProfile{}, false
}
