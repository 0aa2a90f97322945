package schema

// RoleDefinition is one narrative slot in a story template. The template
// catalog owns these; they are immutable for the lifetime of a selection
// session.
type RoleDefinition struct {
	RoleID      string          `json:"role_id"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description,omitempty"`
	Required    bool            `json:"required"`
	Constraints RoleConstraints `json:"constraints,omitempty"`
}

// RoleConstraints are optional predicates a character should satisfy to be a
// strict candidate for a role. Nil/empty fields declare no constraint.
type RoleConstraints struct {
	MinAge    *int   `json:"min_age,omitempty"`
	MaxAge    *int   `json:"max_age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Archetype string `json:"archetype,omitempty"`
}

// Empty reports whether the role declares no constraints at all.
func (rc RoleConstraints) Empty() bool {
	return rc.MinAge == nil && rc.MaxAge == nil && rc.Gender == "" && rc.Archetype == ""
}

// CharacterProfile is a user-owned character available for assignment.
// Fetched once per session from the character store and read-only here.
type CharacterProfile struct {
	CharacterID string              `json:"character_id"`
	DisplayName string              `json:"display_name"`
	ImageRef    string              `json:"image_ref,omitempty"`
	Attributes  CharacterAttributes `json:"attributes,omitempty"`
}

// CharacterAttributes carry the metadata the matcher looks at. Absent
// attributes never disqualify a character.
type CharacterAttributes struct {
	Age       *int   `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Archetype string `json:"archetype,omitempty"`
}

// RoleAssignmentMap maps role IDs to character IDs. One character may fill
// several roles; reuse prevention is caller policy.
type RoleAssignmentMap map[string]string
