// Package assignment matches user characters against template role
// constraints and gates generation on completeness. Every function here is
// total and pure: callers mutate nothing, and malformed input is a caller
// bug rather than a runtime error.
package assignment

import (
	"maps"
	"strings"

	"fable/pkg/schema"
)

// Candidates classifies characters for one role. Strict holds characters
// satisfying every declared constraint, in input order. All always holds the
// full input list so the UI can offer a fallback when nothing matches
// strictly; it never hard-blocks on a constraint mismatch.
type Candidates struct {
	Strict []schema.CharacterProfile `json:"strict"`
	All    []schema.CharacterProfile `json:"all"`
}

// MatchCandidates returns the strict and fallback candidates for a role.
// Ordering is stable and equal to the input ordering; there is no ranking by
// match quality.
func MatchCandidates(role schema.RoleDefinition, characters []schema.CharacterProfile) Candidates {
	out := Candidates{
		Strict: make([]schema.CharacterProfile, 0, len(characters)),
		All:    characters,
	}
	for _, ch := range characters {
		if Satisfies(role.Constraints, ch.Attributes) {
			out.Strict = append(out.Strict, ch)
		}
	}
	return out
}

// Satisfies reports whether attrs meet every declared constraint. An absent
// attribute is treated as unconstrained, not failing: unknown data never
// disqualifies a character.
func Satisfies(c schema.RoleConstraints, attrs schema.CharacterAttributes) bool {
	if attrs.Age != nil {
		if c.MinAge != nil && *attrs.Age < *c.MinAge {
			return false
		}
		if c.MaxAge != nil && *attrs.Age > *c.MaxAge {
			return false
		}
	}
	if c.Gender != "" && attrs.Gender != "" && !strings.EqualFold(attrs.Gender, c.Gender) {
		return false
	}
	if c.Archetype != "" && attrs.Archetype != "" && attrs.Archetype != c.Archetype {
		return false
	}
	return true
}

// Assign returns a copy of m with roleID mapped to characterID, replacing
// any previous choice. Constraint satisfaction is advisory here; the UI may
// assign any character it offered.
func Assign(m schema.RoleAssignmentMap, roleID, characterID string) schema.RoleAssignmentMap {
	out := make(schema.RoleAssignmentMap, len(m)+1)
	maps.Copy(out, m)
	out[roleID] = characterID
	return out
}

// Unassign returns a copy of m without an entry for roleID. A no-op when the
// role was never assigned.
func Unassign(m schema.RoleAssignmentMap, roleID string) schema.RoleAssignmentMap {
	out := make(schema.RoleAssignmentMap, len(m))
	maps.Copy(out, m)
	delete(out, roleID)
	return out
}

// ValidationResult reports whether a map is complete enough to generate.
type ValidationResult struct {
	OK             bool     `json:"ok"`
	MissingRoleIDs []string `json:"missing_role_ids,omitempty"`
}

// Validate lists the required roles of the template that have no assignment.
// This is the single gate for template-based generation and is cheap enough
// to re-run on every mutation of the map.
func Validate(m schema.RoleAssignmentMap, roles []schema.RoleDefinition) ValidationResult {
	var missing []string
	for _, role := range roles {
		if !role.Required {
			continue
		}
		if _, ok := m[role.RoleID]; !ok {
			missing = append(missing, role.RoleID)
		}
	}
	return ValidationResult{OK: len(missing) == 0, MissingRoleIDs: missing}
}
