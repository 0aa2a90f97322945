package assignment

import (
	"reflect"
	"testing"

	"fable/pkg/schema"
)

func intp(v int) *int { return &v }

func char(id string, attrs schema.CharacterAttributes) schema.CharacterProfile {
	return schema.CharacterProfile{CharacterID: id, DisplayName: id, Attributes: attrs}
}

func ids(chars []schema.CharacterProfile) []string {
	out := make([]string, 0, len(chars))
	for _, ch := range chars {
		out = append(out, ch.CharacterID)
	}
	return out
}

func TestMatchCandidates(t *testing.T) {
	chars := []schema.CharacterProfile{
		char("a", schema.CharacterAttributes{Age: intp(8)}),
		char("b", schema.CharacterAttributes{Age: intp(14)}),
		char("c", schema.CharacterAttributes{}),
		char("d", schema.CharacterAttributes{Age: intp(7), Gender: "Female", Archetype: "trickster"}),
	}

	tests := []struct {
		name       string
		role       schema.RoleDefinition
		wantStrict []string
	}{
		{
			name:       "no constraints matches everyone",
			role:       schema.RoleDefinition{RoleID: "sidekick"},
			wantStrict: []string{"a", "b", "c", "d"},
		},
		{
			name: "age range",
			role: schema.RoleDefinition{
				RoleID:      "hero",
				Constraints: schema.RoleConstraints{MinAge: intp(6), MaxAge: intp(10)},
			},
			// c has no age and is never disqualified by it
			wantStrict: []string{"a", "c", "d"},
		},
		{
			name: "min age only",
			role: schema.RoleDefinition{
				RoleID:      "elder",
				Constraints: schema.RoleConstraints{MinAge: intp(10)},
			},
			wantStrict: []string{"b", "c"},
		},
		{
			name: "gender is case-insensitive",
			role: schema.RoleDefinition{
				RoleID:      "princess",
				Constraints: schema.RoleConstraints{Gender: "female"},
			},
			wantStrict: []string{"a", "b", "c", "d"},
		},
		{
			name: "archetype is exact",
			role: schema.RoleDefinition{
				RoleID:      "fox",
				Constraints: schema.RoleConstraints{Archetype: "Trickster"},
			},
			// d declares "trickster" which does not match exactly
			wantStrict: []string{"a", "b", "c"},
		},
		{
			name: "all constraints combined",
			role: schema.RoleDefinition{
				RoleID: "young-trickster",
				Constraints: schema.RoleConstraints{
					MinAge: intp(6), MaxAge: intp(10),
					Gender:    "FEMALE",
					Archetype: "trickster",
				},
			},
			wantStrict: []string{"a", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchCandidates(tt.role, chars)

			if gotIDs := ids(got.Strict); !reflect.DeepEqual(gotIDs, tt.wantStrict) {
				t.Errorf("strict = %v, want %v", gotIDs, tt.wantStrict)
			}
			if !reflect.DeepEqual(ids(got.All), ids(chars)) {
				t.Errorf("all = %v, want full input list", ids(got.All))
			}

			// Strict is always a subset of All, in input order.
			pos := 0
			for _, sc := range got.Strict {
				found := false
				for ; pos < len(got.All); pos++ {
					if got.All[pos].CharacterID == sc.CharacterID {
						found = true
						pos++
						break
					}
				}
				if !found {
					t.Errorf("strict candidate %s out of order or missing from all", sc.CharacterID)
				}
			}
		})
	}
}

func TestMatchCandidatesNoStrictMatch(t *testing.T) {
	role := schema.RoleDefinition{
		RoleID:      "hero",
		Constraints: schema.RoleConstraints{MinAge: intp(6), MaxAge: intp(10)},
	}
	chars := []schema.CharacterProfile{
		char("b", schema.CharacterAttributes{Age: intp(14)}),
	}

	got := MatchCandidates(role, chars)
	if len(got.Strict) != 0 {
		t.Errorf("strict = %v, want empty", ids(got.Strict))
	}
	if len(got.All) != 1 {
		t.Errorf("all = %v, want fallback with full list", ids(got.All))
	}
}

func TestAssignUnassignRoundTrip(t *testing.T) {
	before := schema.RoleAssignmentMap{"sidekick": "c"}

	after := Assign(before, "hero", "a")
	if after["hero"] != "a" || after["sidekick"] != "c" {
		t.Fatalf("assign produced %v", after)
	}
	if _, ok := before["hero"]; ok {
		t.Fatal("assign mutated its input map")
	}

	replaced := Assign(after, "hero", "b")
	if replaced["hero"] != "b" {
		t.Errorf("assign should replace existing choice, got %v", replaced["hero"])
	}

	back := Unassign(after, "hero")
	if !reflect.DeepEqual(back, before) {
		t.Errorf("assign then unassign = %v, want %v", back, before)
	}

	noop := Unassign(before, "never-assigned")
	if !reflect.DeepEqual(noop, before) {
		t.Errorf("unassign of absent role = %v, want unchanged", noop)
	}
}

func TestValidate(t *testing.T) {
	roles := []schema.RoleDefinition{
		{RoleID: "hero", Required: true, Constraints: schema.RoleConstraints{MinAge: intp(6), MaxAge: intp(10)}},
		{RoleID: "sidekick"},
	}

	empty := Validate(schema.RoleAssignmentMap{}, roles)
	if empty.OK {
		t.Error("empty map should not validate")
	}
	if !reflect.DeepEqual(empty.MissingRoleIDs, []string{"hero"}) {
		t.Errorf("missing = %v, want [hero]", empty.MissingRoleIDs)
	}

	complete := Validate(Assign(nil, "hero", "a"), roles)
	if !complete.OK {
		t.Errorf("map with hero assigned should validate, missing %v", complete.MissingRoleIDs)
	}

	// Optional roles never block.
	onlyOptional := Validate(schema.RoleAssignmentMap{"sidekick": "c"}, roles)
	if onlyOptional.OK {
		t.Error("assigning only the optional role should not satisfy the required one")
	}
}
