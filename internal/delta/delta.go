// Package delta defines the canonical change set extracted from one
// narrative cycle and the normalization that produces it from either an
// inline state-update block or a raw model response.
package delta

// AliasUpdate carries new naming for an existing NPC.
type AliasUpdate struct {
	Alias   string   `json:"alias,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// NewNPC describes a character seen for the first time.
type NewNPC struct {
	DisplayName   string   `json:"display_name"`
	Alias         string   `json:"alias,omitempty"`
	Aliases       []string `json:"aliases,omitempty"`
	Faction       string   `json:"faction,omitempty"`
	FirstAppeared string   `json:"first_appeared,omitempty"`
}

// Delta is the canonical, category-keyed representation of every change
// detected in one extraction cycle. All fields are optional; per-entity
// maps are keyed by entity key, not free-text name.
type Delta struct {
	DivergenceDelta int                       `json:"divergence_delta,omitempty"`
	InWorldDate     string                    `json:"in_world_date,omitempty"`
	WorldState      map[string]any            `json:"world_state,omitempty"`
	ArcEvents       map[string]string         `json:"arc_events,omitempty"`
	NPCKnowledge    map[string]map[string]any `json:"npc_knowledge,omitempty"`
	NPCRelationship map[string]string         `json:"npc_relationship,omitempty"`
	NPCCurrentState map[string]map[string]any `json:"npc_current_state,omitempty"`
	NPCAppearance   map[string]map[string]any `json:"npc_appearance,omitempty"`
	NPCAliases      map[string]AliasUpdate    `json:"npc_aliases,omitempty"`
	NewNPCs         []NewNPC                  `json:"new_npcs,omitempty"`
}

// Empty reports whether the delta carries no changes at all.
func (d *Delta) Empty() bool {
	if d == nil {
		return true
	}
	return d.DivergenceDelta <= 0 &&
		d.InWorldDate == "" &&
		len(d.WorldState) == 0 &&
		len(d.ArcEvents) == 0 &&
		len(d.NPCKnowledge) == 0 &&
		len(d.NPCRelationship) == 0 &&
		len(d.NPCCurrentState) == 0 &&
		len(d.NPCAppearance) == 0 &&
		len(d.NPCAliases) == 0 &&
		len(d.NewNPCs) == 0
}
