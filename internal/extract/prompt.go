// Package extract turns narrative text into canonical deltas: it builds
// the extraction instruction, drives the quiet-generation capability
// with rate-limit-aware retries, and batches historical rescans into a
// single call.
package extract

import (
	"encoding/json"
	"strings"

	"chronicle/internal/state"
)

// categoryContract is the fixed instruction block enumerating every
// recognized delta category with its expected shape. The model must
// treat this enumeration as the contract; categories not listed here
// are ignored by the parser.
const categoryContract = `You are a silent state tracker for an ongoing roleplay story. Read the narrative below and report every durable change to the world or its characters as a single JSON object. Use ONLY these top-level fields, each optional:

- "npc_knowledge": {"<entity_key>": {"<dotted.field.path>": value}} - facts a character has learned.
- "npc_relationship": {"<entity_key>": "<relationship to the player's character>"}.
- "npc_current_state": {"<entity_key>": {"emotional_state"?: string, "physical_state"?: string}}.
- "npc_updates": [{"name": "<character name>", "relationship"?: string, "emotional_state"?: string, "physical_state"?: string, "learned"?: string}] - use this when you only know the character's name, not its key.
- "arc_events": {"<event_id>": "pending" | "fired-canon" | "fired-altered" | "skipped"}.
- "new_npcs": [{"display_name": string, "alias"?: string, "aliases"?: [string], "faction"?: string, "first_appeared"?: string}] - characters appearing for the first time only.
- "npc_appearance": {"<entity_key>": {"<visual field>": string}}.
- "npc_aliases": {"<entity_key>": {"alias"?: string, "aliases"?: [string]}}.
- "world_state": {"<field>": value} - flat world facts (faction_status, active_situations, known_secrets, arc, chapter).
- "divergence_delta": positive integer - how far this scene pushed the story off its reference timeline.
- "in_world_date": string - the current in-world date, if it changed.

Report only changes stated or clearly implied by the narrative. Never invent characters or facts.`

const closingInstruction = `Return JSON only. No prose, no explanations, no markdown fencing. If nothing changed, return {}.`

// StateContext is the current-state snapshot serialized into the prompt.
type StateContext struct {
	WorldState  state.Document            `json:"world_state,omitempty"`
	MasterIndex state.Document            `json:"master_index,omitempty"`
	ArcEvents   state.Document            `json:"arc_events,omitempty"`
	ActiveNPCs  map[string]state.Document `json:"active_npcs,omitempty"`
}

// ContextFromStore assembles the prompt snapshot from the session store.
func ContextFromStore(st *state.Store) StateContext {
	sctx := StateContext{}
	if doc, ok := st.Get(state.WorldStateKey); ok {
		sctx.WorldState = doc
	}
	if doc, ok := st.Get(state.MasterIndexKey); ok {
		sctx.MasterIndex = doc
	}
	if doc, ok := st.Get(state.ArcEventsKey); ok {
		sctx.ArcEvents = doc
	}
	npcs := st.NPCKeys()
	if len(npcs) > 0 {
		sctx.ActiveNPCs = make(map[string]state.Document, len(npcs))
		for _, key := range npcs {
			doc, _ := st.Get(key)
			sctx.ActiveNPCs[key] = doc
		}
	}
	return sctx
}

// PromptBuilder assembles extraction instructions. Preamble, when
// configured, is scenario-specific text placed verbatim ahead of the
// generic contract.
type PromptBuilder struct {
	Preamble string
}

// Build produces the full instruction string: preamble (if any), the
// category contract, the serialized state snapshot, the narrative text,
// and the JSON-only closing instruction, in that order.
func (b *PromptBuilder) Build(narrativeText string, sctx StateContext) string {
	snapshot, err := json.MarshalIndent(sctx, "", "  ")
	if err != nil {
		snapshot = []byte("{}")
	}

	var sb strings.Builder
	if b.Preamble != "" {
		sb.WriteString(b.Preamble)
		sb.WriteString("\n\n")
	}
	sb.WriteString(categoryContract)
	sb.WriteString("\n\nCurrent state:\n")
	sb.Write(snapshot)
	sb.WriteString("\n\nNarrative to analyze:\n")
	sb.WriteString(narrativeText)
	sb.WriteString("\n\n")
	sb.WriteString(closingInstruction)
	return sb.String()
}
