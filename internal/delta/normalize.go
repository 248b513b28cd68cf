package delta

import (
	"fmt"
	"time"

	"chronicle/internal/state"
)

// Normalizer converts a parsed state-update block or model response
// into a canonical Delta, resolving free-text character names against
// the session store. It never fails: malformed or missing fields are
// treated as absent, and updates for unresolvable names are dropped
// without blocking the rest of the delta.
type Normalizer struct {
	Store *state.Store

	// Now is overridable for tests; zero value uses time.Now.
	Now func() time.Time
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Normalize builds the canonical delta from a raw delta-shaped object.
func (n *Normalizer) Normalize(src map[string]any) *Delta {
	d := &Delta{}
	if src == nil {
		return d
	}

	if v, ok := toNumber(src["divergence_delta"]); ok && v > 0 {
		d.DivergenceDelta = v
	}

	worldState := objectField(src, "world_state")
	if date, ok := src["in_world_date"].(string); ok && date != "" {
		d.InWorldDate = date
	} else if date, ok := worldState["in_world_date"].(string); ok && date != "" {
		d.InWorldDate = date
	}

	if len(worldState) > 0 {
		ws := make(map[string]any, len(worldState))
		for field, value := range worldState {
			if field == "in_world_date" {
				continue
			}
			ws[field] = value
		}
		if len(ws) > 0 {
			d.WorldState = ws
		}
	}

	n.normalizeArcEvents(src, d)
	n.normalizeNPCUpdates(src, d)
	n.mergeDirectMaps(src, d)

	if list, ok := src["new_npcs"].([]any); ok {
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := entry["display_name"].(string)
			if name == "" {
				continue
			}
			npc := NewNPC{DisplayName: name}
			npc.Alias, _ = entry["alias"].(string)
			npc.Aliases = stringList(entry["aliases"])
			npc.Faction, _ = entry["faction"].(string)
			npc.FirstAppeared, _ = entry["first_appeared"].(string)
			d.NewNPCs = append(d.NewNPCs, npc)
		}
	}

	return d
}

func (n *Normalizer) normalizeArcEvents(src map[string]any, d *Delta) {
	if events := objectField(src, "arc_events"); len(events) > 0 {
		d.ArcEvents = make(map[string]string, len(events))
		for id, status := range events {
			if s, ok := status.(string); ok && s != "" {
				d.ArcEvents[id] = s
			}
		}
		if len(d.ArcEvents) == 0 {
			d.ArcEvents = nil
		}
	}

	// Legacy block shape: a single free-text arc_event field.
	if raw, ok := src["arc_event"]; ok && raw != nil {
		id := state.EventID(raw, n.now())
		if d.ArcEvents == nil {
			d.ArcEvents = make(map[string]string, 1)
		}
		d.ArcEvents[id] = state.StatusFiredCanon
	}
}

func (n *Normalizer) normalizeNPCUpdates(src map[string]any, d *Delta) {
	if list, ok := src["npc_updates"].([]any); ok {
		for _, item := range list {
			update, ok := item.(map[string]any)
			if !ok {
				continue
			}
			n.applyNPCUpdate(update, d)
		}
	}

	// Legacier shape: {name, change|state}, single object or list,
	// mapped to an emotional_state update.
	for _, raw := range legacyStateChanges(src) {
		name, _ := raw["name"].(string)
		key := n.Store.Resolve(name)
		if key == "" {
			continue
		}
		value, _ := raw["change"].(string)
		if value == "" {
			value, _ = raw["state"].(string)
		}
		if value == "" {
			continue
		}
		mergeEntityField(&d.NPCCurrentState, key, "emotional_state", value)
	}
}

func (n *Normalizer) applyNPCUpdate(update map[string]any, d *Delta) {
	name, _ := update["name"].(string)
	key := n.Store.Resolve(name)
	if key == "" {
		return
	}

	if rel, ok := update["relationship"].(string); ok && rel != "" {
		if d.NPCRelationship == nil {
			d.NPCRelationship = make(map[string]string)
		}
		d.NPCRelationship[key] = rel
	}

	for _, field := range []string{"emotional_state", "physical_state"} {
		if value, ok := update[field].(string); ok && value != "" {
			mergeEntityField(&d.NPCCurrentState, key, field, value)
		}
	}

	if learned, ok := update["learned"]; ok && learned != nil {
		// Timestamp-qualified field names keep repeated learnings in one
		// session from overwriting each other.
		field := fmt.Sprintf("learned_%d", n.now().UnixMilli())
		mergeEntityField(&d.NPCKnowledge, key, field, learned)
	}
}

// mergeDirectMaps folds in per-entity maps already keyed by entity key.
// Additive, last write wins per leaf field.
func (n *Normalizer) mergeDirectMaps(src map[string]any, d *Delta) {
	for key, fields := range entityMap(src, "npc_knowledge") {
		for field, value := range fields {
			mergeEntityField(&d.NPCKnowledge, key, field, value)
		}
	}
	for key, fields := range entityMap(src, "npc_current_state") {
		for field, value := range fields {
			mergeEntityField(&d.NPCCurrentState, key, field, value)
		}
	}
	for key, fields := range entityMap(src, "npc_appearance") {
		for field, value := range fields {
			mergeEntityField(&d.NPCAppearance, key, field, value)
		}
	}

	if rels := objectField(src, "npc_relationship"); len(rels) > 0 {
		if d.NPCRelationship == nil {
			d.NPCRelationship = make(map[string]string, len(rels))
		}
		for key, value := range rels {
			if s, ok := value.(string); ok && s != "" {
				d.NPCRelationship[key] = s
			}
		}
	}

	if aliases := objectField(src, "npc_aliases"); len(aliases) > 0 {
		for key, raw := range aliases {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			update := AliasUpdate{Aliases: stringList(entry["aliases"])}
			update.Alias, _ = entry["alias"].(string)
			if update.Alias == "" && len(update.Aliases) == 0 {
				continue
			}
			if d.NPCAliases == nil {
				d.NPCAliases = make(map[string]AliasUpdate)
			}
			d.NPCAliases[key] = update
		}
	}
}

func legacyStateChanges(src map[string]any) []map[string]any {
	raw, ok := src["npc_state_change"]
	if !ok {
		raw, ok = src["npc_state_changes"]
	}
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func mergeEntityField(target *map[string]map[string]any, key, field string, value any) {
	if *target == nil {
		*target = make(map[string]map[string]any)
	}
	if (*target)[key] == nil {
		(*target)[key] = make(map[string]any)
	}
	(*target)[key][field] = value
}

func objectField(src map[string]any, field string) map[string]any {
	m, _ := src[field].(map[string]any)
	return m
}

func entityMap(src map[string]any, field string) map[string]map[string]any {
	raw := objectField(src, field)
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]map[string]any, len(raw))
	for key, value := range raw {
		if fields, ok := value.(map[string]any); ok && len(fields) > 0 {
			out[key] = fields
		}
	}
	return out
}

func stringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toNumber(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
