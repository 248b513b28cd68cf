package review

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"chronicle/internal/delta"
	"chronicle/internal/state"
)

// Change kinds.
const (
	KindDivergence   = "divergence"
	KindWorldDate    = "world_date"
	KindWorldState   = "world_state"
	KindArcEvent     = "arc_event"
	KindKnowledge    = "npc_knowledge"
	KindRelationship = "npc_relationship"
	KindCurrentState = "npc_current_state"
	KindAppearance   = "npc_appearance"
	KindAliases      = "npc_aliases"
	KindNewNPC       = "new_npc"
)

const descValueCap = 80

// Reconciler expands canonical deltas into proposed changes against the
// session store. Previous values are read at proposal time; commits
// mutate the live store, last committed wins.
type Reconciler struct {
	State *state.Store

	// Now is overridable for tests; zero value uses time.Now.
	Now func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Propose expands d into zero or more proposed changes, one per atomic
// field-level change.
func (r *Reconciler) Propose(d *delta.Delta) []*Change {
	if d.Empty() {
		return nil
	}

	var changes []*Change
	changes = append(changes, r.proposeDivergence(d)...)
	changes = append(changes, r.proposeWorldDate(d)...)
	changes = append(changes, r.proposeWorldState(d)...)
	changes = append(changes, r.proposeArcEvents(d)...)
	changes = append(changes, r.proposeKnowledge(d)...)
	changes = append(changes, r.proposeRelationships(d)...)
	changes = append(changes, r.proposeCurrentState(d)...)
	changes = append(changes, r.proposeAppearance(d)...)
	changes = append(changes, r.proposeAliases(d)...)
	changes = append(changes, r.proposeNewNPCs(d)...)
	return changes
}

func (r *Reconciler) proposeDivergence(d *delta.Delta) []*Change {
	if d.DivergenceDelta <= 0 {
		return nil
	}
	amount := d.DivergenceDelta
	div := state.ReadDivergence(r.State.WorldState())
	desc := fmt.Sprintf("Divergence +%d (rating %d -> %d)", amount, div.Rating, div.Rating+amount)
	return []*Change{newChange(KindDivergence, "", desc, div.Rating, div.Rating+amount, func() error {
		state.ApplyDivergence(r.State.WorldState(), amount, r.now())
		return nil
	})}
}

func (r *Reconciler) proposeWorldDate(d *delta.Delta) []*Change {
	if d.InWorldDate == "" {
		return nil
	}
	date := d.InWorldDate
	ws := r.State.WorldState()
	previous := ws["in_world_date"]
	desc := fmt.Sprintf("In-world date: %s -> %s", anyString(previous), truncate(date))
	return []*Change{newChange(KindWorldDate, "", desc, previous, date, func() error {
		r.State.WorldState()["in_world_date"] = date
		return nil
	})}
}

func (r *Reconciler) proposeWorldState(d *delta.Delta) []*Change {
	var changes []*Change
	ws := r.State.WorldState()
	for _, field := range sortedKeys(d.WorldState) {
		field, value := field, d.WorldState[field]
		previous := ws[field]
		desc := fmt.Sprintf("World %s: %s -> %s", field, anyString(previous), anyString(value))
		changes = append(changes, newChange(KindWorldState, "", desc, previous, value, func() error {
			r.State.WorldState()[field] = value
			return nil
		}))
	}
	return changes
}

func (r *Reconciler) proposeArcEvents(d *delta.Delta) []*Change {
	var changes []*Change
	events := r.State.ArcEvents()
	for _, eventID := range sortedKeys(d.ArcEvents) {
		eventID, status := eventID, d.ArcEvents[eventID]
		arcKey := findArcFor(events, eventID)
		if arcKey == "" {
			arcKey = r.currentArcKey()
		}
		var previous any
		previous, _ = delta.GetPath(events, arcKey+"."+eventID+".player_status")
		desc := fmt.Sprintf("Event %s: %s -> %s", eventID, anyString(previous), status)
		changes = append(changes, newChange(KindArcEvent, "", desc, previous, status, func() error {
			events := r.State.ArcEvents()
			delta.SetPath(events, arcKey+"."+eventID+".player_status", status)
			if _, ok := delta.GetPath(events, arcKey+"."+eventID+".summary"); !ok {
				delta.SetPath(events, arcKey+"."+eventID+".summary", humanize(eventID))
			}
			return nil
		}))
	}
	return changes
}

func (r *Reconciler) proposeKnowledge(d *delta.Delta) []*Change {
	var changes []*Change
	for _, entityKey := range sortedKeys(d.NPCKnowledge) {
		key := r.entityKey(entityKey)
		if key == "" {
			continue
		}
		fields := d.NPCKnowledge[entityKey]
		name := r.displayName(key)
		for _, fieldPath := range sortedKeys(fields) {
			fieldPath, value := fieldPath, fields[fieldPath]
			doc, _ := r.State.Get(key)
			previous, _ := delta.GetPath(doc, "knowledge."+fieldPath)
			desc := fmt.Sprintf("%s learns %s: %s", name, fieldPath, anyString(value))
			changes = append(changes, newChange(KindKnowledge, key, desc, previous, value, func() error {
				doc, ok := r.State.Get(key)
				if !ok {
					return fmt.Errorf("entity %s no longer exists", key)
				}
				delta.SetPath(doc, "knowledge."+fieldPath, value)
				return nil
			}))
		}
	}
	return changes
}

func (r *Reconciler) proposeRelationships(d *delta.Delta) []*Change {
	var changes []*Change
	for _, entityKey := range sortedKeys(d.NPCRelationship) {
		key := r.entityKey(entityKey)
		if key == "" {
			continue
		}
		value := d.NPCRelationship[entityKey]
		doc, _ := r.State.Get(key)
		previous, _ := delta.GetPath(doc, "current_state.relationship_to_user_character")
		desc := fmt.Sprintf("%s relationship: %s -> %s", r.displayName(key), anyString(previous), truncate(value))
		changes = append(changes, newChange(KindRelationship, key, desc, previous, value, func() error {
			doc, ok := r.State.Get(key)
			if !ok {
				return fmt.Errorf("entity %s no longer exists", key)
			}
			delta.SetPath(doc, "current_state.relationship_to_user_character", value)
			return nil
		}))
	}
	return changes
}

// proposeCurrentState yields one change per entity even when the entry
// touches both emotional and physical state.
func (r *Reconciler) proposeCurrentState(d *delta.Delta) []*Change {
	var changes []*Change
	for _, entityKey := range sortedKeys(d.NPCCurrentState) {
		key := r.entityKey(entityKey)
		if key == "" {
			continue
		}
		fields := d.NPCCurrentState[entityKey]
		doc, _ := r.State.Get(key)
		previous := map[string]any{}
		var parts []string
		for _, field := range sortedKeys(fields) {
			if prev, ok := delta.GetPath(doc, "current_state."+field); ok {
				previous[field] = prev
			}
			parts = append(parts, fmt.Sprintf("%s=%s", field, anyString(fields[field])))
		}
		desc := fmt.Sprintf("%s state: %s", r.displayName(key), strings.Join(parts, ", "))
		changes = append(changes, newChange(KindCurrentState, key, desc, previous, fields, func() error {
			doc, ok := r.State.Get(key)
			if !ok {
				return fmt.Errorf("entity %s no longer exists", key)
			}
			for field, value := range fields {
				delta.SetPath(doc, "current_state."+field, value)
			}
			return nil
		}))
	}
	return changes
}

// proposeAppearance suppresses proposals whose fields all match current
// values.
func (r *Reconciler) proposeAppearance(d *delta.Delta) []*Change {
	var changes []*Change
	for _, entityKey := range sortedKeys(d.NPCAppearance) {
		key := r.entityKey(entityKey)
		if key == "" {
			continue
		}
		fields := d.NPCAppearance[entityKey]
		doc, _ := r.State.Get(key)
		current := state.Sub(doc, "appearance")
		noop := true
		for field, value := range fields {
			if !reflect.DeepEqual(current[field], value) {
				noop = false
				break
			}
		}
		if noop {
			continue
		}
		previous := map[string]any{}
		var parts []string
		for _, field := range sortedKeys(fields) {
			if prev, ok := current[field]; ok {
				previous[field] = prev
			}
			parts = append(parts, fmt.Sprintf("%s=%s", field, anyString(fields[field])))
		}
		desc := fmt.Sprintf("%s appearance: %s", r.displayName(key), strings.Join(parts, ", "))
		changes = append(changes, newChange(KindAppearance, key, desc, previous, fields, func() error {
			doc, ok := r.State.Get(key)
			if !ok {
				return fmt.Errorf("entity %s no longer exists", key)
			}
			for field, value := range fields {
				delta.SetPath(doc, "appearance."+field, value)
			}
			return nil
		}))
	}
	return changes
}

func (r *Reconciler) proposeAliases(d *delta.Delta) []*Change {
	var changes []*Change
	for _, entityKey := range sortedKeys(d.NPCAliases) {
		key := r.entityKey(entityKey)
		if key == "" {
			continue
		}
		update := d.NPCAliases[entityKey]
		doc, _ := r.State.Get(key)
		previous := delta.AliasUpdate{
			Alias:   state.Str(doc, "alias"),
			Aliases: state.StrSlice(doc, "aliases"),
		}
		var parts []string
		if update.Alias != "" {
			parts = append(parts, "alias "+truncate(update.Alias))
		}
		if len(update.Aliases) > 0 {
			parts = append(parts, "aliases "+truncate(strings.Join(update.Aliases, ", ")))
		}
		desc := fmt.Sprintf("%s known as: %s", r.displayName(key), strings.Join(parts, "; "))
		changes = append(changes, newChange(KindAliases, key, desc, previous, update, func() error {
			doc, ok := r.State.Get(key)
			if !ok {
				return fmt.Errorf("entity %s no longer exists", key)
			}
			if update.Alias != "" {
				doc["alias"] = update.Alias
			}
			if len(update.Aliases) > 0 {
				doc["aliases"] = mergeAliases(state.StrSlice(doc, "aliases"), update.Aliases)
			}
			return nil
		}))
	}
	return changes
}

// proposeNewNPCs skips entries whose derived key already exists; an NPC
// document is never duplicated.
func (r *Reconciler) proposeNewNPCs(d *delta.Delta) []*Change {
	var changes []*Change
	for _, npc := range d.NewNPCs {
		npc := npc
		key := state.EntityKey(npc.DisplayName)
		if key == "" {
			continue
		}
		if _, exists := r.State.Get(key); exists {
			continue
		}
		if r.State.Resolve(npc.DisplayName) != "" {
			continue
		}
		desc := fmt.Sprintf("New NPC: %s", truncate(npc.DisplayName))
		if npc.Faction != "" {
			desc += fmt.Sprintf(" (%s)", truncate(npc.Faction))
		}
		changes = append(changes, newChange(KindNewNPC, key, desc, nil, npc, func() error {
			if _, exists := r.State.Get(key); exists {
				return nil
			}
			doc := state.Document{"display_name": npc.DisplayName}
			if npc.Alias != "" {
				doc["alias"] = npc.Alias
			}
			if len(npc.Aliases) > 0 {
				doc["aliases"] = npc.Aliases
			}
			if npc.Faction != "" {
				doc["faction"] = npc.Faction
			}
			if npc.FirstAppeared != "" {
				doc["first_appeared"] = npc.FirstAppeared
			}
			doc["power"] = map[string]any{"summary": ""}
			r.State.Put(key, doc)
			return nil
		}))
	}
	return changes
}

// entityKey accepts either an exact document key or a free-text name.
func (r *Reconciler) entityKey(key string) string {
	if doc, ok := r.State.Get(key); ok && state.Classify(key, doc) == state.KindNPC {
		return key
	}
	return r.State.Resolve(key)
}

func (r *Reconciler) displayName(key string) string {
	doc, _ := r.State.Get(key)
	if name := state.Str(doc, "display_name"); name != "" {
		return name
	}
	return key
}

func (r *Reconciler) currentArcKey() string {
	arc := 1
	ws := r.State.WorldState()
	switch v := ws["arc"].(type) {
	case float64:
		arc = int(v)
	case int:
		arc = v
	}
	if arc < 1 {
		arc = 1
	}
	return fmt.Sprintf("arc_%d", arc)
}

func findArcFor(events state.Document, eventID string) string {
	var arcKeys []string
	for key := range events {
		arcKeys = append(arcKeys, key)
	}
	sort.Strings(arcKeys)
	for _, arcKey := range arcKeys {
		if arcEvents, ok := events[arcKey].(map[string]any); ok {
			if _, ok := arcEvents[eventID]; ok {
				return arcKey
			}
		}
	}
	return ""
}

func mergeAliases(current, added []string) []string {
	seen := make(map[string]struct{}, len(current))
	merged := make([]string, 0, len(current)+len(added))
	for _, alias := range current {
		if _, dup := seen[strings.ToLower(alias)]; dup {
			continue
		}
		seen[strings.ToLower(alias)] = struct{}{}
		merged = append(merged, alias)
	}
	for _, alias := range added {
		if _, dup := seen[strings.ToLower(alias)]; dup {
			continue
		}
		seen[strings.ToLower(alias)] = struct{}{}
		merged = append(merged, alias)
	}
	return merged
}

func humanize(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}

func anyString(v any) string {
	if v == nil {
		return "(none)"
	}
	return truncate(fmt.Sprintf("%v", v))
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= descValueCap {
		return s
	}
	return string(runes[:descValueCap-3]) + "..."
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
