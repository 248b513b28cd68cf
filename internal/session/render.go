package session

import (
	"fmt"
	"sort"
	"strings"

	"chronicle/internal/state"
)

// RenderSummary produces the world/NPC digest injected into the
// narrative generation context ahead of each turn.
func RenderSummary(st *state.Store) string {
	var sb strings.Builder

	if ws, ok := st.Get(state.WorldStateKey); ok {
		sb.WriteString("## World\n")
		if date := state.Str(ws, "in_world_date"); date != "" {
			fmt.Fprintf(&sb, "Date: %s\n", date)
		}
		if arc, ok := ws["arc"]; ok {
			fmt.Fprintf(&sb, "Arc %v", arc)
			if chapter, ok := ws["chapter"]; ok {
				fmt.Fprintf(&sb, ", chapter %v", chapter)
			}
			sb.WriteString("\n")
		}
		if situations, ok := ws["active_situations"].([]any); ok && len(situations) > 0 {
			sb.WriteString("Active situations:\n")
			for _, situation := range situations {
				fmt.Fprintf(&sb, "- %s\n", situationText(situation))
			}
		}
		writeStatusMap(&sb, ws, "faction_status", "Factions")
		writeStatusMap(&sb, ws, "territorial_control", "Territory")
		div := state.ReadDivergence(ws)
		if div.Rating > 0 || !div.TimelineReliable {
			fmt.Fprintf(&sb, "Divergence: %d/%d", div.Rating, div.Threshold)
			if !div.TimelineReliable {
				sb.WriteString(" (timeline unreliable)")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	npcs := st.NPCKeys()
	if len(npcs) > 0 {
		sb.WriteString("## Characters\n")
		for _, key := range npcs {
			doc, _ := st.Get(key)
			name := state.Str(doc, "display_name")
			if alias := state.Str(doc, "alias"); alias != "" {
				name += " (" + alias + ")"
			}
			fmt.Fprintf(&sb, "### %s\n", name)
			if faction := state.Str(doc, "faction"); faction != "" {
				fmt.Fprintf(&sb, "Faction: %s\n", faction)
			}
			if current := state.Sub(doc, "current_state"); current != nil {
				for _, field := range []string{"relationship_to_user_character", "emotional_state", "physical_state"} {
					if value, ok := current[field].(string); ok && value != "" {
						fmt.Fprintf(&sb, "%s: %s\n", strings.ReplaceAll(field, "_", " "), value)
					}
				}
			}
			if note := state.Str(doc, "critical_note"); note != "" {
				fmt.Fprintf(&sb, "Note: %s\n", note)
			}
		}
	}

	return strings.TrimSpace(sb.String())
}

func writeStatusMap(sb *strings.Builder, ws state.Document, field, heading string) {
	statuses := state.Sub(ws, field)
	if len(statuses) == 0 {
		return
	}
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(sb, "%s:\n", heading)
	for _, name := range names {
		fmt.Fprintf(sb, "- %s: %v\n", name, statuses[name])
	}
}

func situationText(situation any) string {
	switch v := situation.(type) {
	case string:
		return v
	case map[string]any:
		if summary, ok := v["summary"].(string); ok {
			return summary
		}
		if name, ok := v["name"].(string); ok {
			return name
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
