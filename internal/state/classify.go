package state

import "regexp"

// Kind tags the recognized document shapes in a session's store.
type Kind int

const (
	KindUnknown Kind = iota
	KindNPC
	KindWorldState
	KindArcEvents
	KindMasterIndex
)

func (k Kind) String() string {
	switch k {
	case KindNPC:
		return "npc"
	case KindWorldState:
		return "world_state"
	case KindArcEvents:
		return "arc_events"
	case KindMasterIndex:
		return "master_index"
	default:
		return "unknown"
	}
}

var arcKeyPattern = regexp.MustCompile(`^arc_\d+$`)

// Classify identifies a document by shape. Reserved keys short-circuit;
// imported documents with arbitrary keys fall through to the shape
// predicates.
func Classify(key string, doc Document) Kind {
	switch key {
	case WorldStateKey:
		return KindWorldState
	case ArcEventsKey:
		return KindArcEvents
	case MasterIndexKey:
		return KindMasterIndex
	}
	if doc == nil {
		return KindUnknown
	}

	if Str(doc, "display_name") != "" {
		if power := Sub(doc, "power"); power != nil {
			return KindNPC
		}
		if _, ok := doc["abilities"]; ok {
			return KindNPC
		}
	}

	if _, ok := doc["active_situations"]; ok {
		return KindWorldState
	}
	if _, ok := doc["faction_status"]; ok {
		return KindWorldState
	}
	if _, ok := doc["territorial_control"]; ok {
		return KindWorldState
	}
	_, hasDate := doc["in_world_date"]
	_, hasArc := doc["arc"]
	if hasDate && hasArc {
		return KindWorldState
	}

	for field := range doc {
		if arcKeyPattern.MatchString(field) {
			return KindArcEvents
		}
	}

	_, hasCurrentArc := doc["current_arc"]
	_, hasActiveNPCs := doc["active_npcs"]
	if hasCurrentArc && hasActiveNPCs {
		return KindMasterIndex
	}
	_, hasSchemaVersion := doc["schema_version"]
	_, hasSetting := doc["setting"]
	if hasSchemaVersion && hasSetting {
		return KindMasterIndex
	}

	return KindUnknown
}
