package state

import "strings"

// Resolve maps a free-text character name to an NPC document key.
// Exact key match (via EntityKey) wins; otherwise the first NPC, in
// sorted key order, whose display name, alias, or any alternate name
// contains the candidate as a case-insensitive substring or is
// contained by it. The bidirectional match deliberately tolerates
// partial names and nicknames, at the cost of occasional false
// positives on short names. Returns "" when nothing matches.
func (s *Store) Resolve(name string) string {
	candidate := strings.ToLower(strings.TrimSpace(name))
	if candidate == "" {
		return ""
	}

	if key := EntityKey(name); key != "" {
		if doc, ok := s.docs[key]; ok && Classify(key, doc) == KindNPC {
			return key
		}
	}

	for _, key := range s.Keys() {
		doc := s.docs[key]
		if Classify(key, doc) != KindNPC {
			continue
		}
		names := []string{Str(doc, "display_name"), Str(doc, "alias")}
		names = append(names, StrSlice(doc, "aliases")...)
		for _, known := range names {
			known = strings.ToLower(strings.TrimSpace(known))
			if known == "" {
				continue
			}
			if strings.Contains(known, candidate) || strings.Contains(candidate, known) {
				return key
			}
		}
	}
	return ""
}

// Mentions reports whether the text names any known NPC by display
// name, alias, or alternate name. The rescan orphan filter uses this to
// drop turns with no recognizable character.
func (s *Store) Mentions(text string) bool {
	lowered := strings.ToLower(text)
	for _, key := range s.Keys() {
		doc := s.docs[key]
		if Classify(key, doc) != KindNPC {
			continue
		}
		names := []string{Str(doc, "display_name"), Str(doc, "alias")}
		names = append(names, StrSlice(doc, "aliases")...)
		for _, known := range names {
			known = strings.ToLower(strings.TrimSpace(known))
			if known != "" && strings.Contains(lowered, known) {
				return true
			}
		}
	}
	return false
}
