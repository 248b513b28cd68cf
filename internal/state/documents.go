// Package state holds the in-memory document set for a roleplay session:
// the world-state singleton, the arc-event ledger, one document per NPC,
// and the scenario master index. The session controller owns the store;
// nothing in this package locks.
package state

import "sort"

const (
	WorldStateKey  = "world_state"
	ArcEventsKey   = "arc_events"
	MasterIndexKey = "master_index"
)

// Arc-event player statuses.
const (
	StatusPending      = "pending"
	StatusFiredCanon   = "fired-canon"
	StatusFiredAltered = "fired-altered"
	StatusSkipped      = "skipped"
)

// Document is one JSON-like entry in the session's entity store.
type Document = map[string]any

// Store maps document keys to documents for one session.
type Store struct {
	docs map[string]Document
}

func NewStore() *Store {
	return &Store{docs: make(map[string]Document)}
}

// Replace swaps in a full document set, e.g. after a remote fetch.
func (s *Store) Replace(docs map[string]Document) {
	s.docs = make(map[string]Document, len(docs))
	for key, doc := range docs {
		s.docs[key] = doc
	}
}

func (s *Store) Get(key string) (Document, bool) {
	doc, ok := s.docs[key]
	return doc, ok
}

func (s *Store) Put(key string, doc Document) {
	s.docs[key] = doc
}

func (s *Store) Len() int {
	return len(s.docs)
}

// Keys returns all document keys in sorted order. Resolution and
// rendering iterate in this order so ties break deterministically.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.docs))
	for key := range s.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Documents returns a deep copy of the full document set. Persistence
// encodes the copy off the owning goroutine, so it must not share
// inner maps with live documents.
func (s *Store) Documents() map[string]Document {
	out := make(map[string]Document, len(s.docs))
	for key, doc := range s.docs {
		out[key] = cloneValue(doc).(map[string]any)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for field, item := range v {
			out[field] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}

// WorldState returns the world-state singleton, creating it if absent.
func (s *Store) WorldState() Document {
	doc, ok := s.docs[WorldStateKey]
	if !ok {
		doc = Document{}
		s.docs[WorldStateKey] = doc
	}
	return doc
}

// ArcEvents returns the arc-event ledger, creating it if absent.
func (s *Store) ArcEvents() Document {
	doc, ok := s.docs[ArcEventsKey]
	if !ok {
		doc = Document{}
		s.docs[ArcEventsKey] = doc
	}
	return doc
}

// NPCKeys returns the keys of every document classified as an NPC,
// in sorted order.
func (s *Store) NPCKeys() []string {
	var keys []string
	for _, key := range s.Keys() {
		if Classify(key, s.docs[key]) == KindNPC {
			keys = append(keys, key)
		}
	}
	return keys
}

// Str reads a string field from a document, tolerating absence and
// non-string values.
func Str(doc Document, field string) string {
	if doc == nil {
		return ""
	}
	s, _ := doc[field].(string)
	return s
}

// StrSlice reads a field holding a list of strings, tolerating []any
// as decoded from JSON.
func StrSlice(doc Document, field string) []string {
	if doc == nil {
		return nil
	}
	switch v := doc[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Sub reads a nested object field, tolerating absence.
func Sub(doc Document, field string) Document {
	if doc == nil {
		return nil
	}
	m, _ := doc[field].(map[string]any)
	return m
}
