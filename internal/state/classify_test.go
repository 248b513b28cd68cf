package state

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		key  string
		doc  Document
		want Kind
	}{
		{
			name: "reserved world state key",
			key:  WorldStateKey,
			doc:  Document{},
			want: KindWorldState,
		},
		{
			name: "reserved arc events key",
			key:  ArcEventsKey,
			doc:  Document{},
			want: KindArcEvents,
		},
		{
			name: "reserved master index key",
			key:  MasterIndexKey,
			doc:  Document{},
			want: KindMasterIndex,
		},
		{
			name: "npc with power block",
			key:  "taylor_hebert",
			doc: Document{
				"display_name": "Taylor Hebert",
				"power":        map[string]any{"summary": "insect control"},
			},
			want: KindNPC,
		},
		{
			name: "npc with abilities",
			key:  "armsmaster",
			doc: Document{
				"display_name": "Armsmaster",
				"abilities":    []any{"tinker"},
			},
			want: KindNPC,
		},
		{
			name: "display name alone is not an npc",
			key:  "someone",
			doc:  Document{"display_name": "Someone"},
			want: KindUnknown,
		},
		{
			name: "world state by shape",
			key:  "imported_world",
			doc:  Document{"active_situations": []any{}},
			want: KindWorldState,
		},
		{
			name: "world state by date and arc",
			key:  "imported_world",
			doc:  Document{"in_world_date": "April 12, 2011", "arc": 3},
			want: KindWorldState,
		},
		{
			name: "arc events by arc field",
			key:  "imported_events",
			doc:  Document{"arc_1": map[string]any{}},
			want: KindArcEvents,
		},
		{
			name: "master index by shape",
			key:  "imported_index",
			doc:  Document{"current_arc": 1, "active_npcs": []any{}},
			want: KindMasterIndex,
		},
		{
			name: "nil document",
			key:  "mystery",
			doc:  nil,
			want: KindUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.key, tc.doc); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.key, got, tc.want)
			}
		})
	}
}
