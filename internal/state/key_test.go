package state

import (
	"testing"
	"time"
)

func TestEntityKey(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Taylor Hebert", "taylor_hebert"},
		{"  Armsmaster  ", "armsmaster"},
		{"Jean-Paul Vasil", "jean_paul_vasil"},
		{"D.Va", "d_va"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := EntityKey(tc.name); got != tc.want {
			t.Errorf("EntityKey(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEventID(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	t.Run("derives from text", func(t *testing.T) {
		if got := EventID("The Bank Job!", now); got != "the_bank_job" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("truncates long text", func(t *testing.T) {
		got := EventID("a very long event description that keeps going and going", now)
		if len(got) != 40 {
			t.Fatalf("got %d chars: %q", len(got), got)
		}
	})

	t.Run("falls back to timestamp", func(t *testing.T) {
		want := "event_1700000000123"
		if got := EventID(nil, now); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
		if got := EventID("   ", now); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
		if got := EventID(42, now); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
}
