package review

import (
	"errors"
	"testing"
)

func queuedChange(desc string, commit func() error) *Change {
	if commit == nil {
		commit = func() error { return nil }
	}
	return newChange(KindWorldState, "", desc, nil, nil, commit)
}

func TestQueueAcceptDeny(t *testing.T) {
	q := NewQueue()
	applied := false
	a := queuedChange("a", func() error { applied = true; return nil })
	b := queuedChange("b", nil)
	q.Add(a, b)

	if err := q.Accept(a.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !applied {
		t.Fatalf("commit did not run")
	}
	if err := q.Deny(b.ID); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d", q.Len())
	}

	if err := q.Accept(a.ID); err == nil {
		t.Fatalf("accepted a change twice")
	}
	if err := q.Deny("no-such-id"); err == nil {
		t.Fatalf("denied a missing change")
	}
}

func TestQueueAcceptFailureKeepsItem(t *testing.T) {
	q := NewQueue()
	c := queuedChange("broken", func() error { return errors.New("store gone") })
	q.Add(c)

	if err := q.Accept(c.ID); err == nil {
		t.Fatalf("expected error")
	}
	if q.Len() != 1 {
		t.Fatalf("failed item removed from queue")
	}
}

func TestQueueAcceptAll(t *testing.T) {
	t.Run("applies in order", func(t *testing.T) {
		q := NewQueue()
		var order []string
		for _, name := range []string{"first", "second", "third"} {
			name := name
			q.Add(queuedChange(name, func() error { order = append(order, name); return nil }))
		}

		applied, errs := q.AcceptAll()
		if applied != 3 || len(errs) != 0 {
			t.Fatalf("applied=%d errs=%v", applied, errs)
		}
		if len(order) != 3 || order[0] != "first" || order[2] != "third" {
			t.Fatalf("order = %v", order)
		}
		if q.Len() != 0 {
			t.Fatalf("queue not drained")
		}
	})

	t.Run("continues past failures and keeps them queued", func(t *testing.T) {
		q := NewQueue()
		var applied []string
		q.Add(queuedChange("ok1", func() error { applied = append(applied, "ok1"); return nil }))
		q.Add(queuedChange("bad", func() error { return errors.New("boom") }))
		q.Add(queuedChange("ok2", func() error { applied = append(applied, "ok2"); return nil }))

		n, errs := q.AcceptAll()
		if n != 2 || len(errs) != 1 {
			t.Fatalf("n=%d errs=%v", n, errs)
		}
		if len(applied) != 2 {
			t.Fatalf("later change not attempted: %v", applied)
		}
		if q.Len() != 1 || q.Items()[0].Description != "bad" {
			t.Fatalf("failed item not retained: %v", q.Items())
		}
	})
}

func TestQueueDenyAll(t *testing.T) {
	q := NewQueue()
	ran := false
	q.Add(queuedChange("x", func() error { ran = true; return nil }))
	q.Add(queuedChange("y", nil))

	if n := q.DenyAll(); n != 2 {
		t.Fatalf("denied %d", n)
	}
	if ran {
		t.Fatalf("denied change committed")
	}
	if q.Len() != 0 {
		t.Fatalf("queue not emptied")
	}
}
