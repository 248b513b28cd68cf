// Package review gates extracted changes behind human approval. The
// reconciler expands a canonical delta into individually reviewable
// proposed changes; the queue applies or discards them.
package review

import (
	"fmt"

	"github.com/google/uuid"
)

// Change is one reviewable, individually accept/deny-able mutation.
// Previous is read at proposal time, so it may be stale if another
// change commits first; apply order decides the final value.
type Change struct {
	ID          string
	Kind        string
	EntityKey   string
	Description string
	Previous    any
	Proposed    any

	commit func() error
}

func newChange(kind, entityKey, description string, previous, proposed any, commit func() error) *Change {
	return &Change{
		ID:          uuid.NewString(),
		Kind:        kind,
		EntityKey:   entityKey,
		Description: description,
		Previous:    previous,
		Proposed:    proposed,
		commit:      commit,
	}
}

// Queue holds proposed changes in enqueue order.
type Queue struct {
	items []*Change
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns the queued changes in enqueue order.
func (q *Queue) Items() []*Change {
	out := make([]*Change, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Add(changes ...*Change) {
	q.items = append(q.items, changes...)
}

func (q *Queue) find(id string) (int, *Change) {
	for i, item := range q.items {
		if item.ID == id {
			return i, item
		}
	}
	return -1, nil
}

func (q *Queue) remove(i int) {
	q.items = append(q.items[:i], q.items[i+1:]...)
}

// Accept runs the change's commit action and discards the item. On
// commit failure the item stays queued and the error is returned;
// accept is never silently swallowed.
func (q *Queue) Accept(id string) error {
	i, item := q.find(id)
	if item == nil {
		return fmt.Errorf("no pending change %s", id)
	}
	if err := item.commit(); err != nil {
		return fmt.Errorf("applying %s: %w", item.Description, err)
	}
	q.remove(i)
	return nil
}

// Deny discards the item without side effects.
func (q *Queue) Deny(id string) error {
	i, item := q.find(id)
	if item == nil {
		return fmt.Errorf("no pending change %s", id)
	}
	q.remove(i)
	return nil
}

// AcceptAll applies every queued change in enqueue order. A failing
// commit does not roll back earlier ones and does not stop later ones;
// failed items stay queued. Returns the applied count and any errors.
func (q *Queue) AcceptAll() (int, []error) {
	applied := 0
	var errs []error
	remaining := q.items[:0]
	for _, item := range q.items {
		if err := item.commit(); err != nil {
			errs = append(errs, fmt.Errorf("applying %s: %w", item.Description, err))
			remaining = append(remaining, item)
			continue
		}
		applied++
	}
	q.items = remaining
	return applied, errs
}

// DenyAll discards every queued change.
func (q *Queue) DenyAll() int {
	n := len(q.items)
	q.items = nil
	return n
}
