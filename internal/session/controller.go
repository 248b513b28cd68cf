// Package session owns the live state of one roleplay session: the
// document set, the pending review queue, the busy flag shared by all
// extraction-family operations, and the debounced push to remote
// storage. The host's events (message received, chat changed) arrive
// here as method calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/internal/delta"
	"chronicle/internal/extract"
	"chronicle/internal/narrative"
	"chronicle/internal/review"
	"chronicle/internal/state"
	"chronicle/internal/store"
	"chronicle/internal/store/sqlite"
)

// ErrBusy reports that another extraction-family operation is active.
// Callers no-op with a status message; there is no queueing.
var ErrBusy = errors.New("another extraction is already running")

// Injector is the host's prompt-injection sink. Injecting under a slot
// replaces whatever was previously injected there.
type Injector interface {
	Inject(slotID, text string, priority int)
}

// Injection slot for the rendered world summary.
const (
	InjectSlot     = "chronicle-world"
	InjectPriority = 100
)

type Controller struct {
	mu sync.Mutex

	sessionID    string
	collectionID string

	state *state.Store
	queue *review.Queue
	rec   *review.Reconciler
	norm  *delta.Normalizer

	caller  *extract.Caller
	prompts *extract.PromptBuilder

	remote   store.Store
	snapshot *sqlite.Cache
	injector Injector

	busy         bool
	rescanCancel atomic.Bool

	debounce time.Duration
	timer    *time.Timer

	log *slog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// Options wires a controller. Remote, Snapshot, Injector, and the
// generation capability are all optional; operations needing an absent
// collaborator fail with a status error instead of crashing.
type Options struct {
	SessionID    string
	CollectionID string
	Generator    extract.Generator
	Preamble     string
	Remote       store.Store
	Snapshot     *sqlite.Cache
	Injector     Injector
	Debounce     time.Duration
	Log          *slog.Logger
}

func New(opts Options) *Controller {
	st := state.NewStore()
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		sessionID:    opts.SessionID,
		collectionID: opts.CollectionID,
		state:        st,
		queue:        review.NewQueue(),
		rec:          &review.Reconciler{State: st},
		norm:         &delta.Normalizer{Store: st},
		caller:       &extract.Caller{Gen: opts.Generator},
		prompts:      &extract.PromptBuilder{Preamble: opts.Preamble},
		remote:       opts.Remote,
		snapshot:     opts.Snapshot,
		injector:     opts.Injector,
		debounce:     opts.Debounce,
		log:          log,
		now:          time.Now,
	}
	return c
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// State exposes the document store for read paths (rendering, MCP
// tools). Mutation goes through the review queue.
func (c *Controller) State() *state.Store {
	return c.state
}

func (c *Controller) Queue() *review.Queue {
	return c.queue
}

// PendingChanges returns a snapshot of the review queue, read under
// the controller lock. Concurrent callers (MCP tool dispatch) use this
// instead of touching the queue directly.
func (c *Controller) PendingChanges() []*review.Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Items()
}

// tryBegin acquires the shared busy flag. At most one
// extraction-family operation runs at a time.
func (c *Controller) tryBegin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// LoadDocuments seeds the session from an already-fetched document set.
func (c *Controller) LoadDocuments(docs map[string]state.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Replace(docs)
	c.queue.DenyAll()
	c.refreshInjection()
}

// HandleChatChanged resets the controller for a new session: pending
// proposals are discarded, documents come from a fresh-enough local
// snapshot or a remote fetch.
func (c *Controller) HandleChatChanged(ctx context.Context, sessionID string) error {
	if err := c.tryBegin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	c.sessionID = sessionID
	c.queue.DenyAll()
	c.mu.Unlock()

	if c.snapshot != nil {
		snap, err := c.snapshot.Load(ctx, sessionID, c.now())
		if err != nil {
			c.log.Warn("snapshot load failed", "session", sessionID, "error", err)
		} else if snap != nil {
			c.mu.Lock()
			c.collectionID = snap.RemoteID
			c.state.Replace(snap.Documents)
			c.refreshInjection()
			c.mu.Unlock()
			c.log.Info("session restored from snapshot", "session", sessionID, "documents", len(snap.Documents))
			return nil
		}
	}

	if c.remote == nil {
		return fmt.Errorf("no snapshot and no remote store configured for session %s", sessionID)
	}
	docs, err := c.remote.FetchAll(ctx, c.collectionID)
	if err != nil {
		return fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	c.mu.Lock()
	c.state.Replace(docs)
	c.refreshInjection()
	c.mu.Unlock()
	c.log.Info("session loaded from remote", "session", sessionID, "documents", len(docs))
	return nil
}

// HandleMessage runs the single-message extraction path over one
// narrator turn: the structured-block route when the narrator emitted
// one, otherwise one quiet generation call. Returns how many changes
// were proposed.
func (c *Controller) HandleMessage(ctx context.Context, turn narrative.Turn) (int, error) {
	if turn.Role != narrative.RoleNarrator {
		return 0, nil
	}
	if err := c.tryBegin(); err != nil {
		return 0, err
	}
	defer c.end()

	block, err := narrative.ExtractBlock(turn.Text)
	if err != nil {
		c.log.Warn("malformed state-update block", "error", err)
	}

	var raw map[string]any
	if block != nil {
		raw = block
	} else {
		text := narrative.Normalize(turn.Text)
		if text == "" {
			return 0, nil
		}
		prompt := c.prompts.Build(text, extract.ContextFromStore(c.state))
		response, err := c.caller.Generate(ctx, prompt)
		if err != nil {
			return 0, fmt.Errorf("extraction call: %w", err)
		}
		raw = delta.Parse(response)
	}

	d := c.norm.Normalize(raw)
	if d.Empty() {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	changes := c.rec.Propose(d)
	c.queue.Add(changes...)
	return len(changes), nil
}

// HandleGenerationEnded fires when the host finishes streaming a
// narrator message. The completed text takes the same path as a
// delivered narrator turn.
func (c *Controller) HandleGenerationEnded(ctx context.Context, text string) (int, error) {
	return c.HandleMessage(ctx, narrative.Turn{Role: narrative.RoleNarrator, Text: text})
}

// RescanHistory drives the batch rescan over a window of turns,
// holding the shared busy flag for the whole scan.
func (c *Controller) RescanHistory(ctx context.Context, turns []narrative.Turn, opts extract.RescanOptions) (*extract.RescanReport, error) {
	if err := c.tryBegin(); err != nil {
		return nil, err
	}
	defer c.end()
	c.rescanCancel.Store(false)

	rescan := &extract.Rescan{
		Caller:     c.caller,
		Prompts:    c.prompts,
		State:      c.state,
		Normalizer: c.norm,
		Cancel:     &c.rescanCancel,
		Log:        c.log,
		Propose: func(d *delta.Delta) int {
			c.mu.Lock()
			defer c.mu.Unlock()
			changes := c.rec.Propose(d)
			c.queue.Add(changes...)
			return len(changes)
		},
	}
	return rescan.Run(ctx, turns, opts)
}

// CancelRescan requests cooperative cancellation: the rescan stops at
// the next turn boundary. An in-flight generation call is not aborted.
func (c *Controller) CancelRescan() {
	c.rescanCancel.Store(true)
}

// Accept applies one pending change, then refreshes the injected
// summary and schedules a debounced persist.
func (c *Controller) Accept(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.queue.Accept(id); err != nil {
		return err
	}
	c.refreshInjection()
	c.schedulePersist()
	return nil
}

func (c *Controller) Deny(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Deny(id)
}

// AcceptAll applies every pending change in enqueue order. Failures do
// not roll back earlier commits; failed items stay queued.
func (c *Controller) AcceptAll() (int, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	applied, errs := c.queue.AcceptAll()
	if applied > 0 {
		c.refreshInjection()
		c.schedulePersist()
	}
	return applied, errs
}

func (c *Controller) DenyAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.DenyAll()
}

// schedulePersist resets the debounce timer. Only after a quiet period
// with no further accepted changes does the remote write fire, so a
// burst of accepts coalesces into one push. Callers hold c.mu.
func (c *Controller) schedulePersist() {
	if c.debounce <= 0 {
		go c.persist(context.Background())
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.persist(context.Background())
	})
}

// Flush pushes immediately, bypassing the debounce window.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return c.persist(ctx)
}

// persist pushes the full document set to the remote store and saves
// the local snapshot. In-memory state is never rolled back on failure.
func (c *Controller) persist(ctx context.Context) error {
	c.mu.Lock()
	docs := c.state.Documents()
	sessionID := c.sessionID
	collectionID := c.collectionID
	c.mu.Unlock()

	if c.remote != nil {
		if err := c.remote.Patch(ctx, collectionID, docs); err != nil {
			c.log.Error("remote push failed", "session", sessionID, "error", err)
			return fmt.Errorf("pushing session %s: %w", sessionID, err)
		}
		c.log.Info("session pushed", "session", sessionID, "documents", len(docs))
	}

	if c.snapshot != nil {
		snap := sqlite.Snapshot{
			SessionID: sessionID,
			RemoteID:  collectionID,
			Documents: docs,
			SavedAt:   c.now(),
		}
		if err := c.snapshot.Save(ctx, snap); err != nil {
			c.log.Warn("snapshot save failed", "session", sessionID, "error", err)
		}
	}
	return nil
}

// refreshInjection re-renders the world summary into the host's prompt
// slot. Callers hold c.mu.
func (c *Controller) refreshInjection() {
	if c.injector == nil {
		return
	}
	c.injector.Inject(InjectSlot, RenderSummary(c.state), InjectPriority)
}

// Summary renders the current injection text without pushing it.
func (c *Controller) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RenderSummary(c.state)
}
