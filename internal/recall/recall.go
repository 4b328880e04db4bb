package recall

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/logging"
)

// AnchorsKey is the durable key the anchor set is stored under.
const AnchorsKey = "recall.anchors"

// Option configures a Recall.
type Option func(*Recall)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(r *Recall) { r.log = logging.OrNop(log).Named("recall") }
}

// WithIDFunc overrides anchor id generation.
func WithIDFunc(fn func() string) Option {
	return func(r *Recall) { r.newID = fn }
}

// Recall owns the persisted anchor set.
type Recall struct {
	kv    ledger.KV
	log   *zap.Logger
	newID func() string

	mu      sync.RWMutex
	anchors []Anchor // creation order
	raw     []byte   // stored document anchors was read from or written as
}

// New loads the anchor set from kv. Absent or corrupt data yields an empty
// set and a warning.
func New(kv ledger.KV, opts ...Option) *Recall {
	r := &Recall{
		kv:    kv,
		log:   zap.NewNop(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.anchors = r.load()
	return r
}

func (r *Recall) load() []Anchor {
	raw, ok, err := r.kv.Get(AnchorsKey)
	if err != nil {
		r.log.Warn("load memory anchors failed, starting empty", zap.Error(err))
		return []Anchor{}
	}
	if !ok {
		return []Anchor{}
	}
	r.raw = raw
	var anchors []Anchor
	if err := json.Unmarshal(raw, &anchors); err != nil {
		r.log.Warn("memory anchors document is corrupt, starting empty", zap.Error(err))
		return []Anchor{}
	}
	return anchors
}

// refresh picks up anchors another process stored since this Recall last
// read or wrote them. Callers hold r.mu.
func (r *Recall) refresh() error {
	raw, _, err := r.kv.Get(AnchorsKey)
	if err != nil {
		return fmt.Errorf("read anchors: %w", err)
	}
	if bytes.Equal(raw, r.raw) {
		return nil
	}
	anchors := []Anchor{}
	if raw != nil {
		if err := json.Unmarshal(raw, &anchors); err != nil {
			r.log.Warn("stored memory anchors are corrupt, keeping current", zap.Error(err))
			r.raw = raw
			return nil
		}
	}
	r.anchors = anchors
	r.raw = raw
	return nil
}

var errConflict = errors.New("memory anchors keep changing underneath, giving up")

// save swaps anchors in for the document last seen. ok is false when another
// writer changed it first. Callers hold r.mu.
func (r *Recall) save(anchors []Anchor) (ok bool, err error) {
	raw, err := json.Marshal(anchors)
	if err != nil {
		return false, fmt.Errorf("encode anchors: %w", err)
	}
	ok, err = r.kv.Swap(AnchorsKey, r.raw, raw)
	if err != nil {
		return false, fmt.Errorf("save anchors: %w", err)
	}
	if ok {
		r.anchors = anchors
		r.raw = raw
	}
	return ok, nil
}

// Attach syncs against the ledger's current entries and keeps syncing after
// every mutation. The returned func detaches.
func (r *Recall) Attach(l *ledger.Ledger) func() {
	if _, err := r.Sync(l.Snapshot()); err != nil {
		r.log.Error("initial anchor sync failed", zap.Error(err))
	}
	return l.Subscribe(func(entries []ledger.Entry) {
		if _, err := r.Sync(entries); err != nil {
			r.log.Error("anchor sync failed", zap.Error(err))
		}
	})
}

// Sync creates anchors for every entry in entries that has none yet,
// oldest entry first, and returns the new anchors. Entries absent from
// entries are ignored, so anchors of deleted entries are neither removed
// nor regenerated. On a persistence failure nothing is added.
func (r *Recall) Sync(entries []ledger.Entry) ([]Anchor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < ledger.SwapAttempts; attempt++ {
		if err := r.refresh(); err != nil {
			return nil, err
		}
		next, created := r.extractNew(entries)
		if len(created) == 0 {
			return nil, nil
		}
		ok, err := r.save(next)
		if err != nil {
			return nil, err
		}
		if ok {
			r.log.Debug("created memory anchors", zap.Int("count", len(created)))
			return created, nil
		}
		r.log.Debug("memory anchors changed by another writer, retrying")
	}
	return nil, errConflict
}

func (r *Recall) extractNew(entries []ledger.Entry) (next, created []Anchor) {
	have := make(map[string]bool, len(r.anchors))
	for _, a := range r.anchors {
		have[a.WorkLogID] = true
	}

	next = slices.Clone(r.anchors)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if have[e.ID] {
			continue
		}
		prior := next
		for _, f := range extract(e) {
			a := Anchor{
				ID:         r.newID(),
				WorkLogID:  e.ID,
				Type:       f.typ,
				Content:    f.content,
				Timestamp:  e.Timestamp,
				Importance: Importance(e, f.typ),
			}
			a.Connections = connect(a, prior)
			next = append(next, a)
			created = append(created, a)
		}
	}
	return next, created
}

// Reset discards every anchor. It is the only way anchors are removed.
func (r *Recall) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < ledger.SwapAttempts; attempt++ {
		if err := r.refresh(); err != nil {
			return err
		}
		ok, err := r.save([]Anchor{})
		if err != nil {
			return err
		}
		if ok {
			r.log.Info("memory anchors reset")
			return nil
		}
	}
	return errConflict
}

// Rebuild discards every anchor, orphans included, and extracts anchors
// afresh from entries. It returns the new anchor set.
func (r *Recall) Rebuild(entries []ledger.Entry) ([]Anchor, error) {
	if err := r.Reset(); err != nil {
		return nil, err
	}
	if _, err := r.Sync(entries); err != nil {
		return nil, err
	}
	return r.Anchors(), nil
}

// Anchors returns every anchor in creation order.
func (r *Recall) Anchors() []Anchor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAnchors(r.anchors)
}

// AnchorQuery filters anchors. Zero values disable a filter.
type AnchorQuery struct {
	Type          AnchorType `json:"type,omitempty"`
	Start         *time.Time `json:"startDate,omitempty"`
	End           *time.Time `json:"endDate,omitempty"`
	MinImportance int        `json:"minImportance,omitempty"`
	WorkLogID     string     `json:"workLogId,omitempty"`
}

func (q AnchorQuery) match(a Anchor) bool {
	switch {
	case q.Type != "" && a.Type != q.Type:
		return false
	case q.Start != nil && a.Timestamp.Before(*q.Start):
		return false
	case q.End != nil && a.Timestamp.After(*q.End):
		return false
	case q.MinImportance > 0 && a.Importance < q.MinImportance:
		return false
	case q.WorkLogID != "" && a.WorkLogID != q.WorkLogID:
		return false
	}
	return true
}

// Query returns matching anchors, newest first.
func (r *Recall) Query(q AnchorQuery) []Anchor {
	out := []Anchor{}
	for _, a := range r.Anchors() {
		if q.match(a) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b Anchor) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

func cloneAnchors(in []Anchor) []Anchor {
	out := make([]Anchor, len(in))
	for i, a := range in {
		a.Connections = slices.Clone(a.Connections)
		out[i] = a
	}
	return out
}
