package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/logging"
)

// EntriesKey is the durable key the ledger is stored under.
const EntriesKey = "ledger.entries"

// KV is the durable key-value store the ledger writes through to. Several
// processes may share one store, so writes are compare-and-swap.
type KV interface {
	Get(key string) ([]byte, bool, error)
	// Swap stores value only if the stored value still equals old (nil for
	// absent) and reports whether it did.
	Swap(key string, old, value []byte) (bool, error)
}

// SwapAttempts bounds how often a write is retried after losing a race
// with another writer.
const SwapAttempts = 5

// Observer is called after every successful mutation with the full,
// newest-first snapshot. Observers may read from the ledger but must not
// mutate it.
type Observer func(entries []Entry)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp new entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDFunc overrides id generation for new entries.
func WithIDFunc(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = logging.OrNop(log).Named("ledger") }
}

// Ledger holds work entries newest-first and persists every accepted
// mutation before it becomes visible.
type Ledger struct {
	kv    KV
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	// mu serializes mutations through persist and notify.
	mu sync.Mutex

	dataMu  sync.RWMutex
	entries []Entry
	raw     []byte // stored document entries was read from or written as

	obsMu     sync.Mutex
	observers []*observer
}

type observer struct {
	fn Observer
}

// New loads the ledger from kv. An absent or unreadable document yields an
// empty ledger; the failure is logged, not returned.
func New(kv KV, opts ...Option) *Ledger {
	l := &Ledger{
		kv:    kv,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.entries = l.load()
	return l
}

func (l *Ledger) load() []Entry {
	raw, ok, err := l.kv.Get(EntriesKey)
	if err != nil {
		l.log.Warn("load work entries failed, starting empty", zap.Error(err))
		return []Entry{}
	}
	if !ok {
		return []Entry{}
	}
	l.raw = raw

	entries, err := l.decode(raw)
	if err != nil {
		l.log.Warn("work entries document is corrupt, starting empty", zap.Error(err))
		return []Entry{}
	}
	l.log.Debug("loaded work entries", zap.Int("count", len(entries)))
	return entries
}

func (l *Ledger) decode(raw []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || seen[e.ID] {
			l.log.Warn("dropping stored entry with missing or duplicate id", zap.String("id", e.ID))
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders by timestamp descending, keeping the relative order
// of equal timestamps.
func sortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// Subscribe registers fn to run after each successful mutation, in
// registration order. The returned func removes it.
func (l *Ledger) Subscribe(fn Observer) (unsubscribe func()) {
	o := &observer{fn: fn}
	l.obsMu.Lock()
	l.observers = append(l.observers, o)
	l.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.obsMu.Lock()
			defer l.obsMu.Unlock()
			l.observers = slices.DeleteFunc(l.observers, func(x *observer) bool { return x == o })
		})
	}
}

// Create validates d, assigns an id and the current time, and inserts the
// entry ahead of every entry not newer than it.
func (l *Ledger) Create(d Draft) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := d.entry(l.newID(), l.now())
	if problems := Validate(e); len(problems) > 0 {
		return Entry{}, invalid("create", problems)
	}

	err := l.mutate("create", func(cur []Entry) ([]Entry, error) {
		idx := len(cur)
		for i, c := range cur {
			if !c.Timestamp.After(e.Timestamp) {
				idx = i
				break
			}
		}
		return slices.Insert(slices.Clone(cur), idx, e), nil
	})
	if err != nil {
		return Entry{}, err
	}
	l.log.Debug("created work entry", zap.String("id", e.ID), zap.String("category", string(e.Category)))
	return e.Clone(), nil
}

// Update merges p into the entry with the given id. The merged entry must
// still validate.
func (l *Ledger) Update(id string, p Patch) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var merged Entry
	err := l.mutate("update", func(cur []Entry) ([]Entry, error) {
		idx := slices.IndexFunc(cur, func(e Entry) bool { return e.ID == id })
		if idx < 0 {
			return nil, notFound("update", id)
		}
		merged = p.apply(cur[idx])
		if problems := Validate(merged); len(problems) > 0 {
			return nil, invalid("update", problems)
		}
		next := slices.Clone(cur)
		next[idx] = merged
		return next, nil
	})
	if err != nil {
		return Entry{}, err
	}
	l.log.Debug("updated work entry", zap.String("id", id))
	return merged.Clone(), nil
}

// Delete removes the entry with the given id.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.mutate("delete", func(cur []Entry) ([]Entry, error) {
		idx := slices.IndexFunc(cur, func(e Entry) bool { return e.ID == id })
		if idx < 0 {
			return nil, notFound("delete", id)
		}
		return slices.Delete(slices.Clone(cur), idx, idx+1), nil
	})
	if err != nil {
		return err
	}
	l.log.Debug("deleted work entry", zap.String("id", id))
	return nil
}

// errConflict reports a write that kept losing to another writer.
var errConflict = errors.New("work entries keep changing underneath, giving up")

// mutate re-reads the stored entries, applies change to them, and swaps the
// result in. If another writer sharing the store got there first, the
// change is reapplied to what it wrote. change returning nil means there is
// nothing to write. Callers hold l.mu. On any failure the in-memory entries
// still match the stored document and observers are not called.
func (l *Ledger) mutate(op string, change func(cur []Entry) ([]Entry, error)) error {
	for attempt := 0; attempt < SwapAttempts; attempt++ {
		if err := l.refresh(op); err != nil {
			return err
		}
		next, err := change(l.entries)
		if err != nil || next == nil {
			return err
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return persistence(op, err)
		}
		ok, err := l.kv.Swap(EntriesKey, l.raw, raw)
		if err != nil {
			l.log.Error("persist work entries failed", zap.String("op", op), zap.Error(err))
			return persistence(op, err)
		}
		if !ok {
			l.log.Debug("work entries changed by another writer, retrying", zap.String("op", op))
			continue
		}

		l.dataMu.Lock()
		l.entries = next
		l.raw = raw
		l.dataMu.Unlock()

		l.notify(cloneAll(next))
		return nil
	}
	l.log.Error("persist work entries failed", zap.String("op", op), zap.Error(errConflict))
	return persistence(op, errConflict)
}

// refresh picks up entries another writer stored since this ledger last
// read or wrote the document. A corrupt document is kept out of memory
// and will be overwritten by the next write. Callers hold l.mu.
func (l *Ledger) refresh(op string) error {
	raw, _, err := l.kv.Get(EntriesKey)
	if err != nil {
		l.log.Error("read work entries failed", zap.String("op", op), zap.Error(err))
		return persistence(op, err)
	}
	if bytes.Equal(raw, l.raw) {
		return nil
	}

	entries := []Entry{}
	if raw != nil {
		if entries, err = l.decode(raw); err != nil {
			l.log.Warn("stored work entries are corrupt, keeping current", zap.Error(err))
			l.raw = raw
			return nil
		}
	}
	l.dataMu.Lock()
	l.entries = entries
	l.raw = raw
	l.dataMu.Unlock()
	l.log.Info("reloaded work entries written elsewhere", zap.Int("count", len(entries)))
	return nil
}

func (l *Ledger) notify(snapshot []Entry) {
	l.obsMu.Lock()
	obs := slices.Clone(l.observers)
	l.obsMu.Unlock()

	for _, o := range obs {
		o.fn(snapshot)
	}
}

// Get returns the entry with the given id.
func (l *Ledger) Get(id string) (Entry, bool) {
	l.dataMu.RLock()
	defer l.dataMu.RUnlock()

	for _, e := range l.entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return Entry{}, false
}

// Snapshot returns a copy of every entry, newest first.
func (l *Ledger) Snapshot() []Entry {
	l.dataMu.RLock()
	defer l.dataMu.RUnlock()
	return cloneAll(l.entries)
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.dataMu.RLock()
	defer l.dataMu.RUnlock()
	return len(l.entries)
}

// Query returns the entries matching q, newest first.
func (l *Ledger) Query(q Query) []Entry {
	return Filter(l.Snapshot(), q)
}

func cloneAll(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
