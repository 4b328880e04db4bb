package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memKV is an in-memory KV. Set fail to make every Swap error; beforeSwap
// runs ahead of each Swap, standing in for a second writer.
type memKV struct {
	mu         sync.Mutex
	data       map[string][]byte
	fail       bool
	puts       int
	beforeSwap func()
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Swap(key string, old, value []byte) (bool, error) {
	if m.beforeSwap != nil {
		m.beforeSwap()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errors.New("disk full")
	}
	cur, ok := m.data[key]
	if ok != (old != nil) || !bytes.Equal(cur, old) {
		return false, nil
	}
	m.puts++
	m.data[key] = append([]byte(nil), value...)
	return true, nil
}

// fakeClock returns t0, t0+1m, t0+2m, ...
func fakeClock(t0 time.Time) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ts := t0.Add(time.Duration(n) * time.Minute)
		n++
		return ts
	}
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}
}

func draft(what string) Draft {
	return Draft{
		What:       what,
		Why:        "because",
		Time:       30,
		Outcome:    OutcomeCompleted,
		Category:   CategoryProject,
		EnergyCost: 5,
	}
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, kv KV, opts ...Option) *Ledger {
	t.Helper()
	base := []Option{WithClock(fakeClock(t0)), WithIDFunc(seqIDs())}
	return New(kv, append(base, opts...)...)
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	l := newTestLedger(t, newMemKV())

	e, err := l.Create(draft("Write report"))
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, t0, e.Timestamp)
	assert.Equal(t, SourceManual, e.Source)
	assert.Equal(t, 1, l.Len())
}

func TestCreateNewestFirst(t *testing.T) {
	l := newTestLedger(t, newMemKV())

	for _, w := range []string{"a", "b", "c"} {
		_, err := l.Create(draft(w))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"e3", "e2", "e1"}, ids(l.Snapshot()))
}

func TestCreateEqualTimestampsNewerFirst(t *testing.T) {
	fixed := func() time.Time { return t0 }
	l := newTestLedger(t, newMemKV(), WithClock(fixed))

	for _, w := range []string{"a", "b", "c"} {
		_, err := l.Create(draft(w))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"e3", "e2", "e1"}, ids(l.Snapshot()))
}

func TestCreateValidationCollectsAllProblems(t *testing.T) {
	kv := newMemKV()
	l := newTestLedger(t, kv)

	d := draft("   ")
	d.EnergyCost = 12
	d.Time = -1
	d.Outcome = "won"

	_, err := l.Create(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Details, 4)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, kv.puts, "nothing persisted for a rejected entry")
}

func TestCreatePersistsAndReloads(t *testing.T) {
	kv := newMemKV()
	l := newTestLedger(t, kv)

	_, err := l.Create(draft("a"))
	require.NoError(t, err)
	_, err = l.Create(draft("b"))
	require.NoError(t, err)

	reloaded := New(kv)
	assert.Equal(t, ids(l.Snapshot()), ids(reloaded.Snapshot()))
}

func TestPersistenceFailureRollsBack(t *testing.T) {
	kv := newMemKV()
	l := newTestLedger(t, kv)

	first, err := l.Create(draft("a"))
	require.NoError(t, err)

	notified := 0
	unsub := l.Subscribe(func([]Entry) { notified++ })
	defer unsub()

	kv.fail = true
	_, err = l.Create(draft("b"))
	assert.ErrorIs(t, err, ErrPersistence)

	what := "changed"
	_, err = l.Update(first.ID, Patch{What: &what})
	assert.ErrorIs(t, err, ErrPersistence)

	err = l.Delete(first.ID)
	assert.ErrorIs(t, err, ErrPersistence)

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].What)
	assert.Zero(t, notified)
}

func TestUpdateMergesFields(t *testing.T) {
	l := newTestLedger(t, newMemKV())
	e, err := l.Create(draft("a"))
	require.NoError(t, err)

	outcome := OutcomeStuck
	people := []string{"Alex"}
	got, err := l.Update(e.ID, Patch{Outcome: &outcome, People: &people})
	require.NoError(t, err)

	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Timestamp, got.Timestamp)
	assert.Equal(t, "a", got.What)
	assert.Equal(t, OutcomeStuck, got.Outcome)
	assert.Equal(t, []string{"Alex"}, got.People)

	stored, ok := l.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, got, stored)
}

func TestUpdateRejectsInvalidMerge(t *testing.T) {
	l := newTestLedger(t, newMemKV())
	e, err := l.Create(draft("a"))
	require.NoError(t, err)

	energy := 0
	_, err = l.Update(e.ID, Patch{EnergyCost: &energy})
	assert.ErrorIs(t, err, ErrValidation)

	stored, _ := l.Get(e.ID)
	assert.Equal(t, 5, stored.EnergyCost)
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	l := newTestLedger(t, newMemKV())

	what := "x"
	_, err := l.Update("missing", Patch{What: &what})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, l.Delete("missing"), ErrNotFound)
}

func TestDelete(t *testing.T) {
	l := newTestLedger(t, newMemKV())
	a, _ := l.Create(draft("a"))
	b, _ := l.Create(draft("b"))

	require.NoError(t, l.Delete(a.ID))
	assert.Equal(t, []string{b.ID}, ids(l.Snapshot()))
	_, ok := l.Get(a.ID)
	assert.False(t, ok)
}

func TestObserversNotifiedInOrder(t *testing.T) {
	l := newTestLedger(t, newMemKV())

	var calls []string
	var sizes []int
	l.Subscribe(func(es []Entry) { calls = append(calls, "first"); sizes = append(sizes, len(es)) })
	unsub := l.Subscribe(func(es []Entry) { calls = append(calls, "second") })

	_, err := l.Create(draft("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)

	unsub()
	unsub() // idempotent
	_, err = l.Create(draft("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "first"}, calls)
	assert.Equal(t, []int{1, 2}, sizes)
}

func TestObserverMayReadLedger(t *testing.T) {
	l := newTestLedger(t, newMemKV())

	var seen int
	l.Subscribe(func([]Entry) { seen = l.Len() })

	_, err := l.Create(draft("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestSnapshotIsACopy(t *testing.T) {
	l := newTestLedger(t, newMemKV())
	d := draft("a")
	d.People = []string{"Sam"}
	_, err := l.Create(d)
	require.NoError(t, err)

	snap := l.Snapshot()
	snap[0].People[0] = "Mallory"
	snap[0].What = "tampered"

	again := l.Snapshot()
	assert.Equal(t, "Sam", again[0].People[0])
	assert.Equal(t, "a", again[0].What)
}

func TestLoadCorruptDocumentStartsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.data[EntriesKey] = []byte("{not json")

	l := New(kv)
	assert.Equal(t, 0, l.Len())

	_, err := l.Create(draft("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestQueryFilters(t *testing.T) {
	l := newTestLedger(t, newMemKV())

	mk := func(what string, cat Category, out Outcome, people, tags []string) Entry {
		d := draft(what)
		d.Category = cat
		d.Outcome = out
		d.People = people
		d.Tags = tags
		e, err := l.Create(d)
		require.NoError(t, err)
		return e
	}
	a := mk("a", CategoryProject, OutcomeCompleted, nil, []string{"q1"})
	b := mk("b", CategoryClient, OutcomeStuck, []string{"Alex"}, nil)
	c := mk("c", CategoryClient, OutcomeCompleted, []string{"Sam", "Alex"}, []string{"q1", "q2"})

	assert.Equal(t, []string{c.ID, b.ID}, ids(l.Query(Query{Categories: []Category{CategoryClient}})))
	assert.Equal(t, []string{c.ID, a.ID}, ids(l.Query(Query{Outcomes: []Outcome{OutcomeCompleted}})))
	assert.Equal(t, []string{c.ID, b.ID}, ids(l.Query(Query{People: []string{"Alex"}})))
	assert.Equal(t, []string{c.ID, a.ID}, ids(l.Query(Query{Tags: []string{"q1"}})))

	start := a.Timestamp.Add(time.Minute)
	end := b.Timestamp
	assert.Equal(t, []string{b.ID}, ids(l.Query(Query{Start: &start, End: &end})), "date range is inclusive")

	assert.Equal(t, []string{b.ID}, ids(l.Query(Query{Offset: 1, Limit: 1})))
	assert.Empty(t, l.Query(Query{Offset: 10}))
}

func TestStats(t *testing.T) {
	l := newTestLedger(t, newMemKV())
	for i, cat := range []Category{CategoryProject, CategoryStudy, CategoryProject} {
		d := draft(fmt.Sprintf("task %d", i))
		d.Category = cat
		d.Time = 30 * (i + 1)
		_, err := l.Create(d)
		require.NoError(t, err)
	}

	s := l.Stats(2)
	assert.Equal(t, 3, s.TotalLogs)
	assert.Equal(t, 180, s.TotalTime)
	assert.InDelta(t, 60.0, s.AverageTime, 0.001)
	assert.Equal(t, 2, s.CategoryStats[CategoryProject])
	assert.Equal(t, 3, s.OutcomeStats[OutcomeCompleted])
	assert.Equal(t, []string{"e3", "e2"}, ids(s.RecentLogs))

	empty := ComputeStats(nil, 10)
	assert.Zero(t, empty.AverageTime)
	assert.Empty(t, empty.RecentLogs)
}

func TestMutationErrorMessage(t *testing.T) {
	err := invalid("create", []string{"what is required", "why is required"})
	assert.Equal(t, "create: invalid work entry (what is required; why is required)", err.Error())
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLedgersSharingAStoreKeepEachOthersWrites(t *testing.T) {
	kv := newMemKV()
	server := New(kv, WithIDFunc(seqIDs()), WithClock(fakeClock(t0)))
	_, err := server.Create(draft("from server"))
	require.NoError(t, err)

	// A second process opens the same store and imports while the first
	// one still holds its old view in memory.
	offline := New(kv)
	res, err := offline.Import([]byte(`{"id":"imp1","timestamp":"2026-03-01T09:00:00Z","what":"imported","why":"backfill","time":10,"outcome":"completed","category":"project","energyCost":3}`))
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)

	var notified []string
	server.Subscribe(func(es []Entry) { notified = ids(es) })
	_, err = server.Create(draft("after import"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"e1", "e2", "imp1"}, ids(server.Snapshot()))
	assert.ElementsMatch(t, []string{"e1", "e2", "imp1"}, notified)
	assert.ElementsMatch(t, []string{"e1", "e2", "imp1"}, ids(New(kv).Snapshot()))

	// Deletes and updates see the other writer's entries too.
	require.NoError(t, server.Delete("imp1"))
	_, ok := New(kv).Get("imp1")
	assert.False(t, ok)
}

func TestMutationRetriesAfterLosingARace(t *testing.T) {
	kv := newMemKV()
	l := newTestLedger(t, kv)
	other := New(kv, WithIDFunc(func() string { return "other" }), WithClock(func() time.Time { return t0.Add(-time.Hour) }))

	kv.beforeSwap = func() {
		kv.beforeSwap = nil
		_, err := other.Create(draft("slipped in"))
		require.NoError(t, err)
	}

	_, err := l.Create(draft("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "other"}, ids(l.Snapshot()))
	assert.Equal(t, []string{"e1", "other"}, ids(New(kv).Snapshot()))
}

func TestMutationGivesUpOnConstantContention(t *testing.T) {
	kv := newMemKV()
	l := newTestLedger(t, kv)

	n := 0
	kv.beforeSwap = func() {
		n++
		kv.mu.Lock()
		kv.data[EntriesKey] = []byte(fmt.Sprintf(`[{"id":"x%d"}]`, n))
		kv.mu.Unlock()
	}
	notified := 0
	l.Subscribe(func([]Entry) { notified++ })

	_, err := l.Create(draft("a"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, SwapAttempts, n)
	assert.Zero(t, notified)
	_, ok := l.Get("e1")
	assert.False(t, ok)
}
