package recall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/ledger"
)

func TestSignificance(t *testing.T) {
	e := entry("w1", t0)
	assert.Equal(t, 5, Significance(e))

	e.Outcome = ledger.OutcomeCompleted
	e.EnergyCost = 8
	e.Time = 240
	e.People = []string{"Alex"}
	assert.Equal(t, 10, Significance(e), "capped")

	e = entry("w1", t0)
	e.Outcome = ledger.OutcomeStuck
	assert.Equal(t, 6, Significance(e))
}

func TestTimeSpan(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		span time.Duration
		want string
	}{
		{0, "1 day"},
		{day, "2 days"},
		{30 * time.Hour, "3 days"},
		{5 * day, "6 days"},
		{10 * day, "2 weeks"},
		{45 * day, "2 months"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			entries := []ledger.Entry{entry("b", t0.Add(tt.span)), entry("a", t0)}
			assert.Equal(t, tt.want, TimeSpan(entries))
		})
	}
	assert.Equal(t, "0 days", TimeSpan(nil))
}

func TestTimeline(t *testing.T) {
	r := New(testDB(t))

	big := entry("w2", t0.Add(time.Hour))
	big.Outcome = ledger.OutcomeCompleted
	small := entry("w1", t0)
	entries := []ledger.Entry{big, small}
	_, err := r.Sync(entries)
	require.NoError(t, err)

	tl := r.Timeline(entries)
	assert.Equal(t, 2, tl.TotalEvents)
	assert.Equal(t, "2 days", tl.TimeSpan, "an hour apart rounds up to a day")
	require.Len(t, tl.KeyMoments, 1)
	assert.Equal(t, "w2", tl.KeyMoments[0].WorkLog.ID)
	assert.Len(t, tl.Events[0].Anchors, 1)
	assert.Empty(t, tl.Events[1].Anchors)
}

func TestSearchMemories(t *testing.T) {
	r := New(testDB(t))

	a := entry("w1", t0)
	a.Decisions = []string{"Switch to SQLite"}
	a.Insights = []string{"Caching hides bugs"}
	_, err := r.Sync([]ledger.Entry{a})
	require.NoError(t, err)

	res := r.SearchMemories("sqlite bugs")
	assert.Equal(t, 2, res.TotalResults)
	assert.Equal(t, 1, res.Categories[TypeDecision])
	assert.Equal(t, 1, res.Categories[TypeInsight])

	assert.Zero(t, r.SearchMemories("   ").TotalResults)
	assert.Zero(t, r.SearchMemories("kubernetes").TotalResults)
}
