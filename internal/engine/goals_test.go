package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/ledger"
)

func titles(goals []Goal) []string {
	out := make([]string, len(goals))
	for i, g := range goals {
		out[i] = g.Title
	}
	return out
}

func TestGoalPhrases(t *testing.T) {
	tests := []struct {
		what, why string
		want      []string
	}{
		{"Build onboarding flow", "improve activation", []string{"Build onboarding flow", "improve activation"}},
		{"Reading", "want to master Rust macros", []string{"master Rust macros"}},
		{"Deliver", "finish", nil},
		{"Tidy desk", "finish it", []string{"finish it"}},
		{"Sort mail", "no reason", nil},
		{"Create a very long description of a goal that goes on and on", "x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.what, func(t *testing.T) {
			e := mk("w1", at(0, 9), func(e *ledger.Entry) { e.What = tt.what; e.Why = tt.why })
			assert.Equal(t, tt.want, goalPhrases(e))
		})
	}
}

func TestGoalsMergeCaseInsensitively(t *testing.T) {
	entries := []ledger.Entry{
		mk("w2", at(2, 9), func(e *ledger.Entry) { e.Why = "Improve Activation"; e.Outcome = ledger.OutcomeCompleted }),
		mk("w1", at(1, 9), func(e *ledger.Entry) { e.Why = "improve activation"; e.Outcome = ledger.OutcomeStuck }),
		mk("w0", at(0, 9), func(e *ledger.Entry) {
			e.Why = "improve activation"
			e.Outcome = ledger.OutcomeCompleted
			e.Time = 120
		}),
	}

	goals := InferGoals(entries)
	require.Len(t, goals, 1)
	g := goals[0]
	assert.Equal(t, "Improve Activation", g.Title, "first mention names the goal")
	assert.Equal(t, 20, g.Progress)
	assert.Equal(t, []string{"w2", "w1", "w0"}, g.RelatedWorkLogs)
	require.Len(t, g.Milestones, 1)
	assert.Equal(t, "Completed: Write weekly notes", g.Milestones[0].Title)
	assert.Equal(t, []string{"w0"}, g.Milestones[0].WorkLogIDs)
	assert.Equal(t, "Inferred from work patterns", g.Description)
}

func TestGoalProgressCappedAndMonotonic(t *testing.T) {
	var entries []ledger.Entry
	last := 0
	for i := 0; i < 12; i++ {
		entries = append(entries, mk("w", at(i, 9), func(e *ledger.Entry) {
			e.Why = "launch the podcast"
			e.Outcome = ledger.OutcomeCompleted
		}))
		goals := InferGoals(entries)
		require.Len(t, goals, 1)
		p := goals[0].Progress
		assert.GreaterOrEqual(t, p, last)
		assert.LessOrEqual(t, p, 100)
		last = p
	}
	assert.Equal(t, 100, last)
}

func TestGoalsSortedByProgress(t *testing.T) {
	entries := []ledger.Entry{
		mk("w2", at(2, 9), func(e *ledger.Entry) { e.Why = "learn spanish verbs" }),
		mk("w1", at(1, 9), func(e *ledger.Entry) { e.Why = "optimize query latency"; e.Outcome = ledger.OutcomeCompleted }),
	}
	assert.Equal(t, []string{"optimize query latency", "learn spanish verbs"}, titles(InferGoals(entries)))
}
