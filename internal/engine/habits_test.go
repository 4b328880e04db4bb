package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/ledger"
)

func TestTimeOfDay(t *testing.T) {
	tests := map[int]string{0: "night", 5: "night", 6: "morning", 11: "morning", 12: "afternoon", 16: "afternoon", 17: "evening", 23: "evening"}
	for hour, want := range tests {
		assert.Equal(t, want, TimeOfDay(hour), "hour %d", hour)
	}
}

func TestHabitsNeedThreeEntries(t *testing.T) {
	entries := []ledger.Entry{
		mk("w1", at(1, 14)),
		mk("w0", at(0, 14)),
	}
	assert.Empty(t, InferHabits(entries))
}

func TestHabitGroups(t *testing.T) {
	// Same weekday and hour a week apart, all at home: every key qualifies.
	var entries []ledger.Entry
	for i := 2; i >= 0; i-- {
		entries = append(entries, mk(fmt.Sprintf("w%d", i), at(7*i, 20), func(e *ledger.Entry) {
			e.Context = &ledger.Context{Environment: "home"}
			e.Why = "Urgent email from the client"
		}))
	}
	// Noise in another hour.
	entries = append(entries, mk("x", at(1, 8)))

	habits := InferHabits(entries)
	require.Len(t, habits, 3)
	for _, h := range habits {
		assert.Equal(t, 3, h.Frequency)
		assert.GreaterOrEqual(t, h.Frequency, minHabitFrequency)
		assert.Equal(t, "evening", h.Pattern.TimeOfDay)
		assert.Equal(t, "monday", h.Pattern.DayOfWeek)
		assert.Equal(t, "home", h.Pattern.Context)
		assert.Equal(t, "project during home (evening)", h.Name)
		assert.Equal(t, []string{"email", "client", "urgent"}, h.Pattern.Triggers)
		assert.InDelta(t, 1.0, h.Consistency, 1e-9)
		assert.Zero(t, h.Impact)
		assert.Equal(t, at(14, 20), h.LastOccurrence)
		assert.Equal(t, "inferred", h.Source)
	}
	assert.NotEqual(t, habits[0].ID, habits[1].ID)
}

func TestHabitConsistencyAndImpact(t *testing.T) {
	entries := []ledger.Entry{
		mk("w3", at(1, 10), func(e *ledger.Entry) { e.Outcome = ledger.OutcomeCompleted }),
		mk("w2", at(0, 11)),
		mk("w1", at(0, 10), func(e *ledger.Entry) { e.Outcome = ledger.OutcomeAdvanced }),
		mk("w0", at(0, 10)),
	}

	habits := InferHabits(entries)
	require.Len(t, habits, 1, "only category:project-10 reaches three")
	h := habits[0]
	assert.Equal(t, 3, h.Frequency)
	assert.InDelta(t, 2.0/3.0, h.Consistency, 1e-9)
	assert.InDelta(t, 20.0/3.0, h.Impact, 1e-9)
}

func TestHabitsSortedByImpact(t *testing.T) {
	var entries []ledger.Entry
	for i := 0; i < 3; i++ {
		entries = append(entries,
			mk(fmt.Sprintf("s%d", i), at(i, 7), func(e *ledger.Entry) { e.Category = ledger.CategoryStudy }),
			mk(fmt.Sprintf("h%d", i), at(i, 18), func(e *ledger.Entry) {
				e.Category = ledger.CategoryHealth
				e.Outcome = ledger.OutcomeCompleted
			}),
		)
	}

	habits := InferHabits(entries)
	require.Len(t, habits, 2)
	assert.Equal(t, ledger.CategoryHealth, habits[0].Category)
	assert.InDelta(t, 10.0, habits[0].Impact, 1e-9)
	assert.Equal(t, ledger.CategoryStudy, habits[1].Category)
}
