package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/forgeone/internal/ledger"
)

func TestHealthEmptyWindowIsNeutral(t *testing.T) {
	old := []ledger.Entry{mk("w0", at(-30, 9))}
	hs := ScoreHealth(old, at(0, 12), 7)

	assert.Equal(t, 50, hs.Overall)
	assert.Equal(t, Dimensions{50, 50, 50, 50, 50}, hs.Dimensions)
	assert.Empty(t, hs.Factors)
	assert.Equal(t, at(0, 12), hs.WeekEnding)
}

func TestHealthDimensions(t *testing.T) {
	entries := []ledger.Entry{
		mk("w3", at(2, 10), func(e *ledger.Entry) {
			e.Outcome = ledger.OutcomeCompleted
			e.Time = 60
		}),
		mk("w2", at(1, 15), func(e *ledger.Entry) {
			e.Outcome = ledger.OutcomeStuck
			e.EnergyCost = 8
			e.Category = ledger.CategoryStudy
		}),
		mk("w1", at(1, 10), func(e *ledger.Entry) {
			e.Outcome = ledger.OutcomeAdvanced
			e.Time = 90
			e.EnergyCost = 2
			e.Category = ledger.CategoryStudy
		}),
		mk("old", at(-10, 10)),
	}

	hs := ScoreHealth(entries, at(3, 12), 7)
	assert.Equal(t, Dimensions{
		Productivity: 80,  // 2/3*60 + (180/3/60)*40
		Energy:       60,  // avg cost 5
		Consistency:  29,  // 2 of 7 days
		Growth:       60,  // 2 study + 2 categories
		Balance:      100, // variance 0.5 over 3 entries
	}, hs.Dimensions)
	assert.Equal(t, 66, hs.Overall)

	require.Len(t, hs.Factors, 2)
	assert.Equal(t, HealthFactor{"productivity", 5, "1 completed tasks", []string{"w3"}}, hs.Factors[0])
	assert.Equal(t, HealthFactor{"productivity", -3, "1 stuck tasks", []string{"w2"}}, hs.Factors[1])
}

func TestHealthWindowIsInclusive(t *testing.T) {
	now := at(7, 9)
	edge := mk("edge", at(0, 9), func(e *ledger.Entry) { e.Outcome = ledger.OutcomeCompleted })

	hs := ScoreHealth([]ledger.Entry{edge}, now, 7)
	require.Len(t, hs.Factors, 1)
	assert.Equal(t, []string{"edge"}, hs.Factors[0].WorkLogIDs)
}

func TestHealthIgnoresFutureEntries(t *testing.T) {
	now := at(0, 12)
	future := mk("future", at(30, 9), func(e *ledger.Entry) { e.Outcome = ledger.OutcomeCompleted })

	hs := ScoreHealth([]ledger.Entry{future}, now, 7)
	assert.Equal(t, Dimensions{50, 50, 50, 50, 50}, hs.Dimensions)
	assert.Equal(t, 50, hs.Overall)
	assert.Empty(t, hs.Factors)

	// An entry stamped exactly now still counts.
	current := mk("now", now, func(e *ledger.Entry) { e.Outcome = ledger.OutcomeCompleted })
	hs = ScoreHealth([]ledger.Entry{future, current}, now, 7)
	require.Len(t, hs.Factors, 1)
	assert.Equal(t, []string{"now"}, hs.Factors[0].WorkLogIDs)
}

func TestHealthScoresStayInRange(t *testing.T) {
	var entries []ledger.Entry
	for d := 0; d < 8; d++ {
		entries = append(entries, mk("w", at(d, 9), func(e *ledger.Entry) {
			e.Outcome = ledger.OutcomeCompleted
			e.Time = 600
			e.EnergyCost = 1
		}))
	}
	hs := ScoreHealth(entries, at(7, 12), 7)
	for _, v := range []int{hs.Overall, hs.Dimensions.Productivity, hs.Dimensions.Energy, hs.Dimensions.Consistency, hs.Dimensions.Growth, hs.Dimensions.Balance} {
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 100)
	}
	assert.Equal(t, 100, hs.Dimensions.Productivity)
	assert.Equal(t, 100, hs.Dimensions.Energy)
}
