package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/lazypower/forgeone/internal/ledger"
)

// neutralScore is every dimension's value when the window is empty.
const neutralScore = 50

// Dimensions are the five health components, each 0-100.
type Dimensions struct {
	Productivity int `json:"productivity"`
	Energy       int `json:"energy"`
	Consistency  int `json:"consistency"`
	Growth       int `json:"growth"`
	Balance      int `json:"balance"`
}

// HealthFactor explains a notable contribution to one dimension.
type HealthFactor struct {
	Dimension   string   `json:"dimension"`
	Impact      int      `json:"impact"`
	Description string   `json:"description"`
	WorkLogIDs  []string `json:"workLogIds"`
}

// HealthScore is the composite wellness score for a trailing window.
type HealthScore struct {
	Overall    int            `json:"overall"`
	Dimensions Dimensions     `json:"dimensions"`
	WeekEnding time.Time      `json:"weekEnding"`
	Factors    []HealthFactor `json:"factors"`
}

// ScoreHealth scores the entries stamped within windowDays before now, both
// ends included. Entries stamped after now are ignored.
func ScoreHealth(entries []ledger.Entry, now time.Time, windowDays int) HealthScore {
	cutoff := now.AddDate(0, 0, -windowDays)
	var window []ledger.Entry
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) && !e.Timestamp.After(now) {
			window = append(window, e)
		}
	}

	hs := HealthScore{WeekEnding: now, Factors: healthFactors(window)}
	if len(window) == 0 {
		hs.Dimensions = Dimensions{neutralScore, neutralScore, neutralScore, neutralScore, neutralScore}
		hs.Overall = neutralScore
		return hs
	}

	d := Dimensions{
		Productivity: productivity(window),
		Energy:       energy(window),
		Consistency:  consistency(window, windowDays),
		Growth:       growth(window),
		Balance:      balance(window),
	}
	hs.Dimensions = d
	hs.Overall = round(float64(d.Productivity+d.Energy+d.Consistency+d.Growth+d.Balance) / 5)
	return hs
}

// round rounds half up and clamps to a 0-100 score.
func round(x float64) int {
	return min(max(int(math.Floor(x+0.5)), 0), 100)
}

func productivity(window []ledger.Entry) int {
	positive, minutes := 0, 0
	for _, e := range window {
		if e.Outcome.Positive() {
			positive++
		}
		minutes += e.Time
	}
	n := float64(len(window))
	rate := float64(positive) / n
	timeScore := math.Min(float64(minutes)/(n*60), 2)
	return round(rate*60 + timeScore*40)
}

func energy(window []ledger.Entry) int {
	sum := 0
	for _, e := range window {
		sum += e.EnergyCost
	}
	avg := float64(sum) / float64(len(window))
	return round(math.Max(0, 100-(avg-1)*10))
}

func consistency(window []ledger.Entry, windowDays int) int {
	days := map[string]bool{}
	for _, e := range window {
		days[e.Timestamp.Format(time.DateOnly)] = true
	}
	return round(float64(len(days)) / float64(windowDays) * 100)
}

func growth(window []ledger.Entry) int {
	study := 0
	cats := map[ledger.Category]bool{}
	for _, e := range window {
		if e.Category == ledger.CategoryStudy {
			study++
		}
		cats[e.Category] = true
	}
	return round(math.Min(float64(study)*20, 60) + math.Min(float64(len(cats))*10, 40))
}

// balance penalises uneven spread across the categories actually used.
func balance(window []ledger.Entry) int {
	counts := map[ledger.Category]int{}
	for _, e := range window {
		counts[e.Category]++
	}
	total := float64(len(window))
	ideal := total / float64(len(counts))
	var variance float64
	for _, c := range counts {
		variance += math.Pow(float64(c)-ideal, 2)
	}
	return round(math.Max(0, 100-variance/total))
}

func healthFactors(window []ledger.Entry) []HealthFactor {
	var completed, stuck []string
	for _, e := range window {
		switch e.Outcome {
		case ledger.OutcomeCompleted:
			completed = append(completed, e.ID)
		case ledger.OutcomeStuck:
			stuck = append(stuck, e.ID)
		}
	}

	factors := []HealthFactor{}
	if len(completed) > 0 {
		factors = append(factors, HealthFactor{
			Dimension:   "productivity",
			Impact:      5 * len(completed),
			Description: fmt.Sprintf("%d completed tasks", len(completed)),
			WorkLogIDs:  completed,
		})
	}
	if len(stuck) > 0 {
		factors = append(factors, HealthFactor{
			Dimension:   "productivity",
			Impact:      -3 * len(stuck),
			Description: fmt.Sprintf("%d stuck tasks", len(stuck)),
			WorkLogIDs:  stuck,
		})
	}
	return factors
}
