package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/ledger"
)

// minHabitFrequency is how many supporting entries a pattern needs.
const minHabitFrequency = 3

// HabitPattern describes when and where a habit happens. Attributes come
// from the first supporting entry in ledger order.
type HabitPattern struct {
	TimeOfDay string   `json:"timeOfDay,omitempty"`
	DayOfWeek string   `json:"dayOfWeek,omitempty"`
	Context   string   `json:"context,omitempty"`
	Triggers  []string `json:"triggers"`
}

// Habit is a recurring pattern inferred from at least three entries.
type Habit struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Pattern        HabitPattern    `json:"pattern"`
	Category       ledger.Category `json:"category"`
	Frequency      int             `json:"frequency"`
	Consistency    float64         `json:"consistency"` // 0-1
	LastOccurrence time.Time       `json:"lastOccurrence"`
	Impact         float64         `json:"impact"` // 0-10
	Source         string          `json:"source"`
}

type habitGroup struct {
	key     string
	first   ledger.Entry
	entries []ledger.Entry
}

// groupKeys returns the pattern keys an entry contributes to.
func groupKeys(e ledger.Entry) []string {
	hour := e.Timestamp.Hour()
	keys := []string{
		fmt.Sprintf("time:%d-%d", hour, int(e.Timestamp.Weekday())),
		fmt.Sprintf("category:%s-%d", e.Category, hour),
	}
	if env := e.Environment(); env != "" {
		keys = append(keys, fmt.Sprintf("context:%s-%s", env, e.Category))
	}
	return keys
}

// InferHabits groups entries by (hour, weekday), (category, hour) and
// (environment, category) and reports every group with enough support,
// highest impact first.
func InferHabits(entries []ledger.Entry) []Habit {
	groups := map[string]*habitGroup{}
	var order []string
	for _, e := range entries {
		for _, k := range groupKeys(e) {
			g, ok := groups[k]
			if !ok {
				g = &habitGroup{key: k, first: e}
				groups[k] = g
				order = append(order, k)
			}
			g.entries = append(g.entries, e)
		}
	}

	habits := []Habit{}
	for _, k := range order {
		g := groups[k]
		if len(g.entries) < minHabitFrequency {
			continue
		}
		habits = append(habits, g.habit())
	}

	slices.SortStableFunc(habits, func(a, b Habit) int {
		switch {
		case a.Impact > b.Impact:
			return -1
		case a.Impact < b.Impact:
			return 1
		}
		return 0
	})
	return habits
}

func (g *habitGroup) habit() Habit {
	pattern := HabitPattern{
		TimeOfDay: TimeOfDay(g.first.Timestamp.Hour()),
		DayOfWeek: strings.ToLower(g.first.Timestamp.Weekday().String()),
		Context:   g.first.Environment(),
		Triggers:  []string{},
	}

	days := map[string]bool{}
	hits := map[string]bool{}
	positive := 0
	var last time.Time
	for _, e := range g.entries {
		days[e.Timestamp.Format(time.DateOnly)] = true
		if e.Outcome.Positive() {
			positive++
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
		for _, t := range triggers(e.Why) {
			hits[t] = true
		}
	}
	for _, w := range triggerWords {
		if hits[w] {
			pattern.Triggers = append(pattern.Triggers, w)
		}
	}

	freq := len(g.entries)
	context := pattern.Context
	if context == "" {
		context = "unknown context"
	}
	return Habit{
		ID:             derivedID("habit", g.key),
		Name:           fmt.Sprintf("%s during %s (%s)", g.first.Category, context, pattern.TimeOfDay),
		Pattern:        pattern,
		Category:       g.first.Category,
		Frequency:      freq,
		Consistency:    min(float64(len(days))/float64(freq), 1),
		LastOccurrence: last,
		Impact:         float64(positive) / float64(freq) * 10,
		Source:         "inferred",
	}
}
