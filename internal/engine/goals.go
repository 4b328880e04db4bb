package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lazypower/forgeone/internal/ledger"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalPaused    GoalStatus = "paused"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// Goal progress accrual.
const (
	progressPerCompletion = 10
	maxProgress           = 100
	milestoneMinutes      = 60
)

// Milestone marks a large completion toward a goal.
type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	WorkLogIDs  []string   `json:"workLogIds"`
}

// Goal is a target inferred from goal-like phrases in entry text.
type Goal struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        ledger.Category `json:"category"`
	Progress        int             `json:"progress"` // 0-100
	Milestones      []Milestone     `json:"milestones"`
	RelatedWorkLogs []string        `json:"relatedWorkLogs"`
	Status          GoalStatus      `json:"status"`
}

// goalKey is the identity of a goal: its phrase, lower-cased. This is a
// heuristic join; "Improve activation" and "improve  activation" are
// different goals.
func goalKey(title string) string {
	return strings.ToLower(title)
}

// goalPhrases returns the goal phrases in an entry, rule by rule. why and
// what are scanned as separate lines.
func goalPhrases(e ledger.Entry) []string {
	text := e.Why + "\n" + e.What
	var out []string
	for _, re := range goalRules {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if n := utf8.RuneCountInString(m); n > 5 && n < 50 {
				out = append(out, m)
			}
		}
	}
	return out
}

// InferGoals merges goal phrases across entries, highest progress first.
// Each mention links the entry; each completed mention adds progress.
func InferGoals(entries []ledger.Entry) []Goal {
	byKey := map[string]*Goal{}
	var order []string

	for _, e := range entries {
		for _, phrase := range goalPhrases(e) {
			key := goalKey(phrase)
			g, ok := byKey[key]
			if !ok {
				g = &Goal{
					ID:              derivedID("goal", key),
					Title:           phrase,
					Description:     "Inferred from work patterns",
					Category:        e.Category,
					Milestones:      []Milestone{},
					RelatedWorkLogs: []string{},
					Status:          GoalActive,
				}
				byKey[key] = g
				order = append(order, key)
			}

			g.RelatedWorkLogs = append(g.RelatedWorkLogs, e.ID)
			if e.Outcome != ledger.OutcomeCompleted {
				continue
			}
			g.Progress = min(g.Progress+progressPerCompletion, maxProgress)
			if e.Time > milestoneMinutes {
				at := e.Timestamp
				g.Milestones = append(g.Milestones, Milestone{
					ID:          derivedID("milestone", fmt.Sprintf("%s\x00%s\x00%d", key, e.ID, len(g.Milestones))),
					Title:       "Completed: " + e.What,
					Completed:   true,
					CompletedAt: &at,
					WorkLogIDs:  []string{e.ID},
				})
			}
		}
	}

	goals := make([]Goal, 0, len(order))
	for _, k := range order {
		goals = append(goals, *byKey[k])
	}
	slices.SortStableFunc(goals, func(a, b Goal) int { return b.Progress - a.Progress })
	return goals
}
