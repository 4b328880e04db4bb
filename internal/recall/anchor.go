// Package recall distills noteworthy facts ("memory anchors") from work
// entries. Unlike every other derived view, anchors are stored: each is
// computed once when its entry is first seen and never recomputed.
package recall

import (
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/ledger"
)

// AnchorType is the kind of fact an anchor records.
type AnchorType string

const (
	TypeDecision     AnchorType = "decision"
	TypeInsight      AnchorType = "insight"
	TypeMilestone    AnchorType = "milestone"
	TypeRelationship AnchorType = "relationship"
	TypeLearning     AnchorType = "learning"
	TypeChallenge    AnchorType = "challenge"
	TypeSolution     AnchorType = "solution"
)

// Types lists every anchor type.
var Types = []AnchorType{
	TypeDecision, TypeInsight, TypeMilestone, TypeRelationship,
	TypeLearning, TypeChallenge, TypeSolution,
}

// Anchor is one distilled fact. WorkLogID is a weak reference: the entry
// may since have been deleted.
type Anchor struct {
	ID          string     `json:"id"`
	WorkLogID   string     `json:"workLogId"`
	Type        AnchorType `json:"type"`
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
	Importance  int        `json:"importance"`
	Connections []string   `json:"connections"`
}

var baseImportance = map[AnchorType]int{
	TypeDecision:     8,
	TypeInsight:      7,
	TypeMilestone:    9,
	TypeRelationship: 6,
	TypeLearning:     6,
	TypeChallenge:    5,
	TypeSolution:     8,
}

// Importance scores an anchor of type t drawn from e, clamped to [1,10].
func Importance(e ledger.Entry, t AnchorType) int {
	score := baseImportance[t]
	if e.EnergyCost > 7 {
		score++
	}
	if e.Time > 120 {
		score++
	}
	if len(e.People) > 1 {
		score++
	}
	switch e.Outcome {
	case ledger.OutcomeCompleted:
		score++
	case ledger.OutcomeStuck:
		score--
	}
	return min(max(score, 1), 10)
}

// fact is an anchor before it has an id, timestamp or connections.
type fact struct {
	typ     AnchorType
	content string
}

// extract returns the facts an entry yields, in a fixed type order. An
// entry may yield several anchors of different types.
func extract(e ledger.Entry) []fact {
	var out []fact
	for _, d := range e.Decisions {
		out = append(out, fact{TypeDecision, d})
	}
	for _, in := range e.Insights {
		out = append(out, fact{TypeInsight, in})
	}
	if e.Outcome.Positive() {
		out = append(out, fact{TypeMilestone, fmt.Sprintf("Achieved %s: %s", e.Outcome, e.What)})
	}
	if len(e.People) > 0 {
		out = append(out, fact{TypeRelationship, "Interaction with " + strings.Join(e.People, ", ")})
	}
	if e.Category == ledger.CategoryStudy || strings.Contains(strings.ToLower(e.Why), "learn") {
		out = append(out, fact{TypeLearning, e.What})
	}
	if len(e.Blockers) > 0 {
		out = append(out, fact{TypeChallenge, "Blocked by: " + strings.Join(e.Blockers, ", ")})
		if e.Outcome == ledger.OutcomeCompleted {
			out = append(out, fact{TypeSolution, "Overcame: " + strings.Join(e.Blockers, ", ")})
		}
	}
	return out
}

const (
	relatedWindow  = 7 * 24 * time.Hour
	maxConnections = 5
)

// related reports whether two anchors from different entries share a type
// and lie within a week of each other.
func related(a, b Anchor) bool {
	if a.Type != b.Type || a.WorkLogID == b.WorkLogID {
		return false
	}
	d := a.Timestamp.Sub(b.Timestamp)
	if d < 0 {
		d = -d
	}
	return d <= relatedWindow
}

// connect returns the ids of up to maxConnections anchors in existing
// related to a, in existing's order.
func connect(a Anchor, existing []Anchor) []string {
	out := []string{}
	for _, other := range existing {
		if len(out) == maxConnections {
			break
		}
		if related(a, other) {
			out = append(out, other.ID)
		}
	}
	return out
}
