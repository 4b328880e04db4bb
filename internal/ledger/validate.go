package ledger

import (
	"fmt"
	"slices"
	"strings"
)

// Energy cost bounds, inclusive.
const (
	minEnergy = 1
	maxEnergy = 10
)

// Validate checks every field of e and returns all problems found. An empty
// result means the entry is valid.
func Validate(e Entry) []string {
	var problems []string

	if strings.TrimSpace(e.What) == "" {
		problems = append(problems, "what is required")
	}
	if strings.TrimSpace(e.Why) == "" {
		problems = append(problems, "why is required")
	}
	if e.Time < 0 {
		problems = append(problems, fmt.Sprintf("time must be >= 0 (got %d)", e.Time))
	}
	if e.EnergyCost < minEnergy || e.EnergyCost > maxEnergy {
		problems = append(problems, fmt.Sprintf("energyCost must be between %d and %d (got %d)", minEnergy, maxEnergy, e.EnergyCost))
	}
	if !slices.Contains(Outcomes, e.Outcome) {
		problems = append(problems, fmt.Sprintf("invalid outcome %q", e.Outcome))
	}
	if !slices.Contains(Categories, e.Category) {
		problems = append(problems, fmt.Sprintf("invalid category %q", e.Category))
	}
	if !slices.Contains(Sources, e.Source) {
		problems = append(problems, fmt.Sprintf("invalid source %q", e.Source))
	}
	return problems
}
