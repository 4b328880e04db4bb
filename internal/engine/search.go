package engine

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/recall"
)

// Relevance scores.
const (
	scoreExact     = 100
	scoreSubstring = 80
	scorePerWord   = 20
)

// defaultSearchLimit caps results when no limit is given.
const defaultSearchLimit = 10

// ResultKind identifies what a search result points at.
type ResultKind string

const (
	KindWorkLog ResultKind = "workLog"
	KindAnchor  ResultKind = "memoryAnchor"
	KindPerson  ResultKind = "person"
)

// SearchResult is one ranked hit.
type SearchResult struct {
	ID             string     `json:"id"`
	Type           ResultKind `json:"type"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Category       string     `json:"category,omitempty"`
	Date           time.Time  `json:"date"`
	RelevanceScore int        `json:"relevanceScore"`
	Highlights     []string   `json:"highlights"`
}

// Relevance scores content against query, case-insensitively: an exact
// match beats containment, which beats per-word hits. Word hits are not
// capped. A blank query matches nothing.
func Relevance(query, content string) int {
	if strings.TrimSpace(query) == "" {
		return 0
	}
	q := strings.ToLower(query)
	c := strings.ToLower(content)
	if c == q {
		return scoreExact
	}
	if strings.Contains(c, q) {
		return scoreSubstring
	}
	score := 0
	for _, w := range strings.Fields(q) {
		if strings.Contains(c, w) {
			score += scorePerWord
		}
	}
	return score
}

// Highlights returns, for each query word found in content, a copy of
// content with the first occurrence of that word wrapped in **.
func Highlights(query, content string) []string {
	out := []string{}
	for _, w := range strings.Fields(query) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w))
		loc := re.FindStringIndex(content)
		if loc == nil {
			continue
		}
		out = append(out, content[:loc[0]]+"**"+content[loc[0]:loc[1]]+"**"+content[loc[1]:])
	}
	return out
}

// Search ranks entries, anchors and people against query and returns the
// top limit hits. Equal scores keep encounter order: entries, then
// anchors, then people. A blank query returns nothing.
func Search(query string, entries []ledger.Entry, anchors []recall.Anchor, people []Person, limit int) []SearchResult {
	results := []SearchResult{}
	if strings.TrimSpace(query) == "" {
		return results
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	for _, e := range entries {
		if score := Relevance(query, e.What+" "+e.Why+" "+string(e.Category)); score > 0 {
			results = append(results, SearchResult{
				ID:             e.ID,
				Type:           KindWorkLog,
				Title:          e.What,
				Content:        e.Why,
				Category:       string(e.Category),
				Date:           e.Timestamp,
				RelevanceScore: score,
				Highlights:     Highlights(query, e.What+" "+e.Why),
			})
		}
	}
	for _, a := range anchors {
		if score := Relevance(query, a.Content); score > 0 {
			results = append(results, SearchResult{
				ID:             a.ID,
				Type:           KindAnchor,
				Title:          string(a.Type),
				Content:        a.Content,
				Date:           a.Timestamp,
				RelevanceScore: score,
				Highlights:     Highlights(query, a.Content),
			})
		}
	}
	for _, p := range people {
		text := p.Name + " " + p.Context
		if score := Relevance(query, text); score > 0 {
			results = append(results, SearchResult{
				ID:             p.ID,
				Type:           KindPerson,
				Title:          p.Name,
				Content:        p.Context,
				Date:           p.LastInteraction,
				RelevanceScore: score,
				Highlights:     Highlights(query, text),
			})
		}
	}

	slices.SortStableFunc(results, func(a, b SearchResult) int { return b.RelevanceScore - a.RelevanceScore })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
