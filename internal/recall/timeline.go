package recall

import (
	"fmt"
	"math"
	"strings"

	"github.com/lazypower/forgeone/internal/ledger"
)

// keyMoment is the significance at which an event counts as a key moment.
const keyMoment = 8

// Event pairs an entry with its anchors and a significance score.
type Event struct {
	WorkLog      ledger.Entry `json:"workLog"`
	Anchors      []Anchor     `json:"anchors"`
	Significance int          `json:"significance"`
}

// Timeline is the event view of a set of entries.
type Timeline struct {
	Events      []Event `json:"events"`
	TotalEvents int     `json:"totalEvents"`
	TimeSpan    string  `json:"timeSpan"`
	KeyMoments  []Event `json:"keyMoments"`
}

// Significance scores an entry from 5 up to at most 10.
func Significance(e ledger.Entry) int {
	s := 5
	switch e.Outcome {
	case ledger.OutcomeCompleted:
		s += 3
	case ledger.OutcomeAdvanced:
		s += 2
	case ledger.OutcomeStuck:
		s++
	}
	if e.EnergyCost > 7 {
		s += 2
	}
	if e.Time > 180 {
		s++
	}
	if len(e.People) > 0 {
		s++
	}
	return min(s, 10)
}

// Timeline builds the event view of entries, keeping their order.
func (r *Recall) Timeline(entries []ledger.Entry) Timeline {
	byEntry := make(map[string][]Anchor)
	for _, a := range r.Anchors() {
		byEntry[a.WorkLogID] = append(byEntry[a.WorkLogID], a)
	}

	tl := Timeline{
		Events:     make([]Event, 0, len(entries)),
		KeyMoments: []Event{},
		TimeSpan:   TimeSpan(entries),
	}
	for _, e := range entries {
		ev := Event{WorkLog: e, Anchors: byEntry[e.ID], Significance: Significance(e)}
		if ev.Anchors == nil {
			ev.Anchors = []Anchor{}
		}
		tl.Events = append(tl.Events, ev)
		if ev.Significance >= keyMoment {
			tl.KeyMoments = append(tl.KeyMoments, ev)
		}
	}
	tl.TotalEvents = len(tl.Events)
	return tl
}

// TimeSpan describes the distance between the oldest and newest entry in
// whole days, weeks or months, rounding up.
func TimeSpan(entries []ledger.Entry) string {
	if len(entries) == 0 {
		return "0 days"
	}
	lo, hi := entries[0].Timestamp, entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp.Before(lo) {
			lo = e.Timestamp
		}
		if e.Timestamp.After(hi) {
			hi = e.Timestamp
		}
	}

	days := int(math.Ceil(hi.Sub(lo).Hours() / 24))
	switch {
	case days == 0:
		return "1 day"
	case days == 1:
		return "2 days"
	case days < 7:
		return fmt.Sprintf("%d days", days+1)
	case days < 30:
		return fmt.Sprintf("%d weeks", int(math.Ceil(float64(days)/7)))
	default:
		return fmt.Sprintf("%d months", int(math.Ceil(float64(days)/30)))
	}
}

// MemorySearch is the result of SearchMemories.
type MemorySearch struct {
	Query        string             `json:"query"`
	Results      []Anchor           `json:"results"`
	TotalResults int                `json:"totalResults"`
	Categories   map[AnchorType]int `json:"categories"`
}

// SearchMemories returns anchors whose content contains any query term,
// case-insensitively, in creation order. A blank query matches nothing.
func (r *Recall) SearchMemories(query string) MemorySearch {
	res := MemorySearch{Query: query, Results: []Anchor{}, Categories: map[AnchorType]int{}}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return res
	}

	for _, a := range r.Anchors() {
		content := strings.ToLower(a.Content)
		for _, t := range terms {
			if strings.Contains(content, t) {
				res.Results = append(res.Results, a)
				res.Categories[a.Type]++
				break
			}
		}
	}
	res.TotalResults = len(res.Results)
	return res
}
