package engine

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/ledger"
)

// PersonType is the inferred relationship to a person.
type PersonType string

const (
	PersonClient    PersonType = "client"
	PersonColleague PersonType = "colleague"
	PersonMentor    PersonType = "mentor"
	PersonFriend    PersonType = "friend"
	PersonFamily    PersonType = "family"
	PersonNetwork   PersonType = "network"
)

// Person is everyone named in an entry's people list. The name string is
// the identity: "Alex" and "alex" are two people.
type Person struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             PersonType `json:"type"`
	Context          string     `json:"context"`
	LastInteraction  time.Time  `json:"lastInteraction"`
	InteractionCount int        `json:"interactionCount"`
	WorkLogIDs       []string   `json:"workLogIds"`
	Tags             []string   `json:"tags"`
	Notes            string     `json:"notes,omitempty"`
}

// ExtractPeople builds one Person per distinct name, most recently seen
// first. Type and context follow the entry with the latest timestamp
// regardless of the order entries are given in; between entries with the
// same timestamp the greater id wins.
func ExtractPeople(entries []ledger.Entry) []Person {
	byName := map[string]*Person{}
	latest := map[string]string{} // name -> id of the entry type and context came from
	var order []string

	for _, e := range entries {
		for _, name := range e.People {
			p, ok := byName[name]
			if !ok {
				p = &Person{
					ID:              derivedID("person", name),
					Name:            name,
					Type:            personType(e),
					Context:         personContext(e),
					LastInteraction: e.Timestamp,
					WorkLogIDs:      []string{},
					Tags:            []string{},
				}
				byName[name] = p
				latest[name] = e.ID
				order = append(order, name)
			}

			p.InteractionCount++
			p.WorkLogIDs = append(p.WorkLogIDs, e.ID)
			if c := e.Timestamp.Compare(p.LastInteraction); c > 0 || (c == 0 && e.ID > latest[name]) {
				p.LastInteraction = e.Timestamp
				p.Type = personType(e)
				p.Context = personContext(e)
				latest[name] = e.ID
			}
			for _, t := range e.Tags {
				if !slices.Contains(p.Tags, t) {
					p.Tags = append(p.Tags, t)
				}
			}
		}
	}

	people := make([]Person, 0, len(order))
	for _, name := range order {
		people = append(people, *byName[name])
	}
	slices.SortStableFunc(people, func(a, b Person) int {
		if c := b.LastInteraction.Compare(a.LastInteraction); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return people
}

// SearchPeople returns people whose name, context, notes or any tag
// contains query, case-insensitively.
func SearchPeople(query string, people []Person) []Person {
	q := strings.ToLower(query)
	out := []Person{}
	for _, p := range people {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Context), q) ||
			strings.Contains(strings.ToLower(p.Notes), q) ||
			slices.ContainsFunc(p.Tags, func(t string) bool { return strings.Contains(strings.ToLower(t), q) }) {
			out = append(out, p)
		}
	}
	return out
}

// Interaction is one entry in a person's history.
type Interaction struct {
	Date        time.Time       `json:"date"`
	Type        ledger.Category `json:"type"`
	Description string          `json:"description"`
	Outcome     ledger.Outcome  `json:"outcome"`
	Duration    int             `json:"duration"`
	EnergyCost  int             `json:"energyCost"`
}

// CommunicationPatterns summarises how interactions with a person go.
type CommunicationPatterns struct {
	PreferredTimeOfDay       string                 `json:"preferredTimeOfDay"`
	AverageInteractionLength float64                `json:"averageInteractionLength"`
	CommonTopics             []ledger.Category      `json:"commonTopics"`
	OutcomeDistribution      map[ledger.Outcome]int `json:"outcomeDistribution"`
}

// PersonDetails is everything known about one person.
type PersonDetails struct {
	Person                Person                `json:"person"`
	WorkLogs              []ledger.Entry        `json:"workLogs"`
	Meetings              []Meeting             `json:"meetings"`
	InteractionHistory    []Interaction         `json:"interactionHistory"`
	RelationshipStrength  int                   `json:"relationshipStrength"`
	CommunicationPatterns CommunicationPatterns `json:"communicationPatterns"`
}

// DetailsFor looks a person up by id or name and gathers their entries and
// meetings.
func DetailsFor(nameOrID string, people []Person, entries []ledger.Entry, meetings []Meeting, now time.Time) (PersonDetails, bool) {
	idx := slices.IndexFunc(people, func(p Person) bool { return p.ID == nameOrID || p.Name == nameOrID })
	if idx < 0 {
		return PersonDetails{}, false
	}
	p := people[idx]

	d := PersonDetails{Person: p, WorkLogs: []ledger.Entry{}, Meetings: []Meeting{}, InteractionHistory: []Interaction{}}
	for _, e := range entries {
		if slices.Contains(e.People, p.Name) {
			d.WorkLogs = append(d.WorkLogs, e)
			d.InteractionHistory = append(d.InteractionHistory, Interaction{
				Date:        e.Timestamp,
				Type:        e.Category,
				Description: e.What,
				Outcome:     e.Outcome,
				Duration:    e.Time,
				EnergyCost:  e.EnergyCost,
			})
		}
	}
	for _, m := range meetings {
		if slices.Contains(m.People, p.Name) {
			d.Meetings = append(d.Meetings, m)
		}
	}
	slices.SortStableFunc(d.InteractionHistory, func(a, b Interaction) int { return b.Date.Compare(a.Date) })

	d.RelationshipStrength = relationshipStrength(p, now)
	d.CommunicationPatterns = communicationPatterns(d.WorkLogs)
	return d, true
}

func relationshipStrength(p Person, now time.Time) int {
	s := min(p.InteractionCount*10, 50)
	switch since := now.Sub(p.LastInteraction); {
	case since <= 7*24*time.Hour:
		s += 20
	case since <= 30*24*time.Hour:
		s += 10
	}
	s += min(len(p.WorkLogIDs)*5, 30)
	return min(s, 100)
}

func communicationPatterns(entries []ledger.Entry) CommunicationPatterns {
	cp := CommunicationPatterns{
		PreferredTimeOfDay:  "unknown",
		CommonTopics:        []ledger.Category{},
		OutcomeDistribution: map[ledger.Outcome]int{},
	}
	if len(entries) == 0 {
		return cp
	}

	var hours [24]int
	topics := map[ledger.Category]int{}
	var topicOrder []ledger.Category
	minutes := 0
	for _, e := range entries {
		hours[e.Timestamp.Hour()]++
		if topics[e.Category] == 0 {
			topicOrder = append(topicOrder, e.Category)
		}
		topics[e.Category]++
		cp.OutcomeDistribution[e.Outcome]++
		minutes += e.Time
	}
	cp.AverageInteractionLength = float64(minutes) / float64(len(entries))

	// Earliest hour wins a tie.
	best := 0
	for h, n := range hours {
		if n > hours[best] {
			best = h
		}
	}
	switch {
	case best < 12:
		cp.PreferredTimeOfDay = "morning"
	case best < 17:
		cp.PreferredTimeOfDay = "afternoon"
	default:
		cp.PreferredTimeOfDay = "evening"
	}

	slices.SortStableFunc(topicOrder, func(a, b ledger.Category) int { return cmp.Compare(topics[b], topics[a]) })
	cp.CommonTopics = topicOrder[:min(3, len(topicOrder))]
	return cp
}
