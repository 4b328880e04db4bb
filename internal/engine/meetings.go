package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lazypower/forgeone/internal/ledger"
)

// MeetingType classifies a meeting.
type MeetingType string

const (
	MeetingClient     MeetingType = "client_meeting"
	MeetingOneOnOne   MeetingType = "one_on_one"
	MeetingTeam       MeetingType = "team_meeting"
	MeetingBrainstorm MeetingType = "brainstorm"
	MeetingReview     MeetingType = "review"
	MeetingPlanning   MeetingType = "planning"
)

// minActionChars is the shortest action item kept.
const minActionChars = 5

// ActionItem is a follow-up pulled from meeting text.
type ActionItem struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
}

// Meeting is an entry recognised as a meeting.
type Meeting struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Timestamp   time.Time    `json:"timestamp"`
	Duration    int          `json:"duration"`
	People      []string     `json:"people"`
	WorkLogID   string       `json:"workLogId"`
	Type        MeetingType  `json:"type"`
	Outcomes    []string     `json:"outcomes"`
	ActionItems []ActionItem `json:"actionItems"`
}

func isMeeting(e ledger.Entry) bool {
	return e.Category == ledger.CategoryMeeting || strings.Contains(strings.ToLower(e.What), "meeting")
}

// ExtractMeetings returns a Meeting for every meeting entry, newest first.
func ExtractMeetings(entries []ledger.Entry) []Meeting {
	meetings := []Meeting{}
	for _, e := range entries {
		if !isMeeting(e) {
			continue
		}
		people := slices.Clone(e.People)
		if people == nil {
			people = []string{}
		}
		meetings = append(meetings, Meeting{
			ID:          derivedID("meeting", e.ID),
			Title:       e.What,
			Timestamp:   e.Timestamp,
			Duration:    e.Time,
			People:      people,
			WorkLogID:   e.ID,
			Type:        meetingType(e),
			Outcomes:    meetingOutcomes(e),
			ActionItems: actionItems(e),
		})
	}
	slices.SortStableFunc(meetings, func(a, b Meeting) int { return b.Timestamp.Compare(a.Timestamp) })
	return meetings
}

func meetingOutcomes(e ledger.Entry) []string {
	out := []string{}
	if e.Outcome == ledger.OutcomeCompleted {
		out = append(out, "Meeting completed successfully")
	}
	for _, d := range e.Decisions {
		out = append(out, "Decision: "+d)
	}
	for _, in := range e.Insights {
		out = append(out, "Insight: "+in)
	}
	return out
}

func actionItems(e ledger.Entry) []ActionItem {
	text := strings.ToLower(strings.Join(e.Blockers, " ") + " " + e.Why + " " + e.What)

	var assignee string
	if len(e.People) > 0 {
		assignee = e.People[0]
	}
	due := dueDate(e)

	items := []ActionItem{}
	for _, re := range actionRules {
		for _, m := range re.FindAllString(text, -1) {
			desc := strings.TrimSpace(m)
			if utf8.RuneCountInString(desc) < minActionChars {
				continue
			}
			items = append(items, ActionItem{
				ID:          derivedID("action", fmt.Sprintf("%s\x00%d", e.ID, len(items))),
				Description: desc,
				Assignee:    assignee,
				DueDate:     due,
			})
		}
	}
	return items
}

func dueDate(e ledger.Entry) *time.Time {
	text := strings.ToLower(e.Why + " " + e.What)
	for _, r := range dueRules {
		if containsAny(text, r.keywords) {
			d := e.Timestamp.AddDate(0, 0, r.days)
			return &d
		}
	}
	return nil
}

// RelationshipScore summarises relationship health from the CRM view.
type RelationshipScore struct {
	Score                int `json:"score"`
	StrongRelationships  int `json:"strongRelationships"`
	RecentInteractions   int `json:"recentInteractions"`
	MeetingOutcomes      int `json:"meetingOutcomes"`
	ActionItemsCompleted int `json:"actionItemsCompleted"`
}

// RelationshipInsights is the CRM summary.
type RelationshipInsights struct {
	TotalPeople          int                `json:"totalPeople"`
	ActiveRelationships  int                `json:"activeRelationships"`
	RelationshipTypes    map[PersonType]int `json:"relationshipTypes"`
	InteractionFrequency int                `json:"interactionFrequency"`
	UpcomingFollowUps    []ActionItem       `json:"upcomingFollowUps"`
	RelationshipHealth   RelationshipScore  `json:"relationshipHealth"`
}

// Interaction thresholds.
const (
	strongInteractions = 3
	recentWindow       = 7 * 24 * time.Hour
	activeWindow       = 30 * 24 * time.Hour
)

// InsightsFor summarises people and meetings as of now.
func InsightsFor(people []Person, meetings []Meeting, now time.Time) RelationshipInsights {
	ri := RelationshipInsights{
		TotalPeople:       len(people),
		RelationshipTypes: map[PersonType]int{},
		UpcomingFollowUps: []ActionItem{},
	}

	interactions := 0
	for _, p := range people {
		since := now.Sub(p.LastInteraction)
		if since <= activeWindow {
			ri.ActiveRelationships++
		}
		if since <= recentWindow {
			ri.RelationshipHealth.RecentInteractions++
		}
		if p.InteractionCount >= strongInteractions {
			ri.RelationshipHealth.StrongRelationships++
		}
		ri.RelationshipTypes[p.Type]++
		interactions += p.InteractionCount
	}
	if len(people) > 0 {
		ri.InteractionFrequency = int(math.Round(float64(interactions) / float64(len(people))))
	}

	for _, m := range meetings {
		ri.RelationshipHealth.MeetingOutcomes += len(m.Outcomes)
		for _, a := range m.ActionItems {
			if a.Completed {
				ri.RelationshipHealth.ActionItemsCompleted++
				continue
			}
			ri.UpcomingFollowUps = append(ri.UpcomingFollowUps, a)
		}
	}
	// Dated items first, soonest first; undated keep meeting order.
	slices.SortStableFunc(ri.UpcomingFollowUps, func(a, b ActionItem) int {
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			return a.DueDate.Compare(*b.DueDate)
		case a.DueDate != nil:
			return -1
		case b.DueDate != nil:
			return 1
		}
		return 0
	})

	h := &ri.RelationshipHealth
	raw := float64(h.StrongRelationships*20+h.RecentInteractions*15+h.MeetingOutcomes*10+h.ActionItemsCompleted*5) /
		float64(max(len(people), 1))
	h.Score = min(int(math.Round(raw)), 100)
	return ri
}
