package engine

import (
	"regexp"
	"slices"
	"strings"

	"github.com/lazypower/forgeone/internal/ledger"
)

// Keyword and pattern tables. Each table is evaluated top to bottom and the
// first matching rule wins unless noted otherwise.

// goalRules find goal phrases. Neither the gap nor the phrase crosses a
// newline, so a phrase never spans two fields.
var goalRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:build|create|develop|launch)[^\S\n]+.+`),
	regexp.MustCompile(`(?i)(?:learn|study|master)[^\S\n]+.+`),
	regexp.MustCompile(`(?i)(?:improve|optimize|enhance)[^\S\n]+.+`),
	regexp.MustCompile(`(?i)(?:finish|complete|deliver)[^\S\n]+.+`),
}

// actionRules find action items in lower-cased meeting text. All rules
// apply.
var actionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?:need to|will|should|must)\s+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?:action item|todo|task):\s*(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?:follow up|followup):\s*(.+?)(?:\.|$)`),
}

// triggerWords are matched against an entry's why. All hits count.
var triggerWords = []string{"meeting", "deadline", "coffee", "email", "client", "urgent"}

type personRule struct {
	typ        PersonType
	keywords   []string
	categories []ledger.Category
}

var personRules = []personRule{
	{PersonClient, []string{"client", "customer"}, []ledger.Category{ledger.CategoryClient}},
	{PersonMentor, []string{"mentor", "coach", "advisor"}, nil},
	{PersonFriend, []string{"friend", "social"}, []ledger.Category{ledger.CategoryPersonal}},
	{PersonFamily, []string{"family", "parent", "sibling"}, nil},
	{PersonNetwork, []string{"network", "conference", "meetup"}, nil},
}

type meetingRule struct {
	typ      MeetingType
	keywords []string
}

var meetingRules = []meetingRule{
	{MeetingClient, []string{"client", "customer"}},
	{MeetingOneOnOne, []string{"1:1", "one on one"}},
	{MeetingTeam, []string{"team", "standup", "sync"}},
	{MeetingBrainstorm, []string{"brainstorm", "idea"}},
	{MeetingReview, []string{"review", "retrospective"}},
	{MeetingPlanning, []string{"plan", "planning"}},
}

type dueRule struct {
	keywords []string
	days     int
}

var dueRules = []dueRule{
	{[]string{"tomorrow"}, 1},
	{[]string{"next week"}, 7},
	{[]string{"asap", "urgent"}, 1},
}

func containsAny(text string, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(text, w) })
}

// personType infers a person's relationship from the entry that mentions
// them.
func personType(e ledger.Entry) PersonType {
	text := strings.ToLower(e.Why + " " + e.What)
	for _, r := range personRules {
		if slices.Contains(r.categories, e.Category) || containsAny(text, r.keywords) {
			return r.typ
		}
	}
	return PersonColleague
}

// personContext describes what an entry says about the people in it.
func personContext(e ledger.Entry) string {
	switch e.Category {
	case ledger.CategoryClient:
		return "Client work: " + e.What
	case ledger.CategoryProject:
		return "Project collaboration: " + e.What
	case ledger.CategoryMeeting:
		return "Meeting: " + e.What
	}
	if containsAny(strings.ToLower(e.Why), []string{"learn", "study"}) {
		return "Learning/mentoring"
	}
	return "General interaction: " + e.What
}

func meetingType(e ledger.Entry) MeetingType {
	text := strings.ToLower(e.What + " " + e.Why)
	for _, r := range meetingRules {
		if containsAny(text, r.keywords) {
			return r.typ
		}
	}
	return MeetingTeam
}

func triggers(why string) []string {
	why = strings.ToLower(why)
	var out []string
	for _, w := range triggerWords {
		if strings.Contains(why, w) {
			out = append(out, w)
		}
	}
	return out
}

// TimeOfDay buckets an hour of the day.
func TimeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	default:
		return "evening"
	}
}
