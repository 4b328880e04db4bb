// Package ledger is the single source of truth: an ordered, durable
// collection of work entries. Every other view (anchors, habits, goals,
// health, people, search) is derived from a snapshot of it.
package ledger

import (
	"slices"
	"time"
)

// Outcome is the result of a unit of work.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
	OutcomeStuck     Outcome = "stuck"
	OutcomeAdvanced  Outcome = "advanced"
	OutcomePaused    Outcome = "paused"
	OutcomeBlocked   Outcome = "blocked"
)

// Outcomes lists every valid outcome.
var Outcomes = []Outcome{
	OutcomeCompleted, OutcomePartial, OutcomeStuck,
	OutcomeAdvanced, OutcomePaused, OutcomeBlocked,
}

// Positive reports whether the outcome counts as progress.
func (o Outcome) Positive() bool {
	return o == OutcomeCompleted || o == OutcomeAdvanced
}

// Category classifies an entry.
type Category string

const (
	CategoryProject      Category = "project"
	CategoryStudy        Category = "study"
	CategoryPersonal     Category = "personal"
	CategoryClient       Category = "client"
	CategoryMeeting      Category = "meeting"
	CategoryHealth       Category = "health"
	CategoryRelationship Category = "relationship"
	CategoryFinance      Category = "finance"
	CategoryOther        Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryProject, CategoryStudy, CategoryPersonal, CategoryClient, CategoryMeeting,
	CategoryHealth, CategoryRelationship, CategoryFinance, CategoryOther,
}

// Source records how an entry was captured.
type Source string

const (
	SourceManual          Source = "manual"
	SourceQuickCapture    Source = "quick_capture"
	SourceAdvancedCapture Source = "advanced_capture"
	SourceAutomatic       Source = "automatic"
	SourceImported        Source = "imported"
)

// Sources lists every valid source.
var Sources = []Source{
	SourceManual, SourceQuickCapture, SourceAdvancedCapture, SourceAutomatic, SourceImported,
}

// Context describes the circumstances an entry was recorded in.
type Context struct {
	Location    string   `json:"location,omitempty"`
	Environment string   `json:"environment,omitempty"` // quiet, noisy, office, home
	Mood        string   `json:"mood,omitempty"`
	Tools       []string `json:"tools,omitempty"`
	StateBefore string   `json:"state_before,omitempty"`
	StateAfter  string   `json:"state_after,omitempty"`
}

// Entry is one recorded unit of work.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	What       string    `json:"what"`
	Why        string    `json:"why"`
	Time       int       `json:"time"` // minutes
	Outcome    Outcome   `json:"outcome"`
	Category   Category  `json:"category"`
	EnergyCost int       `json:"energyCost"` // 1-10
	Blockers   []string  `json:"blockers,omitempty"`
	People     []string  `json:"people,omitempty"`
	Decisions  []string  `json:"decisions,omitempty"`
	Insights   []string  `json:"insights,omitempty"`
	Context    *Context  `json:"context,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Source     Source    `json:"source"`
}

// Environment returns the context environment, or "" when there is none.
func (e Entry) Environment() string {
	if e.Context == nil {
		return ""
	}
	return e.Context.Environment
}

// Clone returns a deep copy so callers cannot alias ledger state.
func (e Entry) Clone() Entry {
	c := e
	c.Blockers = slices.Clone(e.Blockers)
	c.People = slices.Clone(e.People)
	c.Decisions = slices.Clone(e.Decisions)
	c.Insights = slices.Clone(e.Insights)
	c.Tags = slices.Clone(e.Tags)
	if e.Context != nil {
		ctx := *e.Context
		ctx.Tools = slices.Clone(e.Context.Tools)
		c.Context = &ctx
	}
	return c
}

// Draft is the caller-supplied part of a new entry; the ledger assigns the
// id and timestamp.
type Draft struct {
	What       string   `json:"what"`
	Why        string   `json:"why"`
	Time       int      `json:"time"`
	Outcome    Outcome  `json:"outcome"`
	Category   Category `json:"category"`
	EnergyCost int      `json:"energyCost"`
	Blockers   []string `json:"blockers,omitempty"`
	People     []string `json:"people,omitempty"`
	Decisions  []string `json:"decisions,omitempty"`
	Insights   []string `json:"insights,omitempty"`
	Context    *Context `json:"context,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Source     Source   `json:"source,omitempty"`
}

func (d Draft) entry(id string, ts time.Time) Entry {
	src := d.Source
	if src == "" {
		src = SourceManual
	}
	return Entry{
		ID:         id,
		Timestamp:  ts,
		What:       d.What,
		Why:        d.Why,
		Time:       d.Time,
		Outcome:    d.Outcome,
		Category:   d.Category,
		EnergyCost: d.EnergyCost,
		Blockers:   d.Blockers,
		People:     d.People,
		Decisions:  d.Decisions,
		Insights:   d.Insights,
		Context:    d.Context,
		Tags:       d.Tags,
		Source:     src,
	}.Clone()
}

// Patch holds partial update fields. Nil fields are left unchanged; id and
// timestamp cannot be patched.
type Patch struct {
	What       *string   `json:"what,omitempty"`
	Why        *string   `json:"why,omitempty"`
	Time       *int      `json:"time,omitempty"`
	Outcome    *Outcome  `json:"outcome,omitempty"`
	Category   *Category `json:"category,omitempty"`
	EnergyCost *int      `json:"energyCost,omitempty"`
	Blockers   *[]string `json:"blockers,omitempty"`
	People     *[]string `json:"people,omitempty"`
	Decisions  *[]string `json:"decisions,omitempty"`
	Insights   *[]string `json:"insights,omitempty"`
	Context    *Context  `json:"context,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	Source     *Source   `json:"source,omitempty"`
}

func (p Patch) apply(e Entry) Entry {
	out := e.Clone()
	if p.What != nil {
		out.What = *p.What
	}
	if p.Why != nil {
		out.Why = *p.Why
	}
	if p.Time != nil {
		out.Time = *p.Time
	}
	if p.Outcome != nil {
		out.Outcome = *p.Outcome
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.EnergyCost != nil {
		out.EnergyCost = *p.EnergyCost
	}
	if p.Blockers != nil {
		out.Blockers = slices.Clone(*p.Blockers)
	}
	if p.People != nil {
		out.People = slices.Clone(*p.People)
	}
	if p.Decisions != nil {
		out.Decisions = slices.Clone(*p.Decisions)
	}
	if p.Insights != nil {
		out.Insights = slices.Clone(*p.Insights)
	}
	if p.Context != nil {
		ctx := *p.Context
		ctx.Tools = slices.Clone(p.Context.Tools)
		out.Context = &ctx
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(*p.Tags)
	}
	if p.Source != nil {
		out.Source = *p.Source
	}
	return out
}

// Query filters entries. Date, category, outcome, people and tag filters
// compose with AND; Offset is applied before Limit. Zero values disable a
// filter.
type Query struct {
	Start      *time.Time `json:"startDate,omitempty"` // inclusive
	End        *time.Time `json:"endDate,omitempty"`   // inclusive
	Categories []Category `json:"categories,omitempty"`
	Outcomes   []Outcome  `json:"outcomes,omitempty"`
	People     []string   `json:"people,omitempty"` // any-of
	Tags       []string   `json:"tags,omitempty"`   // any-of
	Offset     int        `json:"offset,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

func (q Query) match(e Entry) bool {
	if q.Start != nil && e.Timestamp.Before(*q.Start) {
		return false
	}
	if q.End != nil && e.Timestamp.After(*q.End) {
		return false
	}
	if len(q.Categories) > 0 && !slices.Contains(q.Categories, e.Category) {
		return false
	}
	if len(q.Outcomes) > 0 && !slices.Contains(q.Outcomes, e.Outcome) {
		return false
	}
	if len(q.People) > 0 && !anyOf(e.People, q.People) {
		return false
	}
	if len(q.Tags) > 0 && !anyOf(e.Tags, q.Tags) {
		return false
	}
	return true
}

func anyOf(have, want []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}

// Filter applies q to entries, preserving their order.
func Filter(entries []Entry, q Query) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if q.match(e) {
			out = append(out, e)
		}
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []Entry{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}
