// Package engine derives habits, goals, health scores, people, meetings and
// search results from ledger snapshots. Every view is recomputed from
// scratch on each call; nothing here is stored.
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/config"
	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/recall"
)

// Engine answers derived-view requests against a ledger and its anchors.
type Engine struct {
	Ledger *ledger.Ledger
	Recall *recall.Recall

	cfg config.InsightsConfig
	log *zap.Logger
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides "now" for time-windowed views.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = logging.OrNop(log).Named("engine") }
}

// WithInsights overrides window sizes and result limits.
func WithInsights(cfg config.InsightsConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New creates an Engine. rc may be nil, in which case search covers
// entries and people only.
func New(l *ledger.Ledger, rc *recall.Recall, opts ...Option) *Engine {
	e := &Engine{
		Ledger: l,
		Recall: rc,
		cfg:    config.Default().Insights,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) anchors() []recall.Anchor {
	if e.Recall == nil {
		return nil
	}
	return e.Recall.Anchors()
}

// Habits infers habits from the current entries.
func (e *Engine) Habits() []Habit {
	return InferHabits(e.Ledger.Snapshot())
}

// Goals infers goals from the current entries.
func (e *Engine) Goals() []Goal {
	return InferGoals(e.Ledger.Snapshot())
}

// Health scores the trailing window ending now.
func (e *Engine) Health() HealthScore {
	return ScoreHealth(e.Ledger.Snapshot(), e.now(), e.cfg.HealthWindowDays)
}

// People extracts every person mentioned in the current entries.
func (e *Engine) People() []Person {
	return ExtractPeople(e.Ledger.Snapshot())
}

// Meetings extracts meetings from the current entries.
func (e *Engine) Meetings() []Meeting {
	return ExtractMeetings(e.Ledger.Snapshot())
}

// Relationships summarises people and meetings.
func (e *Engine) Relationships() RelationshipInsights {
	entries := e.Ledger.Snapshot()
	return InsightsFor(ExtractPeople(entries), ExtractMeetings(entries), e.now())
}

// Person returns details for the person with the given name or id.
func (e *Engine) Person(nameOrID string) (PersonDetails, bool) {
	entries := e.Ledger.Snapshot()
	return DetailsFor(nameOrID, ExtractPeople(entries), entries, ExtractMeetings(entries), e.now())
}

// SearchPeople filters people by name, context, notes or tags.
func (e *Engine) SearchPeople(query string) []Person {
	return SearchPeople(query, e.People())
}

// Search ranks entries, anchors and people against query.
func (e *Engine) Search(query string) []SearchResult {
	entries := e.Ledger.Snapshot()
	return Search(query, entries, e.anchors(), ExtractPeople(entries), e.cfg.SearchLimit)
}

// idSpace scopes derived ids so equal keys in different views differ.
var idSpace = uuid.MustParse("6f1c2a4e-3b7d-4e59-9a0c-5d8e2f41b7a3")

// derivedID returns a stable id for a derived view keyed by key, so
// recomputing a view over the same entries yields the same ids.
func derivedID(kind, key string) string {
	return uuid.NewSHA1(idSpace, []byte(kind+"\x00"+key)).String()
}
