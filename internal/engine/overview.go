package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/forgeone/internal/ledger"
)

// RelationshipHealth is the overview's compact view of the people graph.
type RelationshipHealth struct {
	StrongConnections    int     `json:"strongConnections"`
	NewConnections       int     `json:"newConnections"`
	InteractionFrequency float64 `json:"interactionFrequency"`
	RelationshipScore    int     `json:"relationshipScore"`
}

// Overview bundles the dashboard views computed from one snapshot.
type Overview struct {
	TotalWorkLogs      int                `json:"totalWorkLogs"`
	ActiveGoals        int                `json:"activeGoals"`
	PeopleCount        int                `json:"peopleCount"`
	HealthScore        HealthScore        `json:"healthScore"`
	RecentActivity     []ledger.Entry     `json:"recentActivity"`
	UpcomingDeadlines  []Goal             `json:"upcomingDeadlines"`
	RelationshipHealth RelationshipHealth `json:"relationshipHealth"`
}

// Overview computes health, goals and people concurrently over a single
// snapshot of the ledger.
func (e *Engine) Overview(ctx context.Context) (Overview, error) {
	entries := e.Ledger.Snapshot()
	now := e.now()

	var (
		health HealthScore
		goals  []Goal
		people []Person
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		health = ScoreHealth(entries, now, e.cfg.HealthWindowDays)
		return ctx.Err()
	})
	g.Go(func() error {
		goals = InferGoals(entries)
		return ctx.Err()
	})
	g.Go(func() error {
		people = ExtractPeople(entries)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	ov := Overview{
		TotalWorkLogs:      len(entries),
		PeopleCount:        len(people),
		HealthScore:        health,
		RecentActivity:     entries[:min(e.cfg.RecentActivity, len(entries))],
		UpcomingDeadlines:  upcoming(goals, e.cfg.OverviewGoals),
		RelationshipHealth: relationshipHealth(people, now),
	}
	for _, goal := range goals {
		if goal.Status == GoalActive {
			ov.ActiveGoals++
		}
	}
	e.log.Debug("computed overview", zap.Int("entries", len(entries)), zap.Int("goals", len(goals)))
	return ov, nil
}

// upcoming returns up to n unfinished goals, most progressed first. goals
// is already ordered by progress.
func upcoming(goals []Goal, n int) []Goal {
	out := []Goal{}
	for _, g := range goals {
		if len(out) == n {
			break
		}
		if g.Progress < maxProgress {
			out = append(out, g)
		}
	}
	return out
}

func relationshipHealth(people []Person, now time.Time) RelationshipHealth {
	var rh RelationshipHealth
	total := 0
	for _, p := range people {
		if p.InteractionCount >= strongInteractions {
			rh.StrongConnections++
		}
		if now.Sub(p.LastInteraction) <= recentWindow {
			rh.NewConnections++
		}
		total += p.InteractionCount
	}
	if len(people) > 0 {
		rh.InteractionFrequency = float64(total) / float64(len(people))
	}
	rh.RelationshipScore = rh.StrongConnections*20 + rh.NewConnections*15
	return rh
}
