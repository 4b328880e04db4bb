package server

import (
	"cmp"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/recall"
)

// DigestAnchors is how many memory anchors a digest lists by default.
const DigestAnchors = 15

const (
	maxDigestGoals   = 5
	maxDigestEntries = 5
)

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	anchors := DigestAnchors
	if v := r.URL.Query().Get("anchors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeFail(w, http.StatusBadRequest, "invalid query", "anchors must be a non-negative integer")
			return
		}
		anchors = n
	}
	writeOK(w, http.StatusOK, map[string]string{"digest": Digest(s.engine, anchors)})
}

// Digest renders a markdown summary: health, the strongest maxAnchors
// memory anchors, active goals and the latest entries.
func Digest(eng *engine.Engine, maxAnchors int) string {
	var b strings.Builder
	b.WriteString("## ForgeOne Digest\n")

	hs := eng.Health()
	d := hs.Dimensions
	fmt.Fprintf(&b, "\n### Health\n%d/100 (productivity %d, energy %d, consistency %d, growth %d, balance %d)\n",
		hs.Overall, d.Productivity, d.Energy, d.Consistency, d.Growth, d.Balance)

	if eng.Recall != nil {
		ranked := rankAnchors(eng.Recall.Anchors())
		if len(ranked) > maxAnchors {
			ranked = ranked[:maxAnchors]
		}
		if len(ranked) > 0 {
			b.WriteString("\n### Key Memories\n")
			for _, a := range ranked {
				fmt.Fprintf(&b, "- [%s] %s\n", a.Type, a.Content)
			}
		}
	}

	var active []engine.Goal
	for _, g := range eng.Goals() {
		if g.Status == engine.GoalActive && len(active) < maxDigestGoals {
			active = append(active, g)
		}
	}
	if len(active) > 0 {
		b.WriteString("\n### Active Goals\n")
		for _, g := range active {
			fmt.Fprintf(&b, "- %s (%d%%)\n", g.Title, g.Progress)
		}
	}

	recent := eng.Ledger.Query(ledger.Query{Limit: maxDigestEntries})
	if len(recent) > 0 {
		b.WriteString("\n### Recent Entries\n")
		for _, e := range recent {
			fmt.Fprintf(&b, "- [%s] %s: %s (%s, %dm)\n",
				e.Timestamp.Local().Format("2006-01-02 15:04"), e.Category, e.What, e.Outcome, e.Time)
		}
	}
	return b.String()
}

// rankAnchors orders anchors by anchorScore, newest first among equals.
func rankAnchors(anchors []recall.Anchor) []recall.Anchor {
	out := slices.Clone(anchors)
	slices.SortStableFunc(out, func(a, b recall.Anchor) int {
		if c := cmp.Compare(anchorScore(b), anchorScore(a)); c != 0 {
			return c
		}
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// anchorScore weights importance by how connected an anchor is.
// log2 gives diminishing returns: 1→1.0, 2→2.0, 4→3.0 boost.
func anchorScore(a recall.Anchor) float64 {
	boost := 1.0
	if n := len(a.Connections); n > 0 {
		boost += math.Log2(float64(n))
	}
	return float64(a.Importance) * boost
}
