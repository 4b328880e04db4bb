package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/recall"
)

func (s *Server) requireRecall(w http.ResponseWriter) bool {
	if s.engine.Recall == nil {
		writeFail(w, http.StatusServiceUnavailable, "memory extraction not configured")
		return false
	}
	return true
}

func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	if !s.requireRecall(w) {
		return
	}
	v := r.URL.Query()
	q := recall.AnchorQuery{
		Type:      recall.AnchorType(v.Get("type")),
		WorkLogID: v.Get("workLogId"),
	}
	if raw := v.Get("minImportance"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "invalid query", "minImportance must be an integer")
			return
		}
		q.MinImportance = n
	}
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"start", &q.Start}, {"end", &q.End}} {
		raw := v.Get(f.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "invalid query", f.name+": "+err.Error())
			return
		}
		*f.dst = &t
	}
	writeOK(w, http.StatusOK, s.engine.Recall.Query(q))
}

// handleResetAnchors discards every anchor and extracts them again from the
// current entries.
func (s *Server) handleResetAnchors(w http.ResponseWriter, r *http.Request) {
	if !s.requireRecall(w) {
		return
	}
	anchors, err := s.engine.Recall.Rebuild(s.ledger.Snapshot())
	if err != nil {
		s.log.Error("rebuild memory anchors failed", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "failed to rebuild memory anchors", err.Error())
		return
	}
	writeOK(w, http.StatusOK, map[string]int{"anchors": len(anchors)})
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	if !s.requireRecall(w) {
		return
	}
	writeOK(w, http.StatusOK, s.engine.Recall.SearchMemories(r.URL.Query().Get("q")))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if !s.requireRecall(w) {
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	writeOK(w, http.StatusOK, s.engine.Recall.Timeline(s.ledger.Query(q)))
}

func (s *Server) handleHabits(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, s.engine.Habits())
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, s.engine.Goals())
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, s.engine.Health())
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		writeOK(w, http.StatusOK, s.engine.SearchPeople(q))
		return
	}
	writeOK(w, http.StatusOK, s.engine.People())
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := s.engine.Person(name)
	if !ok {
		writeFail(w, http.StatusNotFound, "person not found", "name "+name)
		return
	}
	writeOK(w, http.StatusOK, d)
}

func (s *Server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, s.engine.Meetings())
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, s.engine.Relationships())
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.engine.Overview(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, ov)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeFail(w, http.StatusBadRequest, "q parameter required")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": s.engine.Search(q),
	})
}
