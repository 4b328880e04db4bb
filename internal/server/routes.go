package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/forgeone/internal/ledger"
)

// maxImportBytes caps an import request body.
var maxImportBytes int64 = 32 << 20

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	writeOK(w, http.StatusOK, s.ledger.Query(q))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var d ledger.Draft
	if err := decode(r, &d); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	e, err := s.ledger.Create(d)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, e)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.ledger.Get(id)
	if !ok {
		writeFail(w, http.StatusNotFound, "work entry not found", "id "+id)
		return
	}
	writeOK(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var p ledger.Patch
	if err := decode(r, &p); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	e, err := s.ledger.Update(chi.URLParam(r, "id"), p)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	recent := 10
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeFail(w, http.StatusBadRequest, "invalid query", "recent must be a non-negative integer")
			return
		}
		recent = n
	}
	writeOK(w, http.StatusOK, s.ledger.Stats(recent))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Export()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="forgeone-%s.json"`, time.Now().Format(time.DateOnly)))
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeFail(w, http.StatusRequestEntityTooLarge, "import too large",
				fmt.Sprintf("limit is %d bytes", tooBig.Limit))
			return
		}
		writeFail(w, http.StatusBadRequest, "read body failed", err.Error())
		return
	}
	res, err := s.ledger.Import(data)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

// parseQuery reads entry filters from the URL. List filters accept repeated
// parameters or comma-separated values.
func parseQuery(r *http.Request) (ledger.Query, error) {
	v := r.URL.Query()
	var q ledger.Query

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
			return q, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = &t
	}

	for _, c := range list(v["category"]) {
		q.Categories = append(q.Categories, ledger.Category(c))
	}
	for _, o := range list(v["outcome"]) {
		q.Outcomes = append(q.Outcomes, ledger.Outcome(o))
	}
	q.People = list(v["person"])
	q.Tags = list(v["tag"])

	for _, f := range []struct {
		name string
		dst  *int
	}{{"offset", &q.Offset}, {"limit", &q.Limit}} {
		raw := v.Get(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%s must be a non-negative integer", f.name)
		}
		*f.dst = n
	}
	return q, nil
}

func list(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
