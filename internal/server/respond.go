package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/ledger"
)

// envelope wraps every API response.
type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, envelope{Message: msg, Errors: details})
}

// writeErr maps ledger error kinds onto HTTP statuses.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
	}

	var me *ledger.MutationError
	if errors.As(err, &me) {
		if status == http.StatusInternalServerError {
			s.log.Error("mutation failed", zap.String("op", me.Op), zap.Error(err))
		}
		writeFail(w, status, me.Message, me.Details...)
		return
	}
	s.log.Error("request failed", zap.Error(err))
	writeFail(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
