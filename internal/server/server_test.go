package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/recall"
	"github.com/lazypower/forgeone/internal/store"
)

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	return testServerWithLogger(t, nil)
}

func testServerWithLogger(t *testing.T, log *zap.Logger) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tick := testNow.Add(-3 * time.Hour)
	l := ledger.New(db, ledger.WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))
	rc := recall.New(db)
	t.Cleanup(rc.Attach(l))
	eng := engine.New(l, rc, engine.WithClock(func() time.Time { return testNow }))
	return New(db, eng, "test-version", log)
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

func newRequest(method, path, body string) (*http.Request, *httptest.ResponseRecorder) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	return httptest.NewRequest(method, path, rd), httptest.NewRecorder()
}

func do(t *testing.T, srv *Server, method, path, body string) (int, response) {
	t.Helper()
	req, w := newRequest(method, path, body)
	srv.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode body: %v; body: %s", method, path, err, w.Body.String())
		}
	}
	return w.Code, resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	code, resp := do(t, srv, "GET", "/api/health", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if !resp.Success {
		t.Errorf("success = false, want true")
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["entries"] != float64(0) {
		t.Errorf("entries = %v, want 0", body["entries"])
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := testServer(t)

	code, _ := do(t, srv, "GET", "/api/nope", "")
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestFailedMutationIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	srv := testServerWithLogger(t, zap.New(core))
	srv.db.Close()

	code, resp := do(t, srv, "POST", "/api/entries", validEntry)
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", code, http.StatusInternalServerError)
	}
	if resp.Message != "failed to save work entries" {
		t.Errorf("message = %q", resp.Message)
	}

	failed := logs.FilterMessage("mutation failed").All()
	if len(failed) != 1 {
		t.Fatalf("mutation failed logs = %d, want 1 (all: %v)", len(failed), logs.All())
	}
	if op := failed[0].ContextMap()["op"]; op != "create" {
		t.Errorf("op = %v, want create", op)
	}
	if failed[0].LoggerName != "server" {
		t.Errorf("logger = %q, want server", failed[0].LoggerName)
	}
}
