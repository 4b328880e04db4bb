package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/recall"
	"github.com/lazypower/forgeone/internal/server"
	"github.com/lazypower/forgeone/internal/store"
)

// run executes the root command. Flag values persist between runs, so
// every call passes the flags it relies on.
func run(t *testing.T, args ...string) string {
	t.Helper()
	jsonOut = false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FORGEONE_URL", "http://127.0.0.1:1")
	t.Setenv("FORGEONE_LOG_LEVEL", "error")
	conf := filepath.Join(dir, "missing.yaml")
	db := filepath.Join(dir, "a.db")

	got := run(t, "capture", "--config", conf, "--db", db,
		"--what", "Build onboarding flow", "--why", "improve activation",
		"--time", "90", "--energy", "6", "--people", "Kim", "--decision", "Use magic links")
	if !strings.Contains(got, "recorded") {
		t.Errorf("capture output = %q", got)
	}

	got = run(t, "list", "--config", conf, "--db", db, "--json")
	var entries []ledger.Entry
	if err := json.Unmarshal([]byte(got), &entries); err != nil {
		t.Fatalf("decode list: %v\n%s", err, got)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Source != ledger.SourceQuickCapture || entries[0].Outcome != ledger.OutcomeCompleted {
		t.Errorf("entry = %+v", entries[0])
	}

	views := []struct {
		args []string
		want string
	}{
		{[]string{"list"}, "Build onboarding flow"},
		{[]string{"stats"}, "1 entries, 90 minutes total"},
		{[]string{"goals"}, "improve activation"},
		{[]string{"habits"}, "No habits yet"},
		{[]string{"health"}, "overall"},
		{[]string{"people"}, "Kim"},
		{[]string{"people", "Kim"}, "colleague"},
		{[]string{"meetings"}, "No meetings found"},
		{[]string{"search", "onboarding"}, "**onboarding**"},
		{[]string{"timeline"}, "Use magic links"},
		{[]string{"digest", "--anchors", "2"}, "### Key Memories"},
		{[]string{"reset-anchors"}, "reset 3 memory anchors"},
		{[]string{"version"}, "forgeone dev"},
	}
	for _, v := range views {
		got := run(t, append(v.args, "--config", conf, "--db", db)...)
		if !strings.Contains(got, v.want) {
			t.Errorf("%v: output missing %q:\n%s", v.args, v.want, got)
		}
	}

	file := filepath.Join(dir, "export.json")
	run(t, "export", file, "--config", conf, "--db", db)
	got = run(t, "import", file, "--config", conf, "--db", filepath.Join(dir, "b.db"))
	if !strings.Contains(got, "imported 1, skipped 0") {
		t.Errorf("import output = %q", got)
	}
}

func TestWritesGoThroughRunningServer(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "shared.db")
	conf := filepath.Join(dir, "missing.yaml")

	db, err := store.Open(dbFile)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	l := ledger.New(db)
	rc := recall.New(db)
	defer rc.Attach(l)()
	ts := httptest.NewServer(server.New(db, engine.New(l, rc), "test", nil))
	defer ts.Close()

	t.Setenv("FORGEONE_URL", ts.URL)
	t.Setenv("FORGEONE_LOG_LEVEL", "error")

	file := filepath.Join(dir, "import.jsonl")
	doc := `{"id":"imp1","timestamp":"2026-03-01T09:00:00Z","what":"Migrate billing","why":"retire the old system","time":120,"outcome":"completed","category":"client","energyCost":7}` + "\n"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	got := run(t, "import", file, "--config", conf, "--db", dbFile)
	if !strings.Contains(got, "imported 1, skipped 0") {
		t.Errorf("import output = %q", got)
	}
	if _, ok := l.Get("imp1"); !ok {
		t.Fatal("server did not see the imported entry")
	}

	run(t, "capture", "--config", conf, "--db", dbFile,
		"--what", "Review invoices", "--why", "close the month", "--time", "20", "--energy", "3",
		"--people", "Ana", "--decision", "Pay on Friday")
	if l.Len() != 2 {
		t.Fatalf("server entries = %d, want 2", l.Len())
	}

	// What the server persisted is what a fresh process reads.
	stored := ledger.New(db).Snapshot()
	if len(stored) != 2 {
		t.Fatalf("stored entries = %d, want 2", len(stored))
	}
	if got := run(t, "reset-anchors", "--config", conf, "--db", dbFile); !strings.Contains(got, "reset") {
		t.Errorf("reset-anchors output = %q", got)
	}
	if len(rc.Anchors()) == 0 {
		t.Error("server has no anchors after reset")
	}
}

func TestPlural(t *testing.T) {
	tests := map[string]string{
		plural(1, "entry"):   "1 entry",
		plural(2, "entry"):   "2 entries",
		plural(0, "meeting"): "0 meetings",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("plural = %q, want %q", got, want)
		}
	}
}
