package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// ImportResult reports what an Import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Details  []string `json:"details,omitempty"`
}

// Export returns every entry as an indented JSON array, newest first.
func (l *Ledger) Export() ([]byte, error) {
	return json.MarshalIndent(l.Snapshot(), "", "  ")
}

// Import merges entries from a JSON array or from JSON Lines. Records with
// an id already in the ledger are skipped, as are malformed lines and
// invalid entries; each is reported in Details. Missing ids and timestamps
// are assigned, and a missing source becomes "imported".
func (l *Ledger) Import(data []byte) (ImportResult, error) {
	records, res, err := parseRecords(data)
	if err != nil {
		return res, &MutationError{Op: "import", Kind: ErrValidation, Message: "unreadable import document", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	parsed := res
	err = l.mutate("import", func(cur []Entry) ([]Entry, error) {
		res = parsed
		res.Details = slices.Clone(parsed.Details)

		seen := make(map[string]bool, len(cur)+len(records))
		for _, e := range cur {
			seen[e.ID] = true
		}

		next := slices.Clone(cur)
		for _, r := range records {
			e := r.entry
			if e.ID != "" && seen[e.ID] {
				res.Skipped++
				res.Details = append(res.Details, fmt.Sprintf("record %d: duplicate id %s", r.n, e.ID))
				continue
			}
			if e.Source == "" {
				e.Source = SourceImported
			}
			if problems := Validate(e); len(problems) > 0 {
				res.Skipped++
				res.Details = append(res.Details, fmt.Sprintf("record %d: %s", r.n, strings.Join(problems, "; ")))
				continue
			}
			if e.ID == "" {
				e.ID = l.newID()
			}
			if e.Timestamp.IsZero() {
				e.Timestamp = l.now()
			}
			seen[e.ID] = true
			next = append(next, e)
			res.Imported++
		}

		if res.Imported == 0 {
			return nil, nil
		}
		sortNewestFirst(next)
		return next, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	if res.Imported > 0 {
		l.log.Info("imported work entries", zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
	}
	return res, nil
}

type record struct {
	n     int // 1-based position in the document
	entry Entry
}

func parseRecords(data []byte) ([]record, ImportResult, error) {
	var res ImportResult
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, res, nil
	}

	if trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, res, err
		}
		var out []record
		for i, msg := range raw {
			var e Entry
			if err := json.Unmarshal(msg, &e); err != nil {
				res.Skipped++
				res.Details = append(res.Details, fmt.Sprintf("record %d: %v", i+1, err))
				continue
			}
			out = append(out, record{n: i + 1, entry: e})
		}
		return out, res, nil
	}

	var out []record
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer
	n := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		n++
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			res.Skipped++
			res.Details = append(res.Details, fmt.Sprintf("record %d: malformed line", n))
			continue
		}
		out = append(out, record{n: n, entry: e})
	}
	if err := scanner.Err(); err != nil {
		return nil, res, err
	}
	return out, res, nil
}
