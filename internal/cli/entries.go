package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/ledger"
)

var (
	listLimit    int
	listCategory []string
	listOutcome  []string
	listPerson   []string
	listTag      []string
	listSince    time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List work entries, newest first",
	RunE:  runList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the work log",
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export every entry as JSON (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from a JSON array or JSONL file (- for stdin)",
	Long: "Import entries from a JSON array or JSONL file (- for stdin). Goes through a\n" +
		"running server when one is reachable, otherwise writes to the local database.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	f := listCmd.Flags()
	f.IntVarP(&listLimit, "limit", "n", 20, "maximum entries (0 for all)")
	f.StringSliceVarP(&listCategory, "category", "c", nil, "only these categories")
	f.StringSliceVarP(&listOutcome, "outcome", "o", nil, "only these outcomes")
	f.StringSliceVar(&listPerson, "person", nil, "only entries with any of these people")
	f.StringSliceVar(&listTag, "tag", nil, "only entries with any of these tags")
	f.DurationVar(&listSince, "since", 0, "only entries newer than this, e.g. 168h")
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	q := ledger.Query{People: listPerson, Tags: listTag, Limit: listLimit}
	for _, c := range listCategory {
		q.Categories = append(q.Categories, ledger.Category(c))
	}
	for _, o := range listOutcome {
		q.Outcomes = append(q.Outcomes, ledger.Outcome(o))
	}
	if listSince > 0 {
		start := time.Now().Add(-listSince)
		q.Start = &start
	}

	entries := st.ledger.Query(q)
	if ok, err := emit(cmd, entries); ok {
		return err
	}
	if len(entries) == 0 {
		printf(cmd, "No entries found.\n")
		return nil
	}
	for _, e := range entries {
		printEntry(cmd, e)
	}
	return nil
}

func printEntry(cmd *cobra.Command, e ledger.Entry) {
	printf(cmd, "%s  %s %s %s\n",
		dimStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04")),
		labelStyle.Render("["+string(e.Category)+"]"),
		e.What,
		dimStyle.Render(fmt.Sprintf("(%s, %dm, energy %d)", e.Outcome, e.Time, e.EnergyCost)),
	)
	printf(cmd, "    %s\n", e.Why)
	if len(e.People) > 0 {
		printf(cmd, "    with %s\n", strings.Join(e.People, ", "))
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	s := st.ledger.Stats(5)
	if ok, err := emit(cmd, s); ok {
		return err
	}

	heading(cmd, "Work Log")
	printf(cmd, "%d entries, %d minutes total, %.1f minutes average\n\n", s.TotalLogs, s.TotalTime, s.AverageTime)

	heading(cmd, "Categories")
	for _, c := range ledger.Categories {
		if n := s.CategoryStats[c]; n > 0 {
			printf(cmd, "  %-13s %d\n", c, n)
		}
	}
	printf(cmd, "\n")
	heading(cmd, "Outcomes")
	for _, o := range ledger.Outcomes {
		if n := s.OutcomeStats[o]; n > 0 {
			printf(cmd, "  %-13s %d\n", o, n)
		}
	}
	if len(s.RecentLogs) > 0 {
		printf(cmd, "\n")
		heading(cmd, "Recent")
		for _, e := range s.RecentLogs {
			printEntry(cmd, e)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := openStack()
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := st.ledger.Export()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err = out(cmd).Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	printf(cmd, "exported %d entries to %s\n", st.ledger.Len(), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}

	res, err := importEntries(data)
	if err != nil {
		return err
	}
	if ok, err := emit(cmd, res); ok {
		return err
	}
	printf(cmd, "imported %d, skipped %d\n", res.Imported, res.Skipped)
	for _, d := range res.Details {
		printf(cmd, "  %s\n", dimStyle.Render(d))
	}
	return nil
}

func importEntries(data []byte) (ledger.ImportResult, error) {
	if c, ok := reachableServer(); ok {
		return c.Import(data)
	}

	st, err := openStack()
	if err != nil {
		return ledger.ImportResult{}, err
	}
	defer st.Close()
	return st.ledger.Import(data)
}
