package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/ledger"
)

var (
	capture        ledger.Draft
	captureOutcome string
	captureCat     string
	captureEnv     string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record a work entry",
	Long: "Record what you did and why. Sends the entry to a running server when one\n" +
		"is reachable, otherwise writes to the local database.",
	Example: `  forgeone capture --what "Fix login bug" --why "customers locked out" \
    --time 45 --outcome completed --category client --energy 6 --people Alex`,
	RunE: runCapture,
}

func init() {
	f := captureCmd.Flags()
	f.StringVar(&capture.What, "what", "", "what you worked on")
	f.StringVar(&capture.Why, "why", "", "why it mattered")
	f.IntVarP(&capture.Time, "time", "t", 0, "minutes spent")
	f.StringVarP(&captureOutcome, "outcome", "o", string(ledger.OutcomeCompleted), "completed, partial, stuck, advanced, paused or blocked")
	f.StringVarP(&captureCat, "category", "c", string(ledger.CategoryProject), "project, study, personal, client, meeting, health, relationship, finance or other")
	f.IntVarP(&capture.EnergyCost, "energy", "e", 5, "energy cost from 1 to 10")
	f.StringSliceVar(&capture.People, "people", nil, "people involved")
	f.StringSliceVar(&capture.Tags, "tags", nil, "tags")
	f.StringArrayVar(&capture.Decisions, "decision", nil, "a decision made (repeatable)")
	f.StringArrayVar(&capture.Insights, "insight", nil, "an insight gained (repeatable)")
	f.StringArrayVar(&capture.Blockers, "blocker", nil, "something in the way (repeatable)")
	f.StringVar(&captureEnv, "env", "", "environment, e.g. home or office")
	captureCmd.MarkFlagRequired("what")
	captureCmd.MarkFlagRequired("why")
}

func runCapture(cmd *cobra.Command, args []string) error {
	d := capture
	d.Outcome = ledger.Outcome(captureOutcome)
	d.Category = ledger.Category(captureCat)
	d.Source = ledger.SourceQuickCapture
	if captureEnv != "" {
		d.Context = &ledger.Context{Environment: captureEnv}
	}

	e, err := captureEntry(d)
	if err != nil {
		return err
	}
	if ok, err := emit(cmd, e); ok {
		return err
	}
	printf(cmd, "%s %s %s\n", goodStyle.Render("recorded"), e.What, dimStyle.Render(e.ID))
	return nil
}

func captureEntry(d ledger.Draft) (ledger.Entry, error) {
	if c, ok := reachableServer(); ok {
		return c.CreateEntry(d)
	}

	st, err := openStack()
	if err != nil {
		return ledger.Entry{}, err
	}
	defer st.Close()

	e, err := st.ledger.Create(d)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("capture: %w", err)
	}
	return e, nil
}
