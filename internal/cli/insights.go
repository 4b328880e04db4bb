package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/engine"
)

// viewCmd builds a command that opens the local stack and renders one
// derived view.
func viewCmd(use, short string, args cobra.PositionalArgs, run func(*cobra.Command, *engine.Engine, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()
			return run(cmd, st.engine, a)
		},
	}
}

var habitsCmd = viewCmd("habits", "Show inferred habits", cobra.NoArgs, func(cmd *cobra.Command, eng *engine.Engine, _ []string) error {
	habits := eng.Habits()
	if ok, err := emit(cmd, habits); ok {
		return err
	}
	if len(habits) == 0 {
		printf(cmd, "No habits yet. Patterns appear after three similar entries.\n")
		return nil
	}
	heading(cmd, "Habits")
	for _, h := range habits {
		printf(cmd, "- %s %s\n", h.Name, dimStyle.Render(strings.Join([]string{
			plural(h.Frequency, "time"),
			"consistency " + percent(h.Consistency),
			"impact " + signed(h.Impact),
		}, ", ")))
		if len(h.Pattern.Triggers) > 0 {
			printf(cmd, "    triggers: %s\n", strings.Join(h.Pattern.Triggers, ", "))
		}
	}
	return nil
})

var goalsCmd = viewCmd("goals", "Show goals inferred from entry text", cobra.NoArgs, func(cmd *cobra.Command, eng *engine.Engine, _ []string) error {
	goals := eng.Goals()
	if ok, err := emit(cmd, goals); ok {
		return err
	}
	if len(goals) == 0 {
		printf(cmd, "No goals found. Phrases like \"build ...\" or \"learn ...\" become goals.\n")
		return nil
	}
	heading(cmd, "Goals")
	for _, g := range goals {
		printf(cmd, "- %s %s %s\n", score(g.Progress), g.Title,
			dimStyle.Render("("+plural(len(g.RelatedWorkLogs), "entry")+", "+plural(len(g.Milestones), "milestone")+")"))
	}
	return nil
})

var healthCmd = viewCmd("health", "Show the weekly wellness score", cobra.NoArgs, func(cmd *cobra.Command, eng *engine.Engine, _ []string) error {
	hs := eng.Health()
	if ok, err := emit(cmd, hs); ok {
		return err
	}
	heading(cmd, "Health")
	printf(cmd, "  %-13s %s\n", "overall", score(hs.Overall))
	d := hs.Dimensions
	for _, dim := range []struct {
		name  string
		value int
	}{
		{"productivity", d.Productivity},
		{"energy", d.Energy},
		{"consistency", d.Consistency},
		{"growth", d.Growth},
		{"balance", d.Balance},
	} {
		printf(cmd, "  %-13s %s\n", dim.name, score(dim.value))
	}
	for _, f := range hs.Factors {
		style := goodStyle
		if f.Impact < 0 {
			style = badStyle
		}
		printf(cmd, "  %s %s\n", style.Render(signed(float64(f.Impact))), f.Description)
	}
	return nil
})

var peopleCmd = viewCmd("people [name]", "List people, or show one person in detail", cobra.MaximumNArgs(1), func(cmd *cobra.Command, eng *engine.Engine, args []string) error {
	if len(args) == 1 {
		d, ok := eng.Person(args[0])
		if !ok {
			printf(cmd, "No one called %q.\n", args[0])
			return nil
		}
		if ok, err := emit(cmd, d); ok {
			return err
		}
		heading(cmd, d.Person.Name)
		printf(cmd, "  %s, %s\n", d.Person.Type, d.Person.Context)
		printf(cmd, "  strength %s, usually in the %s, %s\n", score(d.RelationshipStrength),
			d.CommunicationPatterns.PreferredTimeOfDay, plural(len(d.Meetings), "meeting"))
		for _, in := range d.InteractionHistory {
			printf(cmd, "  %s %s %s\n", dimStyle.Render(in.Date.Local().Format("2006-01-02")), in.Description, dimStyle.Render(string(in.Outcome)))
		}
		return nil
	}

	people := eng.People()
	if ok, err := emit(cmd, people); ok {
		return err
	}
	if len(people) == 0 {
		printf(cmd, "No people yet. Add --people when capturing.\n")
		return nil
	}
	heading(cmd, "People")
	for _, p := range people {
		printf(cmd, "- %s %s %s\n", p.Name, labelStyle.Render(string(p.Type)),
			dimStyle.Render(plural(p.InteractionCount, "interaction")+", last "+p.LastInteraction.Local().Format("2006-01-02")))
	}
	return nil
})

var meetingsCmd = viewCmd("meetings", "Show meetings and open follow-ups", cobra.NoArgs, func(cmd *cobra.Command, eng *engine.Engine, _ []string) error {
	meetings := eng.Meetings()
	ri := eng.Relationships()
	if ok, err := emit(cmd, map[string]any{"meetings": meetings, "insights": ri}); ok {
		return err
	}
	if len(meetings) == 0 {
		printf(cmd, "No meetings found.\n")
		return nil
	}
	heading(cmd, "Meetings")
	for _, m := range meetings {
		printf(cmd, "- %s %s %s\n", dimStyle.Render(m.Timestamp.Local().Format("2006-01-02")), m.Title, labelStyle.Render(string(m.Type)))
	}
	if len(ri.UpcomingFollowUps) > 0 {
		printf(cmd, "\n")
		heading(cmd, "Follow-ups")
		for _, a := range ri.UpcomingFollowUps {
			due := "no date"
			if a.DueDate != nil {
				due = "due " + a.DueDate.Local().Format("2006-01-02")
			}
			printf(cmd, "- %s %s\n", a.Description, dimStyle.Render(due))
		}
	}
	return nil
})

var searchCmd = viewCmd("search <query>", "Search entries, memories and people", cobra.MinimumNArgs(1), func(cmd *cobra.Command, eng *engine.Engine, args []string) error {
	results := eng.Search(strings.Join(args, " "))
	if ok, err := emit(cmd, results); ok {
		return err
	}
	if len(results) == 0 {
		printf(cmd, "No results found.\n")
		return nil
	}
	for i, r := range results {
		printf(cmd, "%d. [%d] %s %s\n", i+1, r.RelevanceScore, labelStyle.Render(string(r.Type)), r.Title)
		for _, h := range r.Highlights {
			printf(cmd, "   %s\n", dimStyle.Render(h))
		}
	}
	return nil
})

var timelineCmd = viewCmd("timeline", "Show entries as a timeline with their memories", cobra.NoArgs, func(cmd *cobra.Command, eng *engine.Engine, _ []string) error {
	tl := eng.Recall.Timeline(eng.Ledger.Snapshot())
	if ok, err := emit(cmd, tl); ok {
		return err
	}
	heading(cmd, "Timeline")
	printf(cmd, "%s over %s, %s\n\n", plural(tl.TotalEvents, "event"), tl.TimeSpan, plural(len(tl.KeyMoments), "key moment"))
	for _, ev := range tl.Events {
		marker := " "
		if ev.Significance >= 8 {
			marker = goodStyle.Render("*")
		}
		printf(cmd, "%s %s %s\n", marker, dimStyle.Render(ev.WorkLog.Timestamp.Local().Format("2006-01-02 15:04")), ev.WorkLog.What)
		for _, a := range ev.Anchors {
			printf(cmd, "    %s %s\n", labelStyle.Render(string(a.Type)), a.Content)
		}
	}
	return nil
})
