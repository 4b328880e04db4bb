package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("219"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// out is where command results go. Logs go to stderr.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

func printf(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(out(cmd), format, a...)
}

func heading(cmd *cobra.Command, title string) {
	fmt.Fprintln(out(cmd), headingStyle.Render("## "+title))
}

// emit prints v as indented JSON when --json is set and reports whether it
// did.
func emit(cmd *cobra.Command, v any) (bool, error) {
	if !jsonOut {
		return false, nil
	}
	enc := json.NewEncoder(out(cmd))
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

// score colours a 0-100 score.
func score(n int) string {
	s := fmt.Sprintf("%3d", n)
	switch {
	case n >= 70:
		return goodStyle.Render(s)
	case n < 40:
		return badStyle.Render(s)
	}
	return s
}
