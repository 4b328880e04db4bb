package cli

import (
	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/server"
)

var digestAnchors int

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print a markdown digest of health, key memories, goals and recent work",
	Args:  cobra.NoArgs,
	RunE:  runDigest,
}

var resetAnchorsCmd = &cobra.Command{
	Use:   "reset-anchors",
	Short: "Discard every memory anchor and extract them again from current entries",
	Long: "Discard every memory anchor, including those of deleted entries, and extract\n" +
		"anchors again from the entries that remain.",
	Args: cobra.NoArgs,
	RunE: runResetAnchors,
}

func init() {
	digestCmd.Flags().IntVar(&digestAnchors, "anchors", server.DigestAnchors, "maximum memories to list")
}

func runDigest(cmd *cobra.Command, args []string) error {
	var digest string
	if c, ok := reachableServer(); ok {
		d, err := c.Digest(digestAnchors)
		if err != nil {
			return err
		}
		digest = d
	} else {
		st, err := openStack()
		if err != nil {
			return err
		}
		defer st.Close()
		digest = server.Digest(st.engine, digestAnchors)
	}

	if ok, err := emit(cmd, map[string]string{"digest": digest}); ok {
		return err
	}
	printf(cmd, "%s", digest)
	return nil
}

func runResetAnchors(cmd *cobra.Command, args []string) error {
	var n int
	if c, ok := reachableServer(); ok {
		count, err := c.ResetAnchors()
		if err != nil {
			return err
		}
		n = count
	} else {
		st, err := openStack()
		if err != nil {
			return err
		}
		defer st.Close()
		anchors, err := st.recall.Rebuild(st.ledger.Snapshot())
		if err != nil {
			return err
		}
		n = len(anchors)
	}

	if ok, err := emit(cmd, map[string]int{"anchors": n}); ok {
		return err
	}
	printf(cmd, "%s %s\n", goodStyle.Render("reset"), plural(n, "memory anchor"))
	return nil
}
