package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendrite-md/dendrite/internal/note"
)

var backlinksCmd = &cobra.Command{
	Use:   "backlinks <key>",
	Short: "List the notes linking to a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacklinks,
}

func init() {
	rootCmd.AddCommand(backlinksCmd)
}

func runBacklinks(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	refs, err := eng.GetBacklinks(note.Key(args[0]))
	if err != nil {
		return err
	}
	for _, r := range refs {
		fmt.Printf("%s (%s) at byte %d\n", r.Key, r.Path, r.Span.Start)
	}
	return nil
}
