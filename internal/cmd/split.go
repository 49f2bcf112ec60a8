package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dendrite-md/dendrite/internal/note"
)

var splitCmd = &cobra.Command{
	Use:   "split <path> <start> <end> <new-key>",
	Short: "Extract a byte range of a note into a new note",
	Args:  cobra.ExactArgs(4),
	RunE:  runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().Bool("apply", false, "apply the plan instead of printing it")
}

func runSplit(cmd *cobra.Command, args []string) error {
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	end, err := strconv.Atoi(args[2])
	if err != nil {
		return err
	}

	eng, fs, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	plan, err := eng.SplitNote(args[0], note.Span{Start: start, End: end}, note.Key(args[3]))
	if err != nil {
		return err
	}
	return finishPlan(cmd, plan, fs)
}
