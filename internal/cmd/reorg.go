package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reorgCmd = &cobra.Command{
	Use:   "reorg <old-prefix> <new-prefix>",
	Short: "Move a whole subtree of notes to a new prefix",
	Args:  cobra.ExactArgs(2),
	RunE:  runReorg,
}

func init() {
	rootCmd.AddCommand(reorgCmd)
	reorgCmd.Flags().Bool("apply", false, "apply the plan instead of printing it")
	reorgCmd.Flags().Bool("dry-run", false, "print the key mapping only")
}

func runReorg(cmd *cobra.Command, args []string) error {
	eng, fs, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		pairs, err := eng.ResolveHierarchyEdits(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		for _, p := range pairs {
			fmt.Printf("%s -> %s\n", p.Old, p.New)
		}
		return nil
	}

	plan, err := eng.ReorganizeHierarchy(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return finishPlan(cmd, plan, fs)
}
