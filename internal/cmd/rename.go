package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/refactor"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old-key> <new-key>",
	Short: "Rename a note, rewriting every link to it",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
	renameCmd.Flags().Bool("apply", false, "apply the plan instead of printing it")
}

func runRename(cmd *cobra.Command, args []string) error {
	eng, fs, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	plan, err := eng.RenameNote(note.Key(args[0]), note.Key(args[1]))
	if err != nil {
		return err
	}
	return finishPlan(cmd, plan, fs)
}

// finishPlan prints the plan and, with --apply, executes it against the
// vault through the same precondition checks an editor client would
// run.
func finishPlan(cmd *cobra.Command, plan *refactor.Plan, fs vfs.WritableFS) error {
	printPlan(plan)
	if apply, _ := cmd.Flags().GetBool("apply"); !apply {
		return nil
	}
	if err := refactor.Apply(plan, fs); err != nil {
		return err
	}
	fmt.Println("applied")
	return nil
}

func printPlan(plan *refactor.Plan) {
	for _, g := range plan.Groups {
		fmt.Printf("edit %s (%d changes)\n", g.Path, len(g.Edits))
	}
	for _, op := range plan.Resources {
		switch op.Kind {
		case refactor.ResCreate:
			fmt.Printf("create %s (%d bytes)\n", op.Path, len(op.Content))
		case refactor.ResRename:
			fmt.Printf("rename %s -> %s\n", op.Path, op.NewPath)
		case refactor.ResDelete:
			fmt.Printf("delete %s\n", op.Path)
		}
	}
	for _, d := range plan.Diagnostics {
		fmt.Printf("%s: %s: %s\n", d.Path, d.Severity, d.Message)
	}
}
