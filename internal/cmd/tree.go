package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dendrite-md/dendrite/internal/hierarchy"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the note hierarchy, ghosts included",
	RunE:  runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	tree := eng.GetHierarchy()
	tree.Walk(func(n *hierarchy.Node, depth int) {
		marker := ""
		if n.Ghost {
			marker = " (ghost)"
		}
		fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), n.Name, marker)
	})
	return nil
}
