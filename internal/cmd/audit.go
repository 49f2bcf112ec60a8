package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report broken links and invalid anchors",
	RunE:  runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	diags, err := eng.WorkspaceAudit(cmd.Context())
	if err != nil {
		return err
	}
	if len(diags) == 0 {
		fmt.Println("no problems found")
		return nil
	}
	for _, d := range diags {
		fmt.Printf("%s: %s: %s\n", d.Path, d.Severity, d.Message)
	}
	return fmt.Errorf("%d problems", len(diags))
}
