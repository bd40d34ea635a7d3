package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the approval audit trail",
		Long:  "Show every approval and rejection decision in order, oldest first.",
		Run:   runAudit,
	}

	RootCmd.AddCommand(cmd)
}

func runAudit(cmd *cobra.Command, args []string) {
	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.AuditTrail(cmd.Context())
	if err != nil {
		exitErr("audit", err)
	}
	printJSON(out)
}
