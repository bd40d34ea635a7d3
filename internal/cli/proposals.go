package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List function proposals",
		Long:  "List function proposals, newest first, with their status.",
		Run:   runProposals,
	}

	RootCmd.AddCommand(cmd)
}

func runProposals(cmd *cobra.Command, args []string) {
	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.ListProposals(cmd.Context())
	if err != nil {
		exitErr("proposals", err)
	}
	printJSON(out)
}
