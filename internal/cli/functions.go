package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List registered functions",
		Long:  "List approved function versions from the registry.",
		Run:   runFunctions,
	}

	RootCmd.AddCommand(cmd)
}

func runFunctions(cmd *cobra.Command, args []string) {
	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.ListFunctions(cmd.Context())
	if err != nil {
		exitErr("functions", err)
	}
	printJSON(out)
}
