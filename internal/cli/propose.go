package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "propose [query]",
		Short: "Propose a generated function",
		Long:  "Resolve guideline content for the query and draft a calculator function. The draft is recorded as a pending proposal and never registered without approval.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runPropose,
	}

	RootCmd.AddCommand(cmd)
}

func runPropose(cmd *cobra.Command, args []string) {
	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.ProposeFunction(cmd.Context(), api.ProposeFunctionRequest{
		ContentQuery: strings.Join(args, " "),
	})
	if err != nil {
		exitErr("propose", err)
	}
	printJSON(out)
}
