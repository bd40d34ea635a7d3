package cli

import (
	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report knowledge base counts",
		Run:   runStatus,
	}
	RootCmd.AddCommand(statusCmd)

	chaptersCmd := &cobra.Command{
		Use:   "chapters [guideline]",
		Short: "List a guideline's chapter outline",
		Args:  cobra.ExactArgs(1),
		Run:   runChapters,
	}
	RootCmd.AddCommand(chaptersCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.Status(cmd.Context())
	if err != nil {
		exitErr("status", err)
	}
	printJSON(out)
}

func runChapters(cmd *cobra.Command, args []string) {
	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.ListChapters(cmd.Context(), api.ListChaptersRequest{Guideline: args[0]})
	if err != nil {
		exitErr("chapters", err)
	}
	printJSON(out)
}
