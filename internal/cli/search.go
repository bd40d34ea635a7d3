package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search chapters and memories",
		Long:  "Search guideline chapters and stored memories. Results are ranked with citations; an empty result includes widened matches and the available chapter titles.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("max-results", "n", 0, "Maximum results (default 5)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("max-results")

	core, cfg, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	if limit <= 0 {
		limit = cfg.SearchLimit
	}
	resp, err := core.Search(cmd.Context(), api.SearchRequest{
		Query:      strings.Join(args, " "),
		MaxResults: limit,
	})
	if err != nil {
		exitErr("search", err)
	}
	printJSON(resp)
}
