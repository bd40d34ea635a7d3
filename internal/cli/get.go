package cli

import (
	"github.com/spf13/cobra"

	"cardiokb/internal/api"
	"cardiokb/internal/apperr"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a full chapter",
		Long:  "Fetch the full text of a chapter by guideline and chapter title. Approximate titles resolve fuzzily; unresolvable ones list the guideline's real titles.",
		Run:   runGet,
	}

	cmd.Flags().StringP("guideline", "g", "", "Guideline slug or content hash (required)")
	cmd.Flags().StringP("title", "t", "", "Chapter title (required)")

	cmd.MarkFlagRequired("guideline")
	cmd.MarkFlagRequired("title")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	guideline, _ := cmd.Flags().GetString("guideline")
	title, _ := cmd.Flags().GetString("title")

	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	res, err := core.GetChapter(cmd.Context(), api.GetChapterRequest{
		Guideline: guideline,
		Title:     title,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.ErrNotFound && len(res.Suggestions) > 0 {
			printJSON(map[string]any{
				"error":       apperr.Code(err),
				"detail":      err.Error(),
				"suggestions": res.Suggestions,
			})
		}
		exitErr("get", err)
	}
	printJSON(res)
}
