package cli

import (
	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Ingest guideline documents",
		Long:  "Ingest one or more guideline documents. Re-ingesting identical content is a no-op; a batch reports per-document outcomes.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runIngest,
	}

	cmd.Flags().IntP("parallel", "p", 0, "Worker count for batch ingestion (0 uses the configured default)")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	parallel, _ := cmd.Flags().GetInt("parallel")

	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	reports, err := core.ProcessDocuments(cmd.Context(), api.ProcessDocumentsRequest{
		Paths:    args,
		Parallel: parallel,
	})
	if err != nil {
		exitErr("ingest", err)
	}
	printJSON(reports)
}
