package cli

import (
	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reject [proposal-id]",
		Short: "Reject a pending proposal",
		Long:  "Reject a pending proposal with a reason. Rejection is terminal; the proposal can never be approved afterwards.",
		Args:  cobra.ExactArgs(1),
		Run:   runReject,
	}

	cmd.Flags().StringP("reason", "r", "", "Why the proposal is rejected (required)")
	cmd.Flags().String("by", "", "Reviewer identity (default: current user)")

	cmd.MarkFlagRequired("reason")

	RootCmd.AddCommand(cmd)
}

func runReject(cmd *cobra.Command, args []string) {
	reason, _ := cmd.Flags().GetString("reason")
	by, _ := cmd.Flags().GetString("by")

	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.RejectFunction(cmd.Context(), api.RejectFunctionRequest{
		ProposalID: args[0],
		Reason:     reason,
		DecidedBy:  identity(by),
	})
	if err != nil {
		exitErr("reject", err)
	}
	printJSON(out)
}
