package cli

import (
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "approve [proposal-id]",
		Short: "Approve a pending proposal",
		Long:  "Approve a pending proposal, registering its function at the next version. The code hash must match the proposal's recorded hash.",
		Args:  cobra.ExactArgs(1),
		Run:   runApprove,
	}

	cmd.Flags().String("hash", "", "SHA-256 of the reviewed code, lowercase hex (required)")
	cmd.Flags().StringP("name", "n", "", "Function name to register (required)")
	cmd.Flags().String("by", "", "Approver identity (default: current user)")

	cmd.MarkFlagRequired("hash")
	cmd.MarkFlagRequired("name")

	RootCmd.AddCommand(cmd)
}

func runApprove(cmd *cobra.Command, args []string) {
	hash, _ := cmd.Flags().GetString("hash")
	name, _ := cmd.Flags().GetString("name")
	by, _ := cmd.Flags().GetString("by")

	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	out, err := core.ApproveFunction(cmd.Context(), api.ApproveFunctionRequest{
		ProposalID:   args[0],
		CodeHash:     hash,
		FunctionName: name,
		ApprovedBy:   identity(by),
	})
	if err != nil {
		exitErr("approve", err)
	}
	printJSON(out)
}

// identity resolves the reviewer name for the audit trail.
func identity(flag string) string {
	if flag != "" {
		return flag
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	return "unknown"
}
