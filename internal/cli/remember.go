package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cardiokb/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory item",
		Long:  "Store a free-text note. Content can be a positional arg or piped via stdin. Memories are searchable alongside guideline chapters.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("keywords", "k", "", "Comma-separated keywords")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	keywordsStr, _ := cmd.Flags().GetString("keywords")
	tagsStr, _ := cmd.Flags().GetString("tags")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	core, _, err := openCore()
	if err != nil {
		exitErr("open", err)
	}
	defer core.Close()

	res, err := core.StoreMemory(cmd.Context(), api.StoreMemoryRequest{
		Content:  strings.TrimSpace(content),
		Keywords: splitCSV(keywordsStr),
		Tags:     splitCSV(tagsStr),
	})
	if err != nil {
		exitErr("remember", err)
	}
	printJSON(res)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
