package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardiokb/internal/api"
	"cardiokb/internal/ledger"
	"cardiokb/internal/logger"
	"cardiokb/internal/mcpserver"
	"cardiokb/internal/oracle"
	"cardiokb/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge base over MCP stdio",
		Long:  "Run the Model Context Protocol server on stdin/stdout until the client disconnects. Logs go to stderr and, when configured, the log file.",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	// stdout carries the protocol, so logging must stay off it.
	log := logger.New(cfg.LogFile, cfg.Debug)
	defer log.Sync()

	s, err := store.Open(cfg.KnowledgePath())
	if err != nil {
		exitErr("open knowledge store", err)
	}
	l, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		s.Close()
		exitErr("open ledger", err)
	}

	core := api.New(s, l, oracle.NewFromEnv(), log)
	core.SetIngestDefaults(cfg.IngestTimeout, cfg.IngestParallel)
	defer core.Close()

	srv := mcpserver.New(core)
	if err := mcpserver.ServeStdio(srv); err != nil {
		exitErr("serve", fmt.Errorf("mcp server: %w", err))
	}
}
