// Package cli implements the cardiokb CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cardiokb/internal/api"
	"cardiokb/internal/apperr"
	"cardiokb/internal/config"
	"cardiokb/internal/ledger"
	"cardiokb/internal/logger"
	"cardiokb/internal/oracle"
	"cardiokb/internal/store"
)

var dataDir string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "cardiokb",
	Short: "Clinical guideline knowledge base",
	Long: "Ingest clinical guideline documents, search them with cited results, and\n" +
		"draft calculator functions that only enter the registry after human approval.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Data directory (default: $CARDIOKB_DATA or ~/.cardiokb)")
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg
}

// openCore builds the full service wiring for one command invocation.
// The CLI logs quietly; the serve command builds its own logger.
func openCore() (*api.Core, *config.Config, error) {
	cfg := loadConfig()
	s, err := store.Open(cfg.KnowledgePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open knowledge store: %w", err)
	}
	l, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	core := api.New(s, l, oracle.NewFromEnv(), logger.Nop())
	core.SetIngestDefaults(cfg.IngestTimeout, cfg.IngestParallel)
	return core, cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error (%s): %s: %v\n", apperr.Code(err), msg, err)
	os.Exit(1)
}
