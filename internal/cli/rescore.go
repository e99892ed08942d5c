package cli

import (
	"fmt"

	"github.com/mechanicaltomato/fizzy/internal/engine"
	"github.com/mechanicaltomato/fizzy/internal/store"
	"github.com/spf13/cobra"
)

var rescoreDBPath string

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Rebuild cached activity scores from the event log",
	Long:  "Recomputes every card's activity score and order key from its full event history. Safe to run repeatedly; used for backfills and repairs.",
	RunE:  runRescore,
}

func init() {
	rescoreCmd.Flags().StringVar(&rescoreDBPath, "db", "", "path to the tenant database (default ~/.fizzy/fizzy.db)")
}

func runRescore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := rescoreDBPath
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, cfg)
	n, err := eng.RescoreAll()
	if err != nil {
		return fmt.Errorf("rescore: %w", err)
	}

	fmt.Printf("rescored %d cards\n", n)
	return nil
}
