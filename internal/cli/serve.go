package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mechanicaltomato/fizzy/internal/engine"
	"github.com/mechanicaltomato/fizzy/internal/server"
	"github.com/mechanicaltomato/fizzy/internal/store"
	"github.com/mechanicaltomato/fizzy/internal/sweep"
	"github.com/spf13/cobra"
)

var (
	serveDBPath string
	serveAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server for one tenant database",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "path to the tenant database (default ~/.fizzy/fizzy.db)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:38388)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := serveDBPath
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

	// With a data dir configured, this process also sweeps every tenant
	// database on the configured interval.
	if cfg.Sweep.DataDir != "" {
		driver := sweep.New(sweep.DirSource{Dir: cfg.Sweep.DataDir}, cfg)
		driver.Start(cfg.SweepInterval())
		defer driver.Stop()
		fmt.Fprintf(os.Stderr, "  sweep: %s every %s\n", cfg.Sweep.DataDir, cfg.SweepInterval())
	}

	srv := server.New(db, eng, VersionString())
	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr()
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "fizzy serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
