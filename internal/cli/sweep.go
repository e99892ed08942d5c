package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mechanicaltomato/fizzy/internal/sweep"
	"github.com/spf13/cobra"
)

var (
	sweepDataDir string
	sweepEvery   time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the lifecycle sweep across all tenant databases",
	Long:  "Postpones every due card and reconsiders every stagnated one, tenant by tenant. Runs once by default; --every keeps it running on a timer.",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepDataDir, "data-dir", "", "directory of tenant databases (one *.db per tenant)")
	sweepCmd.Flags().DurationVar(&sweepEvery, "every", 0, "keep sweeping on this interval (0 = run once)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dataDir := sweepDataDir
	if dataDir == "" {
		dataDir = cfg.Sweep.DataDir
	}
	if dataDir == "" {
		return fmt.Errorf("no data dir: pass --data-dir or set sweep.data_dir")
	}

	driver := sweep.New(sweep.DirSource{Dir: dataDir}, cfg)

	if sweepEvery > 0 {
		driver.Start(sweepEvery)
		defer driver.Stop()
		fmt.Fprintf(os.Stderr, "sweeping %s every %s\n", dataDir, sweepEvery)

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		<-done
		return nil
	}

	result := driver.Run()
	fmt.Printf("%d tenants: %d postponed, %d reconsidered, %d conflicts, %d card failures, %d tenant failures\n",
		result.Tenants, result.Counts.Postponed, result.Counts.Reconsidered,
		result.Counts.Conflicts, result.Counts.Failures, result.TenantFailures)
	return nil
}
