package cli

import (
	"github.com/mechanicaltomato/fizzy/internal/config"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fizzy",
	Short: "Card triage with activity decay",
	Long:  "Fizzy tracks cards in collections, ranks them by decayed activity, and automatically postpones the ones nobody touches.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(rescoreCmd)
}

// loadConfig returns the defaults overlaid with the --config file, if any.
func loadConfig() (config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}
