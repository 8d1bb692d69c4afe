package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mdubois44/chargeplan/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "chargeplan",
	Short: "Multi-objective EV charging schedule optimizer",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file. A missing default file is not an
// error; defaults and environment overrides still apply.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	if _, err := os.Stat(cfgPath); err != nil && !rootCmd.PersistentFlags().Changed("config") {
		return config.FromEnv()
	}
	return config.Load(cfgPath)
}
