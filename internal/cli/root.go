package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tessro/cadence/internal/config"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Adaptive playback from the command line",
	Long: `Cadence plays tracks through your streaming provider's device API,
falling back to local preview clips when the session tier does not allow
full playback.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.cadencerc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}
