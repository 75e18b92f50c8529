package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/timerguard/pkg/logging"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string

	logger *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "timerctl",
	Short: "CLI for time-bounded command execution",
	Long: `timerctl runs external commands under timing guards: an upper-bound
deadline that aborts commands running too long, a minimum-duration floor
that keeps commands from finishing early, and a stopwatch for measuring
command runtimes across repeated runs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.timerguard/config)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".timerguard")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("default_timeout", "TIMERGUARD_DEFAULT_TIMEOUT")
	viper.BindEnv("timeout_message", "TIMERGUARD_TIMEOUT_MESSAGE")

	// Missing config file is fine; defaults and flags cover everything
	viper.ReadInConfig()

	logger = logging.NewLogger(logging.ParseLevel(logLevel), false)
}

// printStructured renders v as JSON or YAML according to the global output
// flag. Callers handle the table format themselves.
func printStructured(v interface{}) error {
	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		fmt.Print(string(data))
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
	return nil
}

// isTableOutput returns true if table output is requested
func isTableOutput() bool {
	return outputFormat == "table" || outputFormat == ""
}
