package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings resolves flags, SPIKE_* environment variables and
// ~/.config/spike/config.yaml, in that order of precedence.
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "spikectl",
	Short: "Ask the Spike backend about your analytics and SEO data",
	Long: `spikectl sends natural-language questions to a running Spike backend.

Questions about traffic go to Google Analytics 4 when a property id is set;
questions about the site crawl go to the SEO audit data. Combined questions
use both.

With no arguments, starts an interactive session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context(), newClient())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("url", "http://localhost:8080", "Spike backend base URL")
	flags.String("property", "", "GA4 property id for analytics questions")
	flags.String("api-key", "", "API key when the backend requires one")
	flags.Duration("timeout", 120*time.Second, "request timeout")

	settings.BindPFlag("url", flags.Lookup("url"))
	settings.BindPFlag("property_id", flags.Lookup("property"))
	settings.BindPFlag("api_key", flags.Lookup("api-key"))
	settings.BindPFlag("timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(interactiveCmd)
}

func loadSettings() error {
	settings.SetEnvPrefix("SPIKE")
	settings.AutomaticEnv()

	settings.SetConfigName("config")
	settings.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		settings.AddConfigPath(filepath.Join(dir, "spike"))
	}
	if err := settings.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newClient() *Client {
	return NewClient(
		settings.GetString("url"),
		settings.GetString("api_key"),
		settings.GetDuration("timeout"),
	)
}
