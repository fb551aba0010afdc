package main

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := settings.GetString("url")
		if err := newClient().Health(cmd.Context()); err != nil {
			return err
		}
		okColor.Fprintf(cmd.OutOrStdout(), "✅ Server is running at %s\n", url)
		return nil
	},
}
