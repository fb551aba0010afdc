package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spikeai/spike/backend/pkg/models"
)

var askStream bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Example: `  spikectl ask "How many users visited last week?" --property 516815205
  spikectl ask "Which pages return 404?" --stream`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		client := newClient()
		out := cmd.OutOrStdout()

		response, err := ask(cmd, client, query, settings.GetString("property_id"), askStream)
		if err != nil {
			if errors.Is(err, ErrUnreachable) {
				warnColor.Fprintln(cmd.ErrOrStderr(), "   Start the server with: go run ./cmd/server")
			}
			return err
		}
		printResponse(out, response)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "show progress while the question is processed")
}

func ask(cmd *cobra.Command, client *Client, query, propertyID string, stream bool) (string, error) {
	if !stream {
		resp, err := client.Query(cmd.Context(), query, propertyID)
		if err != nil {
			return "", err
		}
		return resp.Response, nil
	}

	out := cmd.OutOrStdout()
	final, err := client.Stream(cmd.Context(), query, propertyID, func(ev models.StreamEvent) {
		if ev.Response == "" {
			printStep(out, ev.Step, ev.Status)
		}
	})
	if err != nil {
		return "", err
	}
	if final.Response == "" {
		return "", fmt.Errorf("backend finished without a response")
	}
	return final.Response, nil
}
