package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blanxlait/kroger-relay/client"
)

var refreshToken string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain tokens through the relay's proxy endpoints",
}

var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange a refresh token for a new token set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if refreshToken == "" {
			return fmt.Errorf("--refresh-token is required")
		}
		c := client.New(relayURL)
		tokens, err := c.Refresh(cmd.Context(), refreshToken)
		if err != nil {
			return err
		}
		return printJSON(tokens)
	},
}

var tokenClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Obtain an app-level client-credential token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(relayURL)
		tokens, err := c.ClientToken(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(tokens)
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	tokenRefreshCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token obtained from a previous login")
	tokenCmd.AddCommand(tokenRefreshCmd)
	tokenCmd.AddCommand(tokenClientCmd)
	rootCmd.AddCommand(tokenCmd)
}
