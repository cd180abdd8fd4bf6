package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blanxlait/kroger-relay/client"
)

var (
	loginScope   string
	loginTimeout time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login via the browser OAuth flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(relayURL)
		sessionID := client.NewSessionID()
		authorizeURL := c.AuthorizeURL(sessionID, loginScope, "cli")

		fmt.Fprintln(os.Stderr, "Opening browser for Kroger login...")
		fmt.Fprintln(os.Stderr, authorizeURL)
		if err := openBrowser(authorizeURL); err != nil {
			log.Debug().Err(err).Msg("Could not open browser; visit the URL manually")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
		defer cancel()

		fmt.Fprintln(os.Stderr, "Waiting for login to complete...")
		tokens, err := c.WaitForTokens(ctx, sessionID, 2*time.Second)
		if err != nil {
			return fmt.Errorf("login did not complete: %w", err)
		}

		out, err := json.MarshalIndent(tokens, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginScope, "scope", "", "Requested scopes (space separated, filtered by the relay)")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "How long to wait for the browser leg")
	rootCmd.AddCommand(loginCmd)
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	default:
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	}
}
