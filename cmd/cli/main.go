package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lobbytrack",
	Short: "LobbyTrack - directory sync administration",
	Long: `lobbytrack talks to a running LobbyTrack server to log in, trigger
scheduled directory syncs, preview provider listings and manage the
per-lane sync schedule.

The server address defaults to $LOBBYTRACK_API or http://localhost:8080.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("lobbytrack version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("api", envOr("LOBBYTRACK_API", "http://localhost:8080"), "Server base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("LOBBYTRACK_TOKEN"), "Bearer token (defaults to the saved login)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json or yaml")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(settingsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// clientFromFlags builds an API client from the persistent flags. The saved
// login token is used when --token is not given.
func clientFromFlags(cmd *cobra.Command) *apiClient {
	base, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = loadToken()
	}
	return newAPIClient(base, token)
}
