package main

import (
	"fmt"

	"github.com/lobbytrack/lobbytrack/internal/service"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	Long: `Exchange an email and password for a session token and save it for
later commands.

Examples:
  lobbytrack login --email admin@example.com --password secret`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().String("email", "", "Account email (required)")
	loginCmd.Flags().String("password", "", "Account password (required)")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	c := clientFromFlags(cmd)
	var res service.LoginResult
	err := c.do(cmd.Context(), "POST", "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := saveToken(res.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s (%s)\n", res.Email, res.Role)
	return nil
}
