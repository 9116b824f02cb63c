package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/backend"
	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/output"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage moneyAI account authentication",
	GroupID: "ai",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a device code",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()
		backendURL, err := config.BackendURL(baseDir)
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		client := backend.New(backendURL, "", "")

		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		email, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(email)
		if email == "" {
			return fmt.Errorf("email required")
		}

		resp, err := client.LoginStart(email)
		if err != nil {
			output.Error("login start: %v", err)
			return err
		}

		fmt.Printf("Open %s and enter code: %s\n", resp.VerificationURI, resp.UserCode)

		interval := time.Duration(resp.Interval) * time.Second
		if interval < time.Second {
			interval = 5 * time.Second
		}

		for {
			time.Sleep(interval)

			poll, err := client.LoginPoll(resp.DeviceCode)
			if err != nil {
				output.Error("login poll: %v", err)
				return err
			}

			switch poll.Status {
			case "pending":
				fmt.Print(".")
				continue
			case "complete":
				fmt.Println()

				var token string
				if poll.Token != nil {
					token = *poll.Token
				}
				if token == "" {
					return fmt.Errorf("login completed without a token")
				}
				if poll.Email != nil && *poll.Email != "" {
					email = *poll.Email
				}

				if err := config.SetAuthToken(baseDir, token, email); err != nil {
					output.Error("save credentials: %v", err)
					return err
				}

				output.Success("Logged in as %s", email)
				return nil
			default:
				return fmt.Errorf("unexpected poll status: %s", poll.Status)
			}
		}
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearAuthToken(getBaseDir()); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		token, err := config.AuthToken(baseDir)
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		if token == "" {
			fmt.Println("Not logged in.")
			return nil
		}

		email, _ := config.AuthEmail(baseDir)
		backendURL, _ := config.BackendURL(baseDir)

		tokenPrefix := token
		if len(tokenPrefix) > 12 {
			tokenPrefix = tokenPrefix[:12] + "..."
		}

		fmt.Printf("Email:   %s\n", email)
		fmt.Printf("Backend: %s\n", backendURL)
		fmt.Printf("Token:   %s\n", tokenPrefix)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
