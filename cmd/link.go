package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/aa"
	"github.com/zmrishh/moneyai/internal/aaclient"
	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/output"
	"github.com/zmrishh/moneyai/internal/tui/link"
)

var linkCmd = &cobra.Command{
	Use:     "link",
	Short:   "Link bank accounts through the Account Aggregator flow",
	GroupID: "linking",
	Long: `Walks the full Account Aggregator journey interactively: sign in with
your AA handle, pick your bank, discover accounts, link them with an OTP,
review the consent terms and approve or deny. Approved accounts are saved
as connections in the ledger.

Esc or ctrl+c cancels at any point; the gateway session is always cleaned
up. Run "moneyai sandbox" in another terminal to try the flow against the
local simulator.`,
	Example: `  moneyai sandbox &
  moneyai link
  moneyai link --handle CH-2024-0042 --gateway https://aa.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		gateway, _ := cmd.Flags().GetString("gateway")
		if gateway == "" {
			gateway, err = config.GatewayURL(baseDir)
			if err != nil {
				output.Error("load config: %v", err)
				return err
			}
		}

		apiKey, _ := cmd.Flags().GetString("api-key")
		if apiKey == "" {
			apiKey = os.Getenv("MONEYAI_AA_API_KEY")
		}
		if apiKey == "" {
			// The sandbox accepts any non-empty key
			apiKey = "moneyai-dev"
		}

		handle, _ := cmd.Flags().GetString("handle")
		deviceID, _ := cmd.Flags().GetString("device-id")

		var logger *slog.Logger
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logPath := filepath.Join(db.DataDir(baseDir), "link.log")
			f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				output.Error("open debug log: %v", err)
				return err
			}
			defer f.Close()
			logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
			fmt.Printf("Debug log: %s\n", logPath)
		}

		journey, err := aa.New(aaclient.New(), aa.Config{
			GatewayURL: gateway,
			APIKey:     apiKey,
			DeviceID:   deviceID,
		}, handle, logger)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		model := link.NewModel(journey, database, versionStr)

		p := tea.NewProgram(model, tea.WithAltScreen())
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("error running link flow: %w", err)
		}

		fm, ok := final.(link.Model)
		if !ok {
			return nil
		}
		printLinkResult(fm)

		if fm.FatalErr != "" {
			return fmt.Errorf("linking failed: %s", fm.FatalErr)
		}
		return nil
	},
}

// printLinkResult summarizes the journey after the TUI exits. The journey
// itself is already torn down and reset at this point.
func printLinkResult(m link.Model) {
	switch {
	case m.FatalErr != "":
		output.Error("linking failed: %s", m.FatalErr)
	case m.Cancelling:
		fmt.Println("Linking cancelled.")
	case m.Outcome != nil && m.Outcome.ConsentGranted:
		output.Success("Linked %d account(s). Consent %s is active.",
			m.SavedCount, m.Outcome.ConsentID)
		fmt.Println("See them with: moneyai accounts list")
	case m.Outcome != nil:
		fmt.Println("Consent denied. No accounts were linked.")
	}

	if m.SaveErr != nil {
		output.Warning("consent approved but connections were not saved: %v", m.SaveErr)
	}

	if m.UpdateInfo != nil {
		fmt.Println()
		output.Info("Update available: %s → %s", m.UpdateInfo.CurrentVersion, m.UpdateInfo.LatestVersion)
		if m.UpdateInfo.UpdateCommand != "" {
			output.Info("Run: %s", m.UpdateInfo.UpdateCommand)
		}
	}
}

func init() {
	rootCmd.AddCommand(linkCmd)

	linkCmd.Flags().String("handle", "handle-001", "Consent handle issued by the FIU (sandbox default)")
	linkCmd.Flags().String("gateway", "", "AA gateway base URL (default from config)")
	linkCmd.Flags().String("api-key", "", "Gateway API key (or MONEYAI_AA_API_KEY)")
	linkCmd.Flags().String("device-id", "", "Device identifier sent to the gateway")
	linkCmd.Flags().Bool("debug", false, "Write journey logs to ~/.moneyai/link.log")
}
