package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"account", "acc"},
	Short:   "Manage linked bank accounts",
	GroupID: "linking",
}

var accountsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List linked accounts and their consent status",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		conns, err := database.ListConnections()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(conns)
		}

		if len(conns) == 0 {
			fmt.Println("No linked accounts. Run: moneyai link")
			return nil
		}

		for _, c := range conns {
			line := fmt.Sprintf("%s  %-20s %-14s %-8s %s",
				output.Bold(c.ID), c.FIPName, c.MaskedAccountNumber,
				c.AccountType, output.ConsentBadge(c.ConsentStatus))
			if c.ConsentExpiresAt != nil {
				line += "  " + output.Faint("expires "+output.FormatDate(*c.ConsentExpiresAt))
			}
			fmt.Println(line)
			detail := fmt.Sprintf("    linked %s", output.FormatTimeAgo(c.LinkedAt))
			if c.ConsentID != "" {
				detail += "  consent " + c.ConsentID
			}
			if c.LastSyncedAt != nil {
				detail += "  synced " + output.FormatTimeAgo(*c.LastSyncedAt)
			}
			fmt.Println(output.Faint(detail))
		}
		return nil
	},
}

var accountsUnlinkCmd = &cobra.Command{
	Use:   "unlink <id>",
	Short: "Revoke consent for a linked account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "cn-")
		conn, err := database.GetConnection(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			prompt := fmt.Sprintf("Revoke consent for %s %s?", conn.FIPName, conn.MaskedAccountNumber)
			if !confirmPrompt(prompt) {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := database.UpdateConsentStatus(id, models.ConsentRevoked); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("UNLINKED %s (%s %s)\n", id, conn.FIPName, conn.MaskedAccountNumber)
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a connection from the ledger entirely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "cn-")
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirmPrompt(fmt.Sprintf("Remove connection %s?", id)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := database.DeleteConnection(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("REMOVED %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsUnlinkCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)

	accountsListCmd.Flags().Bool("json", false, "Output JSON")
	accountsUnlinkCmd.Flags().Bool("yes", false, "Skip confirmation")
	accountsRemoveCmd.Flags().Bool("yes", false, "Skip confirmation")
}
