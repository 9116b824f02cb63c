package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/output"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize the moneyai ledger",
	Long:    `Creates the ~/.moneyai directory and SQLite ledger database.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if db.Exists(baseDir) {
			output.Warning("ledger already exists at %s", db.DataDir(baseDir))
			return nil
		}

		database, err := db.Initialize(baseDir)
		if err != nil {
			output.Error("failed to initialize ledger: %v", err)
			return err
		}
		defer database.Close()

		if currency, _ := cmd.Flags().GetString("currency"); currency != "" {
			if err := config.SetCurrency(baseDir, currency); err != nil {
				output.Warning("failed to set currency: %v", err)
			}
		}

		fmt.Printf("INITIALIZED %s\n", db.DataDir(baseDir))
		fmt.Println("Add your first transaction: moneyai tx add 450 -c groceries")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("currency", "", "Display currency code (default INR)")
}
