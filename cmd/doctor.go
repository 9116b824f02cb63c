package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/aa"
	"github.com/zmrishh/moneyai/internal/aaclient"
	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Run diagnostic checks for the ledger and gateway setup",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		runDoctor()
		return nil
	},
}

func runDoctor() {
	baseDir := getBaseDir()

	// 1. Config readable
	cfg, err := config.Load(baseDir)
	cfgOK := err == nil
	if cfgOK {
		fmt.Printf("Config readable ........ OK\n")
	} else {
		fmt.Printf("Config readable ........ FAIL (%v)\n", err)
	}

	// 2. Ledger database
	var database *db.DB
	dbOK := false
	if !db.Exists(baseDir) {
		fmt.Printf("Ledger database ........ FAIL (not initialized; run: moneyai init)\n")
	} else {
		database, err = db.Open(baseDir)
		if err != nil {
			fmt.Printf("Ledger database ........ FAIL (%v)\n", err)
		} else {
			dbOK = true
			defer database.Close()
			fmt.Printf("Ledger database ........ OK (%s)\n", db.DataDir(baseDir))
		}
	}

	// 3. Gateway reachable - ping doesn't need a real consent handle
	gatewayURL := config.DefaultGatewayURL
	if cfgOK {
		if u, err := config.GatewayURL(baseDir); err == nil {
			gatewayURL = u
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = aaclient.New().InitializeWith(ctx, aa.Config{GatewayURL: gatewayURL, APIKey: "moneyai-doctor"})
	if err == nil {
		fmt.Printf("Gateway reachable ...... OK (%s)\n", gatewayURL)
	} else {
		fmt.Printf("Gateway reachable ...... FAIL (%v)\n", err)
	}

	// 4. Backend auth
	if !cfgOK {
		fmt.Printf("Backend auth ........... SKIP\n")
	} else {
		token, _ := config.AuthToken(baseDir)
		email, _ := config.AuthEmail(baseDir)
		if token == "" {
			fmt.Printf("Backend auth ........... WARN (not logged in; AI chat unavailable)\n")
		} else if email != "" {
			fmt.Printf("Backend auth ........... OK (%s)\n", email)
		} else {
			fmt.Printf("Backend auth ........... OK\n")
		}
	}

	// 5. Linked accounts
	if !dbOK {
		fmt.Printf("Linked accounts ........ SKIP\n")
	} else {
		conns, err := database.ListConnections()
		if err != nil {
			fmt.Printf("Linked accounts ........ FAIL (%v)\n", err)
		} else {
			active := 0
			for _, c := range conns {
				if c.ConsentStatus == models.ConsentActive {
					active++
				}
			}
			fmt.Printf("Linked accounts ........ %d active, %d total\n", active, len(conns))
		}
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
