package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"history", "audit"},
	Short:   "Show the ledger activity trail",
	Long: `Lists recorded mutations newest first. Every create, update, delete,
payment, renewal and link is logged with its entity and a detail payload.`,
	GroupID: "system",
	Example: `  moneyai activity
  moneyai activity --entity bill --limit 50
  moneyai activity --id tx-a1b2c3
  moneyai activity --since "last monday"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Open(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		entity, _ := cmd.Flags().GetString("entity")
		entityID, _ := cmd.Flags().GetString("id")
		action, _ := cmd.Flags().GetString("action")
		sinceStr, _ := cmd.Flags().GetString("since")
		jsonOut, _ := cmd.Flags().GetBool("json")

		opts := db.ListActivityOptions{
			EntityType: models.EntityType(entity),
			EntityID:   entityID,
			Action:     models.ActionType(action),
			Limit:      limit,
		}
		if sinceStr != "" {
			since, err := parseDateValue(sinceStr)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			opts.Since = since
		}

		entries, err := database.ListActivity(opts)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut {
			return output.JSON(entries)
		}

		if len(entries) == 0 {
			output.Info("No activity recorded.")
			return nil
		}

		for _, a := range entries {
			line := fmt.Sprintf("%s  %-10s %-12s %s",
				output.Faint(a.Timestamp.Format("2006-01-02 15:04")),
				a.ActionType, a.EntityType, output.Bold(a.EntityID))
			if a.Detail != "" && a.Detail != "{}" {
				line += "  " + output.Faint(a.Detail)
			}
			fmt.Println(line)
		}
		fmt.Println(output.Faint(fmt.Sprintf("%d entries", len(entries))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().Int("limit", 20, "Maximum entries to show")
	activityCmd.Flags().String("entity", "", "Filter by entity type (transaction, budget, bill, debt, subscription, goal, connection)")
	activityCmd.Flags().String("id", "", "Filter by entity ID")
	activityCmd.Flags().String("action", "", "Filter by action (create, update, delete, pay, renew, cancel, contribute, settle, link, unlink)")
	activityCmd.Flags().String("since", "", "Only entries after this date (natural language accepted)")
	activityCmd.Flags().Bool("json", false, "Output as JSON")
}
