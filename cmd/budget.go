package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var budgetCmd = &cobra.Command{
	Use:     "budget",
	Aliases: []string{"budgets"},
	Short:   "Set and track per-category spending limits",
	GroupID: "money",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set <category> <amount>",
	Short: "Set (or update) a category budget",
	Example: `  moneyai budget set groceries 8000
  moneyai budget set dining 3000 --period weekly --threshold 90`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := args[0]
		amount, err := parseAmountArg(args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if !amount.IsPositive() {
			output.Error("budget amount must be positive")
			return fmt.Errorf("budget amount must be positive")
		}

		periodStr, _ := cmd.Flags().GetString("period")
		period := models.NormalizePeriod(periodStr)
		if !models.IsValidPeriod(period) {
			output.Error("invalid period: %s (valid: weekly, monthly, quarterly, yearly)", periodStr)
			return fmt.Errorf("invalid period: %s", periodStr)
		}

		threshold, _ := cmd.Flags().GetInt("threshold")
		if threshold < 1 || threshold > 100 {
			output.Error("threshold must be between 1 and 100")
			return fmt.Errorf("invalid threshold: %d", threshold)
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		// "set" is an upsert: one budget per category and period
		existing, err := database.GetBudgetByCategory(category, period)
		if err == nil && existing != nil {
			existing.Amount = amount
			existing.AlertThreshold = threshold
			if err := database.UpdateBudget(existing); err != nil {
				output.Error("failed to update budget: %v", err)
				return err
			}
			fmt.Printf("UPDATED %s (%s %s per %s)\n", existing.ID, category, output.FormatMoney(amount), period)
			return nil
		}

		b := &models.Budget{
			Category:       category,
			Amount:         amount,
			Period:         period,
			AlertThreshold: threshold,
		}
		if err := database.CreateBudget(b); err != nil {
			output.Error("failed to create budget: %v", err)
			return err
		}

		fmt.Printf("SET %s (%s %s per %s)\n", b.ID, category, output.FormatMoney(amount), period)
		return nil
	},
}

var budgetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "status"},
	Short:   "Show budgets with current-period spending",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		progress, err := database.AllBudgetProgress(time.Now())
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(progress)
		}

		if len(progress) == 0 {
			fmt.Println("No budgets set. Try: moneyai budget set groceries 8000")
			return nil
		}

		for _, p := range progress {
			status := output.FormatBudgetStatus(p.Percent, p.Budget.AlertThreshold)
			fmt.Printf("%-16s %12s of %-12s %s %6s  %s %s\n",
				p.Budget.Category,
				output.FormatMoney(p.Spent),
				output.FormatMoney(p.Budget.Amount),
				output.ProgressBar(p.Percent, 20),
				output.FormatPercent(p.Percent),
				status,
				output.Faint(string(p.Budget.Period)))
		}
		return nil
	},
}

var budgetDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a budget",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "bg-")
		if err := database.DeleteBudget(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("DELETED %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetListCmd)
	budgetCmd.AddCommand(budgetDeleteCmd)

	budgetSetCmd.Flags().StringP("period", "p", "monthly", "Budget period (weekly, monthly, quarterly, yearly)")
	budgetSetCmd.Flags().Int("threshold", 80, "Alert threshold percent")

	budgetListCmd.Flags().Bool("json", false, "Output JSON")
}
