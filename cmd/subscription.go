package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var subCmd = &cobra.Command{
	Use:     "sub",
	Aliases: []string{"subscription", "subscriptions", "subs"},
	Short:   "Track recurring subscriptions",
	GroupID: "money",
}

var subAddCmd = &cobra.Command{
	Use:   "add <name> <amount>",
	Short: "Add a subscription",
	Example: `  moneyai sub add "Netflix" 649 --cycle monthly
  moneyai sub add "iCloud" 75 --next +15d -c software`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmountArg(args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		cycleStr, _ := cmd.Flags().GetString("cycle")
		cycle := models.NormalizeBillingCycle(cycleStr)
		if !models.IsValidBillingCycle(cycle) {
			output.Error("invalid cycle: %s (valid: weekly, monthly, quarterly, yearly)", cycleStr)
			return fmt.Errorf("invalid cycle: %s", cycleStr)
		}

		nextStr, _ := cmd.Flags().GetString("next")
		next, err := parseDateValue(nextStr)
		if err != nil {
			output.Error("invalid date %q: %v", nextStr, err)
			return err
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		category, _ := cmd.Flags().GetString("category")
		s := &models.Subscription{
			Name:            args[0],
			Amount:          amount,
			BillingCycle:    cycle,
			NextBillingDate: next,
			Category:        category,
		}
		if err := database.CreateSubscription(s); err != nil {
			output.Error("failed to add subscription: %v", err)
			return err
		}

		fmt.Printf("ADDED %s (%s %s per %s, next %s)\n", s.ID, s.Name,
			output.FormatMoney(s.Amount), s.BillingCycle, output.FormatDate(s.NextBillingDate))
		return nil
	},
}

var subListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List subscriptions with the monthly total",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		all, _ := cmd.Flags().GetBool("all")
		subs, err := database.ListSubscriptions(db.ListSubscriptionsOptions{ActiveOnly: !all})
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(subs)
		}

		if len(subs) == 0 {
			fmt.Println("No subscriptions.")
			return nil
		}

		monthly := models.NewMoneyZero(ledgerCurrency())
		for _, s := range subs {
			line := fmt.Sprintf("%s  %-20s %12s / %-9s next %s",
				output.Bold(s.ID), s.Name, output.FormatMoney(s.Amount),
				s.BillingCycle, output.FormatDate(s.NextBillingDate))
			if s.Category != "" {
				line += "  " + output.Faint(s.Category)
			}
			if !s.Active {
				line += "  " + output.Faint("cancelled")
			} else {
				monthly = monthly.Add(models.MonthlyEquivalent(s.Amount, s.BillingCycle))
			}
			fmt.Println(line)
		}

		fmt.Println()
		fmt.Printf("Monthly equivalent: %s\n", output.FormatMoney(monthly))
		return nil
	},
}

var subRenewCmd = &cobra.Command{
	Use:   "renew <id>",
	Short: "Record a billing cycle: advance the date, record the expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "sb-")
		s, err := database.RenewSubscription(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("RENEWED %s (next billing %s)\n", s.ID, output.FormatDate(s.NextBillingDate))

		if noTx, _ := cmd.Flags().GetBool("no-tx"); !noTx {
			category := s.Category
			if category == "" {
				category = "subscriptions"
			}
			tx := &models.Transaction{
				Amount:   s.Amount,
				Type:     models.TransactionExpense,
				Category: category,
				Merchant: s.Name,
				Note:     fmt.Sprintf("subscription %s", s.ID),
				Source:   models.SourceManual,
			}
			if err := database.CreateTransaction(tx); err != nil {
				output.Warning("renewed but expense not recorded: %v", err)
			} else {
				fmt.Printf("RECORDED %s\n", tx.ID)
			}
		}
		return nil
	},
}

var subPriceCmd = &cobra.Command{
	Use:   "price <id> <new-amount>",
	Short: "Record a price change",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		newAmount, err := parseAmountArg(args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "sb-")
		before, err := database.GetSubscription(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		s, err := database.ChangeSubscriptionPrice(id, newAmount)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		direction := "up"
		if newAmount.Cmp(before.Amount) < 0 {
			direction = "down"
		}
		fmt.Printf("PRICE %s %s: %s → %s\n", s.ID, direction,
			output.FormatMoney(before.Amount), output.FormatMoney(s.Amount))
		return nil
	},
}

var subHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a subscription's price history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "sb-")
		changes, err := database.ListPriceChanges(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if len(changes) == 0 {
			fmt.Println("No price changes recorded.")
			return nil
		}

		for _, c := range changes {
			fmt.Printf("%s  %s → %s\n", output.FormatDate(c.ChangedAt),
				output.FormatMoney(c.OldAmount), output.FormatMoney(c.NewAmount))
		}
		return nil
	},
}

var subCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a subscription (kept in history)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "sb-")
		if err := database.CancelSubscription(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("CANCELLED %s\n", id)
		return nil
	},
}

var subDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a subscription and its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "sb-")
		if err := database.DeleteSubscription(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("DELETED %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subCmd)
	subCmd.AddCommand(subAddCmd)
	subCmd.AddCommand(subListCmd)
	subCmd.AddCommand(subRenewCmd)
	subCmd.AddCommand(subPriceCmd)
	subCmd.AddCommand(subHistoryCmd)
	subCmd.AddCommand(subCancelCmd)
	subCmd.AddCommand(subDeleteCmd)

	subAddCmd.Flags().String("cycle", "monthly", "Billing cycle (weekly, monthly, quarterly, yearly)")
	subAddCmd.Flags().String("next", "", "Next billing date (default today)")
	subAddCmd.Flags().StringP("category", "c", "", "Expense category used on renewal")

	subListCmd.Flags().Bool("all", false, "Include cancelled subscriptions")
	subListCmd.Flags().Bool("json", false, "Output JSON")

	subRenewCmd.Flags().Bool("no-tx", false, "Do not record an expense transaction")
}
