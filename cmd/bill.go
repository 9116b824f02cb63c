package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var billCmd = &cobra.Command{
	Use:     "bill",
	Aliases: []string{"bills"},
	Short:   "Track one-off and recurring bills",
	GroupID: "money",
}

var billAddCmd = &cobra.Command{
	Use:   "add <name> <amount>",
	Short: "Add a bill",
	Example: `  moneyai bill add "Electricity" 2400 --due +10d
  moneyai bill add "Rent" 25000 --due 2026-09-01 --recur monthly`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmountArg(args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		dueStr, _ := cmd.Flags().GetString("due")
		due, err := parseDateValue(dueStr)
		if err != nil {
			output.Error("invalid due date %q: %v", dueStr, err)
			return err
		}

		recurStr, _ := cmd.Flags().GetString("recur")
		recurrence := models.Recurrence(recurStr)
		if recurStr != "" && !models.IsValidRecurrence(recurrence) {
			output.Error("invalid recurrence: %s (valid: none, monthly, quarterly, yearly)", recurStr)
			return fmt.Errorf("invalid recurrence: %s", recurStr)
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		reminderDays, _ := cmd.Flags().GetInt("reminder")
		autopay, _ := cmd.Flags().GetBool("autopay")
		category, _ := cmd.Flags().GetString("category")

		b := &models.Bill{
			Name:         args[0],
			Amount:       amount,
			DueDate:      due,
			Recurrence:   recurrence,
			ReminderDays: reminderDays,
			Autopay:      autopay,
			Category:     category,
		}
		if err := database.CreateBill(b); err != nil {
			output.Error("failed to add bill: %v", err)
			return err
		}

		fmt.Printf("ADDED %s (%s %s due %s)\n", b.ID, b.Name,
			output.FormatMoney(b.Amount), output.FormatDate(b.DueDate))
		return nil
	},
}

var billListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List bills, overdue first",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		paid, _ := cmd.Flags().GetBool("paid")
		all, _ := cmd.Flags().GetBool("all")

		opts := db.ListBillsOptions{Unpaid: true}
		if paid {
			opts = db.ListBillsOptions{Paid: true}
		}
		if all {
			opts = db.ListBillsOptions{}
		}

		bills, err := database.ListBills(opts)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(bills)
		}

		if len(bills) == 0 {
			fmt.Println("No bills.")
			return nil
		}

		now := time.Now()
		var overdue, upcoming, rest []models.Bill
		for _, b := range bills {
			switch {
			case !b.Paid && b.DueDate.Before(now):
				overdue = append(overdue, b)
			case !b.Paid:
				upcoming = append(upcoming, b)
			default:
				rest = append(rest, b)
			}
		}

		if len(overdue) > 0 {
			fmt.Println(output.SectionHeader("Overdue"))
			for _, b := range overdue {
				printBillLine(&b, now)
			}
		}
		if len(upcoming) > 0 {
			if len(overdue) > 0 {
				fmt.Println()
			}
			fmt.Println(output.SectionHeader("Upcoming"))
			for _, b := range upcoming {
				printBillLine(&b, now)
			}
		}
		if len(rest) > 0 {
			if len(overdue)+len(upcoming) > 0 {
				fmt.Println()
			}
			fmt.Println(output.SectionHeader("Paid"))
			for _, b := range rest {
				printBillLine(&b, now)
			}
		}
		return nil
	},
}

func printBillLine(b *models.Bill, now time.Time) {
	due := output.FormatDate(b.DueDate)
	var status string
	switch {
	case b.Paid:
		status = output.Faint("paid")
	case b.DueDate.Before(now):
		days := int(now.Sub(b.DueDate).Hours() / 24)
		status = fmt.Sprintf("%d day(s) late", days)
	default:
		days := int(b.DueDate.Sub(now).Hours()/24) + 1
		status = output.Faint(fmt.Sprintf("in %d day(s)", days))
	}

	line := fmt.Sprintf("%s  %-20s %12s  due %s  %s",
		output.Bold(b.ID), b.Name, output.FormatMoney(b.Amount), due, status)
	if b.Recurrence != models.RecurNone && b.Recurrence != "" {
		line += "  " + output.Faint("↻ "+string(b.Recurrence))
	}
	if b.Autopay {
		line += "  " + output.Faint("[autopay]")
	}
	fmt.Println(line)
}

var billPayCmd = &cobra.Command{
	Use:   "pay <id>",
	Short: "Mark a bill paid and record the expense",
	Long: `Marks the bill paid. By default an expense transaction is recorded in the
ledger; suppress it with --no-tx. Recurring bills get their next instance
created one cycle ahead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "bl-")
		bill, err := database.GetBill(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		dateStr, _ := cmd.Flags().GetString("date")
		paidAt, err := parseDateValue(dateStr)
		if err != nil {
			output.Error("invalid date %q: %v", dateStr, err)
			return err
		}

		next, err := database.PayBill(id, paidAt)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("PAID %s (%s %s)\n", bill.ID, bill.Name, output.FormatMoney(bill.Amount))

		if noTx, _ := cmd.Flags().GetBool("no-tx"); !noTx {
			category := bill.Category
			if category == "" {
				category = "bills"
			}
			tx := &models.Transaction{
				Amount:     bill.Amount,
				Type:       models.TransactionExpense,
				Category:   category,
				Merchant:   bill.Name,
				Note:       fmt.Sprintf("bill %s", bill.ID),
				Source:     models.SourceManual,
				OccurredAt: paidAt,
			}
			if err := database.CreateTransaction(tx); err != nil {
				output.Warning("bill paid but expense not recorded: %v", err)
			} else {
				fmt.Printf("RECORDED %s\n", tx.ID)
			}
		}

		if next != nil {
			fmt.Printf("NEXT %s due %s\n", next.ID, output.FormatDate(next.DueDate))
		}
		return nil
	},
}

var billDueCmd = &cobra.Command{
	Use:   "due",
	Short: "Bills due within their reminder window",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		days, _ := cmd.Flags().GetInt("days")

		var bills []models.Bill
		now := time.Now()
		if days > 0 {
			bills, err = database.ListBills(db.ListBillsOptions{Unpaid: true, DueWithinDays: days})
		} else {
			// No override: apply each bill's own reminder window
			var unpaid []models.Bill
			unpaid, err = database.ListBills(db.ListBillsOptions{Unpaid: true})
			for _, b := range unpaid {
				if !b.DueDate.After(now.AddDate(0, 0, b.ReminderDays)) {
					bills = append(bills, b)
				}
			}
		}
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(bills)
		}

		if len(bills) == 0 {
			fmt.Println("Nothing due. Nice.")
			return nil
		}

		for _, b := range bills {
			printBillLine(&b, now)
		}
		return nil
	},
}

var billDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a bill",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "bl-")
		if err := database.DeleteBill(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("DELETED %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(billCmd)
	billCmd.AddCommand(billAddCmd)
	billCmd.AddCommand(billListCmd)
	billCmd.AddCommand(billPayCmd)
	billCmd.AddCommand(billDueCmd)
	billCmd.AddCommand(billDeleteCmd)

	billAddCmd.Flags().String("due", "", "Due date (natural dates allowed; default today)")
	billAddCmd.Flags().String("recur", "", "Recurrence (none, monthly, quarterly, yearly)")
	billAddCmd.Flags().Int("reminder", 3, "Days before due to surface in 'bill due'")
	billAddCmd.Flags().Bool("autopay", false, "Mark as autopay")
	billAddCmd.Flags().StringP("category", "c", "", "Expense category used when paying")

	billListCmd.Flags().Bool("paid", false, "Show only paid bills")
	billListCmd.Flags().Bool("all", false, "Show paid and unpaid")
	billListCmd.Flags().Bool("json", false, "Output JSON")

	billPayCmd.Flags().Bool("no-tx", false, "Do not record an expense transaction")
	billPayCmd.Flags().String("date", "", "Payment date (default today)")

	billDueCmd.Flags().Int("days", 0, "Override window in days (0 = each bill's own reminder window)")
	billDueCmd.Flags().Bool("json", false, "Output JSON")
}
