package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var debtCmd = &cobra.Command{
	Use:     "debt",
	Aliases: []string{"debts"},
	Short:   "Track money you owe and money owed to you",
	GroupID: "money",
}

var debtAddCmd = &cobra.Command{
	Use:   "add <name> <amount>",
	Short: "Add a debt",
	Example: `  moneyai debt add "Car loan" 300000 --kind owe --to "HDFC" --due +2y
  moneyai debt add "Lunch money" 850 --kind owed --from "Arjun"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmountArg(args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		kindStr, _ := cmd.Flags().GetString("kind")
		kind := models.DebtKind(kindStr)
		if !models.IsValidDebtKind(kind) {
			output.Error("invalid kind: %s (valid: owe, owed)", kindStr)
			return fmt.Errorf("invalid kind: %s", kindStr)
		}

		// --to names who you owe, --from names who owes you
		counterparty, _ := cmd.Flags().GetString("to")
		if counterparty == "" {
			counterparty, _ = cmd.Flags().GetString("from")
		}

		d := &models.Debt{
			Name:         args[0],
			Kind:         kind,
			Counterparty: counterparty,
			Principal:    amount,
		}

		if dueStr, _ := cmd.Flags().GetString("due"); dueStr != "" {
			due, err := parseDateValue(dueStr)
			if err != nil {
				output.Error("invalid due date %q: %v", dueStr, err)
				return err
			}
			d.DueDate = &due
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		if err := database.CreateDebt(d); err != nil {
			output.Error("failed to add debt: %v", err)
			return err
		}

		direction := "you owe"
		if d.Kind == models.DebtOwed {
			direction = "owed to you"
		}
		fmt.Printf("ADDED %s (%s %s, %s)\n", d.ID, d.Name, output.FormatMoney(d.Principal), direction)
		return nil
	},
}

var debtListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List outstanding debts",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		all, _ := cmd.Flags().GetBool("all")
		debts, err := database.ListDebts(db.ListDebtsOptions{IncludeSettled: all})
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(debts)
		}

		if len(debts) == 0 {
			fmt.Println("No debts. Enjoy it.")
			return nil
		}

		oweTotal := models.NewMoneyZero(ledgerCurrency())
		owedTotal := models.NewMoneyZero(ledgerCurrency())
		for _, d := range debts {
			printDebtLine(&d)
			if d.Settled {
				continue
			}
			if d.Kind == models.DebtOwe {
				oweTotal = oweTotal.Add(d.Remaining)
			} else {
				owedTotal = owedTotal.Add(d.Remaining)
			}
		}

		fmt.Println()
		fmt.Printf("You owe %s, you are owed %s\n",
			output.FormatMoney(oweTotal), output.FormatMoney(owedTotal))
		return nil
	},
}

func printDebtLine(d *models.Debt) {
	arrow := "→" // money flowing out
	if d.Kind == models.DebtOwed {
		arrow = "←"
	}

	line := fmt.Sprintf("%s %s %-20s %12s of %s",
		output.Bold(d.ID), arrow, d.Name,
		output.FormatMoney(d.Remaining), output.FormatMoney(d.Principal))
	if d.Counterparty != "" {
		line += "  " + output.Faint(d.Counterparty)
	}
	if d.Settled {
		line += "  " + output.Faint("settled")
	} else if d.DueDate != nil {
		line += "  " + output.Faint("due "+output.FormatDate(*d.DueDate))
	}
	fmt.Println(line)
}

var debtPayCmd = &cobra.Command{
	Use:   "pay <id> <amount>",
	Short: "Record a payment against a debt",
	Long: `Records a payment and updates the remaining balance. Paying money you owe
records an expense transaction; receiving payment on money owed to you
records income. The debt settles automatically when the balance hits zero.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmountArg(args[1])
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

		note, _ := cmd.Flags().GetString("note")
		dateStr, _ := cmd.Flags().GetString("date")
		paidAt, err := parseDateValue(dateStr)
		if err != nil {
			output.Error("invalid date %q: %v", dateStr, err)
			return err
		}

		id := db.NormalizeID(args[0], "dt-")
		debt, err := database.RecordDebtPayment(id, amount, note, paidAt)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("PAID %s against %s (remaining %s)\n",
			output.FormatMoney(amount), debt.ID, output.FormatMoney(debt.Remaining))

		if noTx, _ := cmd.Flags().GetBool("no-tx"); !noTx {
			txType := models.TransactionExpense
			if debt.Kind == models.DebtOwed {
				txType = models.TransactionIncome
			}
			tx := &models.Transaction{
				Amount:     amount,
				Type:       txType,
				Category:   "debt",
				Merchant:   debt.Counterparty,
				Note:       fmt.Sprintf("payment on %s (%s)", debt.ID, debt.Name),
				Source:     models.SourceManual,
				OccurredAt: paidAt,
			}
			if err := database.CreateTransaction(tx); err != nil {
				output.Warning("payment recorded but transaction not: %v", err)
			} else {
				fmt.Printf("RECORDED %s\n", tx.ID)
			}
		}

		if debt.Settled {
			output.Success("Debt %s settled.", debt.ID)
		}
		return nil
	},
}

var debtHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show payments made against a debt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "dt-")
		payments, err := database.ListDebtPayments(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if len(payments) == 0 {
			fmt.Println("No payments yet.")
			return nil
		}

		for _, p := range payments {
			line := fmt.Sprintf("%s  %s", output.FormatDate(p.PaidAt), output.FormatMoney(p.Amount))
			if p.Note != "" {
				line += "  " + output.Faint(p.Note)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var debtDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a debt and its payment history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "dt-")
		if err := database.DeleteDebt(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("DELETED %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(debtCmd)
	debtCmd.AddCommand(debtAddCmd)
	debtCmd.AddCommand(debtListCmd)
	debtCmd.AddCommand(debtPayCmd)
	debtCmd.AddCommand(debtHistoryCmd)
	debtCmd.AddCommand(debtDeleteCmd)

	debtAddCmd.Flags().String("kind", "owe", "Debt direction (owe = you owe, owed = owed to you)")
	debtAddCmd.Flags().String("to", "", "Who you owe (for kind owe)")
	debtAddCmd.Flags().String("from", "", "Who owes you (for kind owed)")
	debtAddCmd.Flags().String("due", "", "Due date")

	debtListCmd.Flags().Bool("all", false, "Include settled debts")
	debtListCmd.Flags().Bool("json", false, "Output JSON")

	debtPayCmd.Flags().StringP("note", "n", "", "Payment note")
	debtPayCmd.Flags().String("date", "", "Payment date (default today)")
	debtPayCmd.Flags().Bool("no-tx", false, "Do not record a ledger transaction")
}
