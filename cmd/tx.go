package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/input"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
	"github.com/zmrishh/moneyai/internal/query"
)

var txCmd = &cobra.Command{
	Use:     "tx",
	Aliases: []string{"transaction", "transactions"},
	Short:   "Record and query transactions",
	GroupID: "money",
}

var txAddCmd = &cobra.Command{
	Use:     "add <amount>",
	Aliases: []string{"new"},
	Short:   "Record a transaction",
	Long: `Record an income or expense transaction.

The amount may be "-" to read it from stdin, so amounts can be piped in.
Dates accept natural forms: today, yesterday, -3d, friday, 2026-08-01.`,
	Example: `  moneyai tx add 450 -c groceries -m "Big Bazaar"
  moneyai tx add 85000 -t income -c salary -d 2026-08-01
  echo 120 | moneyai tx add - -c transport`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmountArg(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if !amount.IsPositive() {
			output.Error("amount must be positive")
			return fmt.Errorf("amount must be positive")
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		tx := &models.Transaction{
			Amount: amount,
			Type:   models.TransactionExpense,
			Source: models.SourceManual,
		}

		if t, _ := cmd.Flags().GetString("type"); t != "" {
			tx.Type = models.NormalizeTransactionType(t)
			if !models.IsValidTransactionType(tx.Type) {
				output.Error("invalid type: %s (valid: income, expense)", t)
				return fmt.Errorf("invalid type: %s", t)
			}
		}

		tx.Category, _ = cmd.Flags().GetString("category")
		if tx.Category == "" {
			tx.Category = "uncategorized"
		}
		tx.Merchant, _ = cmd.Flags().GetString("merchant")
		tx.Account, _ = cmd.Flags().GetString("account")

		if note, _ := cmd.Flags().GetString("note"); note != "" {
			tx.Note, _ = input.ExpandString(note, args[0] == "-")
		}

		dateStr, _ := cmd.Flags().GetString("date")
		tx.OccurredAt, err = parseDateValue(dateStr)
		if err != nil {
			output.Error("invalid date %q: %v", dateStr, err)
			return err
		}

		hintCategoryTypo(database, tx.Category)

		if err := database.CreateTransaction(tx); err != nil {
			output.Error("failed to record transaction: %v", err)
			return err
		}

		fmt.Printf("ADDED %s\n", tx.ID)
		fmt.Println(output.FormatTransactionShort(tx))
		return nil
	},
}

var txListCmd = &cobra.Command{
	Use:     "list [query]",
	Aliases: []string{"ls"},
	Short:   "List transactions, optionally filtered by a query",
	Long: `List transactions. Arguments form a TXQ filter expression:

  category:groceries               category equals
  amount>500 and type:expense      numeric comparison, boolean logic
  merchant~swiggy                  substring match
  date>=2026-08-01                 date comparison
  (category:dining or category:groceries) and amount>200

Append "sort:amount" or "sort:-date" to order inside the query itself.`,
	Example: `  moneyai tx list
  moneyai tx list "category:groceries and amount>500"
  moneyai tx list --limit 10 --sort amount`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		sortBy, _ := cmd.Flags().GetString("sort")
		asc, _ := cmd.Flags().GetBool("asc")
		jsonOut, _ := cmd.Flags().GetBool("json")

		queryStr := strings.Join(args, " ")
		txs, err := query.Execute(database, queryStr, query.ExecuteOptions{
			Limit:    limit,
			SortBy:   sortBy,
			SortDesc: !asc,
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut {
			return output.JSON(txs)
		}

		if len(txs) == 0 {
			fmt.Println("No transactions found.")
			return nil
		}

		for i := range txs {
			fmt.Println(output.FormatTransactionShort(&txs[i]))
		}
		fmt.Println(output.Faint(fmt.Sprintf("%d transaction(s)", len(txs))))
		return nil
	},
}

var txShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one transaction in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "tx-")
		tx, err := database.GetTransaction(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(tx)
		}

		fmt.Print(output.FormatTransactionLong(tx))
		return nil
	},
}

var txDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a transaction (soft delete, restorable)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "tx-")
		tx, err := database.GetTransaction(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			summary := fmt.Sprintf("%s %s %s", tx.ID, tx.Amount, tx.Category)
			if !confirmPrompt(fmt.Sprintf("Delete %s?", summary)) {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := database.DeleteTransaction(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("DELETED %s (restore with: moneyai tx restore %s)\n", id, id)
		return nil
	},
}

var txRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a deleted transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "tx-")
		if err := database.RestoreTransaction(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("RESTORED %s\n", id)
		return nil
	},
}

var txSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Income, spending and per-category totals for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		periodStr, _ := cmd.Flags().GetString("period")
		period := models.NormalizePeriod(periodStr)
		if !models.IsValidPeriod(period) {
			output.Error("invalid period: %s (valid: weekly, monthly, quarterly, yearly)", periodStr)
			return fmt.Errorf("invalid period: %s", periodStr)
		}

		now := time.Now()
		from := models.PeriodStart(period, now)
		to := models.PeriodEnd(period, now)

		income, err := database.SumTransactions(db.ListTransactionsOptions{
			Type: models.TransactionIncome, From: from, To: to,
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		expense, err := database.SumTransactions(db.ListTransactionsOptions{
			Type: models.TransactionExpense, From: from, To: to,
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		byCategory, err := database.CategoryTotals(models.TransactionExpense, from, to)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		net := income.Sub(expense)

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(map[string]interface{}{
				"period":      period,
				"from":        from,
				"to":          to,
				"income":      income,
				"expense":     expense,
				"net":         net,
				"by_category": byCategory,
			})
		}

		fmt.Println(output.SectionHeader(fmt.Sprintf("Summary %s to %s",
			output.FormatDate(from), output.FormatDate(to.AddDate(0, 0, -1)))))
		fmt.Printf("Income:   %s\n", output.FormatMoney(income))
		fmt.Printf("Expenses: %s\n", output.FormatMoney(expense))
		fmt.Printf("Net:      %s\n", output.FormatMoney(net))

		if len(byCategory) > 0 {
			fmt.Println()
			fmt.Println(output.SectionHeader("Spending by category"))
			for _, category := range sortedCategoryKeys(byCategory) {
				total := byCategory[category]
				pct := total.PercentOf(expense)
				fmt.Printf("%-16s %12s  %s %s\n", category,
					output.FormatMoney(total),
					output.ProgressBar(pct, 20),
					output.FormatPercent(pct))
			}
		}
		return nil
	},
}

// sortedCategoryKeys orders categories by descending total so the biggest
// spend lands first.
func sortedCategoryKeys(totals map[string]models.Money) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys)-1; i++ {
		for j := i + 1; j < len(keys); j++ {
			if totals[keys[j]].Cmp(totals[keys[i]]) > 0 {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txListCmd)
	txCmd.AddCommand(txShowCmd)
	txCmd.AddCommand(txDeleteCmd)
	txCmd.AddCommand(txRestoreCmd)
	txCmd.AddCommand(txSummaryCmd)

	txAddCmd.Flags().StringP("type", "t", "", "Transaction type (income, expense; default expense)")
	txAddCmd.Flags().StringP("category", "c", "", "Category (default uncategorized)")
	txAddCmd.Flags().StringP("merchant", "m", "", "Merchant or payee")
	txAddCmd.Flags().StringP("note", "n", "", "Free-form note (- for stdin, @file to read a file)")
	txAddCmd.Flags().StringP("date", "d", "", "When it happened (default today)")
	txAddCmd.Flags().StringP("account", "a", "", "Account label")

	txListCmd.Flags().Int("limit", 50, "Maximum rows (0 = no limit)")
	txListCmd.Flags().String("sort", "date", "Sort field (date, amount, category)")
	txListCmd.Flags().Bool("asc", false, "Sort ascending instead of descending")
	txListCmd.Flags().Bool("json", false, "Output JSON")

	txShowCmd.Flags().Bool("json", false, "Output JSON")

	txDeleteCmd.Flags().Bool("yes", false, "Skip confirmation")

	txSummaryCmd.Flags().StringP("period", "p", "monthly", "Period (weekly, monthly, quarterly, yearly)")
	txSummaryCmd.Flags().Bool("json", false, "Output JSON")
}
