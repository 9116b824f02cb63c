package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/backend"
	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/input"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var chatCmd = &cobra.Command{
	Use:     "chat <prompt>",
	Aliases: []string{"ask"},
	Short:   "Ask the AI about your money",
	GroupID: "ai",
	Long: `Sends your question to the moneyAI backend along with a compact summary
of your ledger (totals, budgets, upcoming bills, debts, goals) so answers
can reference your actual numbers. Use --no-context to send the question
alone. The prompt may be "-" to read from stdin or "@file" to read a file.`,
	Example: `  moneyai chat "how much did I spend on dining this month?"
  moneyai chat "can I afford a 40k trip in December?"
  cat question.txt | moneyai chat -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		token, err := config.AuthToken(baseDir)
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		if token == "" {
			output.Error("not logged in: run 'moneyai auth login' first")
			return fmt.Errorf("not authenticated")
		}

		prompt, _ := input.ExpandString(strings.Join(args, " "), false)
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			output.Error("empty prompt")
			return fmt.Errorf("empty prompt")
		}

		var ledgerCtx string
		if noCtx, _ := cmd.Flags().GetBool("no-context"); !noCtx {
			database, err := db.Open(baseDir)
			if err == nil {
				ledgerCtx = ledgerContext(database)
				database.Close()
			}
		}

		backendURL, err := config.BackendURL(baseDir)
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		client := backend.New(backendURL, token, "")

		resp, err := client.Chat([]backend.ChatMessage{
			{Role: "user", Content: prompt},
		}, ledgerCtx)
		if err != nil {
			output.Error("chat: %v", err)
			return err
		}

		rendered, err := output.RenderMarkdown(resp.Reply)
		if err != nil {
			fmt.Println(resp.Reply)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

// ledgerContext builds the compact financial summary sent alongside chat
// prompts. Best effort: any section that fails to load is skipped.
func ledgerContext(database *db.DB) string {
	var sb strings.Builder
	now := time.Now()
	currency := ledgerCurrency()

	fmt.Fprintf(&sb, "Date: %s. Currency: %s.\n", output.FormatDate(now), currency)

	from := models.PeriodStart(models.PeriodMonthly, now)
	to := models.PeriodEnd(models.PeriodMonthly, now)
	income, ierr := database.SumTransactions(db.ListTransactionsOptions{
		Type: models.TransactionIncome, From: from, To: to,
	})
	expense, eerr := database.SumTransactions(db.ListTransactionsOptions{
		Type: models.TransactionExpense, From: from, To: to,
	})
	if ierr == nil && eerr == nil {
		fmt.Fprintf(&sb, "This month: income %s, expenses %s, net %s.\n",
			income, expense, income.Sub(expense))
	}

	if totals, err := database.CategoryTotals(models.TransactionExpense, from, to); err == nil && len(totals) > 0 {
		var parts []string
		for _, category := range sortedCategoryKeys(totals) {
			parts = append(parts, fmt.Sprintf("%s %s", category, totals[category]))
			if len(parts) == 5 {
				break
			}
		}
		fmt.Fprintf(&sb, "Top spending: %s.\n", strings.Join(parts, ", "))
	}

	if progress, err := database.AllBudgetProgress(now); err == nil && len(progress) > 0 {
		var parts []string
		for _, p := range progress {
			parts = append(parts, fmt.Sprintf("%s %.0f%% of %s", p.Budget.Category, p.Percent, p.Budget.Amount))
		}
		fmt.Fprintf(&sb, "Budgets: %s.\n", strings.Join(parts, ", "))
	}

	if bills, err := database.ListBills(db.ListBillsOptions{Unpaid: true, DueWithinDays: 30}); err == nil && len(bills) > 0 {
		var parts []string
		for _, b := range bills {
			parts = append(parts, fmt.Sprintf("%s %s due %s", b.Name, b.Amount, output.FormatDate(b.DueDate)))
		}
		fmt.Fprintf(&sb, "Bills next 30 days: %s.\n", strings.Join(parts, ", "))
	}

	if debts, err := database.ListDebts(db.ListDebtsOptions{}); err == nil && len(debts) > 0 {
		owe := models.NewMoneyZero(currency)
		owed := models.NewMoneyZero(currency)
		for _, d := range debts {
			if d.Kind == models.DebtOwe {
				owe = owe.Add(d.Remaining)
			} else {
				owed = owed.Add(d.Remaining)
			}
		}
		fmt.Fprintf(&sb, "Debts: owe %s, owed %s.\n", owe, owed)
	}

	if goals, err := database.ListGoals(false); err == nil && len(goals) > 0 {
		var parts []string
		for _, g := range goals {
			parts = append(parts, fmt.Sprintf("%s %s of %s", g.Name, g.Saved, g.Target))
		}
		fmt.Fprintf(&sb, "Goals: %s.\n", strings.Join(parts, ", "))
	}

	if conns, err := database.ListConnections(); err == nil && len(conns) > 0 {
		var parts []string
		for _, c := range conns {
			parts = append(parts, fmt.Sprintf("%s %s (%s)", c.FIPName, c.MaskedAccountNumber, c.ConsentStatus))
		}
		fmt.Fprintf(&sb, "Linked accounts: %s.\n", strings.Join(parts, ", "))
	}

	return sb.String()
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("no-context", false, "Do not attach the ledger summary")
}
