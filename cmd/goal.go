package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
)

var goalCmd = &cobra.Command{
	Use:     "goal",
	Aliases: []string{"goals"},
	Short:   "Save toward goals and track progress",
	GroupID: "money",
}

var goalAddCmd = &cobra.Command{
	Use:   "add <name> <target>",
	Short: "Add a savings goal",
	Example: `  moneyai goal add "Emergency fund" 150000 --kind emergency
  moneyai goal add "Goa trip" 40000 --by 2026-12-15 --priority high`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseAmountArg(args[1])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		kindStr, _ := cmd.Flags().GetString("kind")
		kind := models.NormalizeGoalKind(kindStr)
		if !models.IsValidGoalKind(kind) {
			output.Error("invalid kind: %s (valid: savings, debt_payoff, investment, emergency_fund)", kindStr)
			return fmt.Errorf("invalid kind: %s", kindStr)
		}

		priorityStr, _ := cmd.Flags().GetString("priority")
		priority := models.GoalPriority(priorityStr)
		if !models.IsValidGoalPriority(priority) {
			output.Error("invalid priority: %s (valid: low, medium, high)", priorityStr)
			return fmt.Errorf("invalid priority: %s", priorityStr)
		}

		g := &models.Goal{
			Name:     args[0],
			Kind:     kind,
			Target:   target,
			Priority: priority,
		}

		if byStr, _ := cmd.Flags().GetString("by"); byStr != "" {
			by, err := parseDateValue(byStr)
			if err != nil {
				output.Error("invalid target date %q: %v", byStr, err)
				return err
			}
			g.TargetDate = &by
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		if err := database.CreateGoal(g); err != nil {
			output.Error("failed to add goal: %v", err)
			return err
		}

		fmt.Printf("ADDED %s (%s, target %s)\n", g.ID, g.Name, output.FormatMoney(g.Target))
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List goals with progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		all, _ := cmd.Flags().GetBool("all")
		goals, err := database.ListGoals(all)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(goals)
		}

		if len(goals) == 0 {
			fmt.Println("No goals yet. Try: moneyai goal add \"Emergency fund\" 150000")
			return nil
		}

		for _, g := range goals {
			pct := g.Saved.PercentOf(g.Target)
			line := fmt.Sprintf("%s %s %-20s %12s of %-12s %s %6s",
				output.Bold(g.ID), output.FormatPriority(g.Priority), g.Name,
				output.FormatMoney(g.Saved), output.FormatMoney(g.Target),
				output.ProgressBar(pct, 20), output.FormatPercent(pct))
			if g.Completed {
				line += "  " + output.Faint("✓ done")
			} else if g.TargetDate != nil {
				line += "  " + output.Faint("by "+output.FormatDate(*g.TargetDate))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var goalContributeCmd = &cobra.Command{
	Use:     "contribute <id> <amount>",
	Aliases: []string{"save"},
	Short:   "Add money toward a goal",
	Args:    cobra.ExactArgs(2),
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
		at, err := parseDateValue(dateStr)
		if err != nil {
			output.Error("invalid date %q: %v", dateStr, err)
			return err
		}

		id := db.NormalizeID(args[0], "gl-")
		g, milestones, err := database.ContributeToGoal(id, amount, note, at)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		pct := g.Saved.PercentOf(g.Target)
		fmt.Printf("SAVED %s toward %s (%s of %s, %s)\n",
			output.FormatMoney(amount), g.ID,
			output.FormatMoney(g.Saved), output.FormatMoney(g.Target),
			output.FormatPercent(pct))

		for _, m := range milestones {
			output.Success("Milestone: %d%% of %s", m, g.Name)
		}
		if g.Completed {
			output.Success("Goal %q complete.", g.Name)
		}
		return nil
	},
}

var goalHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show contributions to a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "gl-")
		contributions, err := database.ListGoalContributions(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if len(contributions) == 0 {
			fmt.Println("No contributions yet.")
			return nil
		}

		for _, c := range contributions {
			line := fmt.Sprintf("%s  %s", output.FormatDate(c.ContributedAt), output.FormatMoney(c.Amount))
			if c.Note != "" {
				line += "  " + output.Faint(c.Note)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var goalDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a goal and its contributions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		id := db.NormalizeID(args[0], "gl-")
		if err := database.DeleteGoal(id); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Printf("DELETED %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(goalCmd)
	goalCmd.AddCommand(goalAddCmd)
	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalContributeCmd)
	goalCmd.AddCommand(goalHistoryCmd)
	goalCmd.AddCommand(goalDeleteCmd)

	goalAddCmd.Flags().String("kind", "savings", "Goal kind (savings, debt_payoff, investment, emergency_fund)")
	goalAddCmd.Flags().String("by", "", "Target date")
	goalAddCmd.Flags().String("priority", "medium", "Priority (low, medium, high)")

	goalListCmd.Flags().Bool("all", false, "Include completed goals")
	goalListCmd.Flags().Bool("json", false, "Output JSON")

	goalContributeCmd.Flags().StringP("note", "n", "", "Contribution note")
	goalContributeCmd.Flags().String("date", "", "Contribution date (default today)")
}
