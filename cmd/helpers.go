package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/dateparse"
	"github.com/zmrishh/moneyai/internal/db"
	"github.com/zmrishh/moneyai/internal/input"
	"github.com/zmrishh/moneyai/internal/models"
	"github.com/zmrishh/moneyai/internal/output"
	"github.com/zmrishh/moneyai/internal/suggest"
)

// ledgerCurrency resolves the configured display currency, defaulting to INR.
func ledgerCurrency() string {
	c, err := config.Currency(getBaseDir())
	if err != nil || c == "" {
		return models.DefaultCurrency
	}
	return c
}

// parseAmountArg parses a money amount from a CLI argument. "-" reads the
// value from stdin so amounts can be piped in.
func parseAmountArg(raw string) (models.Money, error) {
	expanded, _ := input.ExpandString(raw, false)
	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return models.Money{}, fmt.Errorf("amount is required")
	}
	m, err := models.ParseMoney(expanded, ledgerCurrency())
	if err != nil {
		return models.Money{}, fmt.Errorf("invalid amount %q: %w", expanded, err)
	}
	return m, nil
}

// parseDateValue parses natural-language dates ("today", "+3d", "friday",
// "2026-01-15") into a time. Empty input means now.
func parseDateValue(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Now(), nil
	}
	iso, err := dateparse.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return dateparse.ToTime(iso)
}

// confirmPrompt asks a y/N question and reads the answer from stdin.
func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// hintCategoryTypo warns when a category looks like a typo of one the user
// already uses. New categories are always allowed; this is only a hint.
func hintCategoryTypo(database *db.DB, category string) {
	known, err := database.Categories()
	if err != nil || len(known) == 0 {
		return
	}
	if matches := suggest.Categories(category, known); len(matches) > 0 {
		output.Warning("new category %q (did you mean %s?)", category, strings.Join(matches, ", "))
	}
}
