package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// CreateBudget creates a new budget. One budget per (category, period).
func (db *DB) CreateBudget(b *models.Budget) error {
	return db.withWriteLock(func() error {
		if b.Period == "" {
			b.Period = models.PeriodMonthly
		}
		if !models.IsValidPeriod(b.Period) {
			return fmt.Errorf("invalid period: %s", b.Period)
		}
		if b.AlertThreshold == 0 {
			b.AlertThreshold = 80
		}
		if b.Amount.Currency == "" {
			b.Amount.Currency = models.DefaultCurrency
		}

		now := time.Now()
		b.CreatedAt = now
		b.UpdatedAt = now

		const maxRetries = 3
		for attempt := 0; attempt < maxRetries; attempt++ {
			id, err := generateBudgetID()
			if err != nil {
				return err
			}
			b.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO budgets (id, category, amount, currency, period, alert_threshold, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, b.ID, b.Category, b.Amount.StoreAmount(), b.Amount.Currency, b.Period, b.AlertThreshold, b.CreatedAt, b.UpdatedAt)

			if err == nil {
				_ = db.logActivity(models.ActionCreate, models.EntityBudget, b.ID, map[string]interface{}{
					"category": b.Category, "amount": b.Amount.String(), "period": string(b.Period),
				})
				return nil
			}
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				if strings.Contains(err.Error(), "budgets.category") {
					return fmt.Errorf("budget already exists for %s (%s)", b.Category, b.Period)
				}
				continue // ID collision, retry
			}
			return err
		}
		return fmt.Errorf("failed to generate unique budget ID after %d attempts", maxRetries)
	})
}

func scanBudget(row rowScanner) (*models.Budget, error) {
	var b models.Budget
	var amount, currency string
	err := row.Scan(&b.ID, &b.Category, &amount, &currency, &b.Period, &b.AlertThreshold, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Amount, err = models.MoneyFromStore(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("budget %s: %w", b.ID, err)
	}
	return &b, nil
}

// GetBudget retrieves a budget by ID
func (db *DB) GetBudget(id string) (*models.Budget, error) {
	id = NormalizeID(id, bgIDPrefix)
	row := db.conn.QueryRow(`
		SELECT id, category, amount, currency, period, alert_threshold, created_at, updated_at
		FROM budgets WHERE id = ?
	`, id)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("budget not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBudgetByCategory finds the budget for a category and period
func (db *DB) GetBudgetByCategory(category string, period models.Period) (*models.Budget, error) {
	row := db.conn.QueryRow(`
		SELECT id, category, amount, currency, period, alert_threshold, created_at, updated_at
		FROM budgets WHERE category = ? AND period = ?
	`, category, period)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no %s budget for category: %s", period, category)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBudgets returns all budgets ordered by category
func (db *DB) ListBudgets() ([]models.Budget, error) {
	rows, err := db.conn.Query(`
		SELECT id, category, amount, currency, period, alert_threshold, created_at, updated_at
		FROM budgets ORDER BY category, period
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// UpdateBudget updates an existing budget
func (db *DB) UpdateBudget(b *models.Budget) error {
	return db.withWriteLock(func() error {
		b.UpdatedAt = time.Now()
		result, err := db.conn.Exec(`
			UPDATE budgets SET category = ?, amount = ?, currency = ?, period = ?, alert_threshold = ?, updated_at = ?
			WHERE id = ?
		`, b.Category, b.Amount.StoreAmount(), b.Amount.Currency, b.Period, b.AlertThreshold, b.UpdatedAt, b.ID)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				return fmt.Errorf("budget already exists for %s (%s)", b.Category, b.Period)
			}
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("budget not found: %s", b.ID)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityBudget, b.ID, map[string]interface{}{
			"amount": b.Amount.String(),
		})
		return nil
	})
}

// DeleteBudget removes a budget
func (db *DB) DeleteBudget(id string) error {
	id = NormalizeID(id, bgIDPrefix)
	return db.withWriteLock(func() error {
		result, err := db.conn.Exec(`DELETE FROM budgets WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("budget not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntityBudget, id, nil)
		return nil
	})
}

// BudgetProgress computes spending against a budget for the period containing now
func (db *DB) BudgetProgress(b models.Budget, now time.Time) (models.BudgetProgress, error) {
	from := models.PeriodStart(b.Period, now)
	to := models.PeriodEnd(b.Period, now)

	spent, err := db.SumTransactions(ListTransactionsOptions{
		Type:       models.TransactionExpense,
		Categories: []string{b.Category},
		From:       from,
		To:         to,
	})
	if err != nil {
		return models.BudgetProgress{}, err
	}

	return models.BudgetProgress{
		Budget:  b,
		Spent:   spent,
		Percent: spent.PercentOf(b.Amount),
		From:    from,
		To:      to,
	}, nil
}

// AllBudgetProgress computes progress for every budget
func (db *DB) AllBudgetProgress(now time.Time) ([]models.BudgetProgress, error) {
	budgets, err := db.ListBudgets()
	if err != nil {
		return nil, err
	}

	progress := make([]models.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := db.BudgetProgress(b, now)
		if err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, nil
}
