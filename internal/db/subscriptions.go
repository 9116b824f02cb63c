package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// ListSubscriptionsOptions contains filter options for listing subscriptions
type ListSubscriptionsOptions struct {
	ActiveOnly    bool
	DueWithinDays int
	Category      string
}

// CreateSubscription creates a new subscription
func (db *DB) CreateSubscription(s *models.Subscription) error {
	return db.withWriteLock(func() error {
		if s.BillingCycle == "" {
			s.BillingCycle = models.CycleMonthly
		}
		if !models.IsValidBillingCycle(s.BillingCycle) {
			return fmt.Errorf("invalid billing cycle: %s", s.BillingCycle)
		}
		if s.Amount.Currency == "" {
			s.Amount.Currency = models.DefaultCurrency
		}
		if s.NextBillingDate.IsZero() {
			s.NextBillingDate = models.NextBilling(s.BillingCycle, time.Now())
		}
		s.Active = true
		s.CancelledAt = nil

		now := time.Now()
		s.CreatedAt = now
		s.UpdatedAt = now

		const maxRetries = 3
		for attempt := 0; attempt < maxRetries; attempt++ {
			id, err := generateSubscriptionID()
			if err != nil {
				return err
			}
			s.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO subscriptions (id, name, amount, currency, billing_cycle, next_billing_date, category, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, s.ID, s.Name, s.Amount.StoreAmount(), s.Amount.Currency, s.BillingCycle, s.NextBillingDate, s.Category, s.CreatedAt, s.UpdatedAt)

			if err == nil {
				_ = db.logActivity(models.ActionCreate, models.EntitySubscription, s.ID, map[string]interface{}{
					"name":   s.Name,
					"amount": s.Amount.String(),
					"cycle":  string(s.BillingCycle),
				})
				return nil
			}
			if !strings.Contains(err.Error(), "UNIQUE constraint") {
				return err
			}
		}
		return fmt.Errorf("failed to generate unique subscription ID after %d attempts", maxRetries)
	})
}

const subscriptionColumns = `id, name, amount, currency, billing_cycle, next_billing_date, category, cancelled_at, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var s models.Subscription
	var amount, currency string
	var category sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(&s.ID, &s.Name, &amount, &currency, &s.BillingCycle, &s.NextBillingDate, &category, &cancelledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Amount, err = models.MoneyFromStore(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", s.ID, err)
	}
	s.Category = category.String
	s.Active = true
	if cancelledAt.Valid {
		s.Active = false
		s.CancelledAt = &cancelledAt.Time
	}
	return &s, nil
}

// GetSubscription retrieves a subscription by ID
func (db *DB) GetSubscription(id string) (*models.Subscription, error) {
	id = NormalizeID(id, subIDPrefix)
	row := db.conn.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSubscriptions returns subscriptions matching the filter options,
// next billing first
func (db *DB) ListSubscriptions(opts ListSubscriptionsOptions) ([]models.Subscription, error) {
	var conditions []string
	var args []interface{}

	if opts.ActiveOnly {
		conditions = append(conditions, "cancelled_at IS NULL")
	}
	if opts.DueWithinDays > 0 {
		conditions = append(conditions, "cancelled_at IS NULL AND next_billing_date <= ?")
		args = append(args, time.Now().AddDate(0, 0, opts.DueWithinDays))
	}
	if opts.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, opts.Category)
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY next_billing_date ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// UpdateSubscription updates name, category and billing date
func (db *DB) UpdateSubscription(s *models.Subscription) error {
	return db.withWriteLock(func() error {
		s.UpdatedAt = time.Now()
		result, err := db.conn.Exec(`
			UPDATE subscriptions SET name = ?, category = ?, billing_cycle = ?, next_billing_date = ?, updated_at = ? WHERE id = ?
		`, s.Name, s.Category, s.BillingCycle, s.NextBillingDate, s.UpdatedAt, s.ID)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("subscription not found: %s", s.ID)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntitySubscription, s.ID, nil)
		return nil
	})
}

// ChangeSubscriptionPrice updates the price and records the revision in the
// price history
func (db *DB) ChangeSubscriptionPrice(id string, newAmount models.Money) (*models.Subscription, error) {
	id = NormalizeID(id, subIDPrefix)
	var updated *models.Subscription

	err := db.withWriteLock(func() error {
		row := db.conn.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
		sub, err := scanSubscription(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("subscription not found: %s", id)
		}
		if err != nil {
			return err
		}
		if !newAmount.IsPositive() {
			return fmt.Errorf("price must be positive")
		}
		if newAmount.Currency == "" {
			newAmount.Currency = sub.Amount.Currency
		}
		if sub.Amount.Cmp(newAmount) == 0 {
			return fmt.Errorf("price unchanged: %s", sub.Amount)
		}

		now := time.Now()
		if _, err := db.conn.Exec(`
			INSERT INTO price_changes (subscription_id, old_amount, new_amount, currency, changed_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, sub.Amount.StoreAmount(), newAmount.StoreAmount(), newAmount.Currency, now); err != nil {
			return err
		}
		if _, err := db.conn.Exec(`
			UPDATE subscriptions SET amount = ?, currency = ?, updated_at = ? WHERE id = ?
		`, newAmount.StoreAmount(), newAmount.Currency, now, id); err != nil {
			return err
		}
		_ = db.logActivity(models.ActionUpdate, models.EntitySubscription, id, map[string]interface{}{
			"old": sub.Amount.String(),
			"new": newAmount.String(),
		})
		sub.Amount = newAmount
		sub.UpdatedAt = now
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RenewSubscription advances the next billing date by one cycle
func (db *DB) RenewSubscription(id string) (*models.Subscription, error) {
	id = NormalizeID(id, subIDPrefix)
	var updated *models.Subscription

	err := db.withWriteLock(func() error {
		row := db.conn.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
		sub, err := scanSubscription(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("subscription not found: %s", id)
		}
		if err != nil {
			return err
		}
		if !sub.Active {
			return fmt.Errorf("subscription cancelled: %s", id)
		}

		next := models.NextBilling(sub.BillingCycle, sub.NextBillingDate)
		now := time.Now()
		if _, err := db.conn.Exec(`
			UPDATE subscriptions SET next_billing_date = ?, updated_at = ? WHERE id = ?
		`, next, now, id); err != nil {
			return err
		}
		sub.NextBillingDate = next
		sub.UpdatedAt = now
		updated = sub
		_ = db.logActivity(models.ActionRenew, models.EntitySubscription, id, map[string]interface{}{
			"next": next.Format("2006-01-02"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelSubscription marks a subscription cancelled
func (db *DB) CancelSubscription(id string) error {
	id = NormalizeID(id, subIDPrefix)
	return db.withWriteLock(func() error {
		now := time.Now()
		result, err := db.conn.Exec(`
			UPDATE subscriptions SET cancelled_at = ?, updated_at = ? WHERE id = ? AND cancelled_at IS NULL
		`, now, now, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("no active subscription: %s", id)
		}
		_ = db.logActivity(models.ActionCancel, models.EntitySubscription, id, nil)
		return nil
	})
}

// DeleteSubscription removes a subscription and its price history
func (db *DB) DeleteSubscription(id string) error {
	id = NormalizeID(id, subIDPrefix)
	return db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`DELETE FROM price_changes WHERE subscription_id = ?`, id); err != nil {
			return err
		}
		result, err := db.conn.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("subscription not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntitySubscription, id, nil)
		return nil
	})
}

// ListPriceChanges returns the price history for a subscription, newest first
func (db *DB) ListPriceChanges(id string) ([]models.PriceChange, error) {
	id = NormalizeID(id, subIDPrefix)
	rows, err := db.conn.Query(`
		SELECT id, subscription_id, old_amount, new_amount, currency, changed_at
		FROM price_changes WHERE subscription_id = ? ORDER BY changed_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []models.PriceChange
	for rows.Next() {
		var pc models.PriceChange
		var oldAmount, newAmount, currency string
		if err := rows.Scan(&pc.ID, &pc.SubscriptionID, &oldAmount, &newAmount, &currency, &pc.ChangedAt); err != nil {
			return nil, err
		}
		pc.OldAmount, err = models.MoneyFromStore(oldAmount, currency)
		if err != nil {
			return nil, err
		}
		pc.NewAmount, err = models.MoneyFromStore(newAmount, currency)
		if err != nil {
			return nil, err
		}
		changes = append(changes, pc)
	}
	return changes, rows.Err()
}
