package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// ListDebtsOptions contains filter options for listing debts
type ListDebtsOptions struct {
	Kind           models.DebtKind
	Outstanding    bool
	IncludeSettled bool
}

// CreateDebt creates a new debt. Remaining starts at the full principal.
func (db *DB) CreateDebt(d *models.Debt) error {
	return db.withWriteLock(func() error {
		if !models.IsValidDebtKind(d.Kind) {
			return fmt.Errorf("invalid debt kind: %s", d.Kind)
		}
		if !d.Principal.IsPositive() {
			return fmt.Errorf("debt principal must be positive")
		}
		if d.Principal.Currency == "" {
			d.Principal.Currency = models.DefaultCurrency
		}
		d.Remaining = d.Principal
		d.Settled = false
		d.SettledAt = nil

		now := time.Now()
		d.CreatedAt = now
		d.UpdatedAt = now

		const maxRetries = 3
		for attempt := 0; attempt < maxRetries; attempt++ {
			id, err := generateDebtID()
			if err != nil {
				return err
			}
			d.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO debts (id, name, kind, counterparty, principal, remaining, currency, due_date, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, d.ID, d.Name, d.Kind, d.Counterparty, d.Principal.StoreAmount(), d.Remaining.StoreAmount(), d.Principal.Currency, d.DueDate, d.CreatedAt, d.UpdatedAt)

			if err == nil {
				_ = db.logActivity(models.ActionCreate, models.EntityDebt, d.ID, map[string]interface{}{
					"name": d.Name, "kind": string(d.Kind), "principal": d.Principal.String(),
				})
				return nil
			}
			if !strings.Contains(err.Error(), "UNIQUE constraint") {
				return err
			}
		}
		return fmt.Errorf("failed to generate unique debt ID after %d attempts", maxRetries)
	})
}

const debtColumns = `id, name, kind, counterparty, principal, remaining, currency, due_date, settled_at, created_at, updated_at`

func scanDebt(row rowScanner) (*models.Debt, error) {
	var d models.Debt
	var principal, remaining, currency string
	var counterparty sql.NullString
	var dueDate, settledAt sql.NullTime

	err := row.Scan(&d.ID, &d.Name, &d.Kind, &counterparty, &principal, &remaining, &currency, &dueDate, &settledAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Principal, err = models.MoneyFromStore(principal, currency)
	if err != nil {
		return nil, fmt.Errorf("debt %s: %w", d.ID, err)
	}
	d.Remaining, err = models.MoneyFromStore(remaining, currency)
	if err != nil {
		return nil, fmt.Errorf("debt %s: %w", d.ID, err)
	}
	d.Counterparty = counterparty.String
	if dueDate.Valid {
		d.DueDate = &dueDate.Time
	}
	if settledAt.Valid {
		d.Settled = true
		d.SettledAt = &settledAt.Time
	}
	return &d, nil
}

// GetDebt retrieves a debt by ID
func (db *DB) GetDebt(id string) (*models.Debt, error) {
	id = NormalizeID(id, debtIDPrefix)
	row := db.conn.QueryRow(`SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debt not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDebts returns debts matching the filter options. Settled debts are
// hidden unless asked for.
func (db *DB) ListDebts(opts ListDebtsOptions) ([]models.Debt, error) {
	var conditions []string
	var args []interface{}

	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Outstanding || !opts.IncludeSettled {
		conditions = append(conditions, "settled_at IS NULL")
	}

	query := `SELECT ` + debtColumns + ` FROM debts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debts []models.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, *d)
	}
	return debts, rows.Err()
}

// UpdateDebt updates a debt's descriptive fields. Principal and remaining
// only move through payments.
func (db *DB) UpdateDebt(d *models.Debt) error {
	return db.withWriteLock(func() error {
		d.UpdatedAt = time.Now()
		result, err := db.conn.Exec(`
			UPDATE debts SET name = ?, counterparty = ?, due_date = ?, updated_at = ? WHERE id = ?
		`, d.Name, d.Counterparty, d.DueDate, d.UpdatedAt, d.ID)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("debt not found: %s", d.ID)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityDebt, d.ID, nil)
		return nil
	})
}

// DeleteDebt removes a debt and its payment history
func (db *DB) DeleteDebt(id string) error {
	id = NormalizeID(id, debtIDPrefix)
	return db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`DELETE FROM debt_payments WHERE debt_id = ?`, id); err != nil {
			return err
		}
		result, err := db.conn.Exec(`DELETE FROM debts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("debt not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntityDebt, id, nil)
		return nil
	})
}

// RecordDebtPayment applies a payment to a debt. The amount must be positive
// and no larger than the remaining balance. When the balance reaches zero the
// debt is settled.
func (db *DB) RecordDebtPayment(debtID string, amount models.Money, note string, paidAt time.Time) (*models.Debt, error) {
	debtID = NormalizeID(debtID, debtIDPrefix)
	var updated *models.Debt

	err := db.withWriteLock(func() error {
		row := db.conn.QueryRow(`SELECT `+debtColumns+` FROM debts WHERE id = ?`, debtID)
		debt, err := scanDebt(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("debt not found: %s", debtID)
		}
		if err != nil {
			return err
		}
		if debt.Settled {
			return fmt.Errorf("debt already settled: %s", debtID)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("payment must be positive")
		}
		if amount.Cmp(debt.Remaining) > 0 {
			return fmt.Errorf("payment %s exceeds remaining balance %s", amount, debt.Remaining)
		}

		if paidAt.IsZero() {
			paidAt = time.Now()
		}
		if _, err := db.conn.Exec(`
			INSERT INTO debt_payments (debt_id, amount, currency, note, paid_at) VALUES (?, ?, ?, ?, ?)
		`, debtID, amount.StoreAmount(), amount.Currency, note, paidAt); err != nil {
			return err
		}

		remaining := debt.Remaining.Sub(amount)
		now := time.Now()
		if remaining.IsZero() {
			if _, err := db.conn.Exec(`
				UPDATE debts SET remaining = ?, settled_at = ?, updated_at = ? WHERE id = ?
			`, remaining.StoreAmount(), now, now, debtID); err != nil {
				return err
			}
			debt.Settled = true
			debt.SettledAt = &now
		} else {
			if _, err := db.conn.Exec(`
				UPDATE debts SET remaining = ?, updated_at = ? WHERE id = ?
			`, remaining.StoreAmount(), now, debtID); err != nil {
				return err
			}
		}
		debt.Remaining = remaining
		debt.UpdatedAt = now
		updated = debt
		_ = db.logActivity(models.ActionPay, models.EntityDebt, debtID, map[string]interface{}{
			"amount":    amount.String(),
			"remaining": remaining.String(),
		})
		if debt.Settled {
			_ = db.logActivity(models.ActionSettle, models.EntityDebt, debtID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListDebtPayments returns payments against a debt, newest first
func (db *DB) ListDebtPayments(debtID string) ([]models.DebtPayment, error) {
	debtID = NormalizeID(debtID, debtIDPrefix)
	rows, err := db.conn.Query(`
		SELECT id, debt_id, amount, currency, note, paid_at FROM debt_payments
		WHERE debt_id = ? ORDER BY paid_at DESC
	`, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.DebtPayment
	for rows.Next() {
		var p models.DebtPayment
		var amount, currency string
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.DebtID, &amount, &currency, &note, &p.PaidAt); err != nil {
			return nil, err
		}
		p.Amount, err = models.MoneyFromStore(amount, currency)
		if err != nil {
			return nil, err
		}
		p.Note = note.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
