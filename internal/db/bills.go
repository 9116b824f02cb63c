package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// ListBillsOptions contains filter options for listing bills
type ListBillsOptions struct {
	Unpaid        bool
	Paid          bool
	Overdue       bool
	DueWithinDays int
	Category      string
}

// CreateBill creates a new bill
func (db *DB) CreateBill(b *models.Bill) error {
	return db.withWriteLock(func() error {
		if b.Recurrence == "" {
			b.Recurrence = models.RecurNone
		}
		if !models.IsValidRecurrence(b.Recurrence) {
			return fmt.Errorf("invalid recurrence: %s", b.Recurrence)
		}
		if b.ReminderDays == 0 {
			b.ReminderDays = 3
		}
		if b.Amount.Currency == "" {
			b.Amount.Currency = models.DefaultCurrency
		}
		if b.DueDate.IsZero() {
			return fmt.Errorf("bill needs a due date")
		}

		now := time.Now()
		b.CreatedAt = now
		b.UpdatedAt = now

		const maxRetries = 3
		for attempt := 0; attempt < maxRetries; attempt++ {
			id, err := generateBillID()
			if err != nil {
				return err
			}
			b.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO bills (id, name, amount, currency, category, due_date, recurrence, reminder_days, autopay, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, b.ID, b.Name, b.Amount.StoreAmount(), b.Amount.Currency, b.Category, b.DueDate, b.Recurrence, b.ReminderDays, b.Autopay, b.CreatedAt, b.UpdatedAt)

			if err == nil {
				_ = db.logActivity(models.ActionCreate, models.EntityBill, b.ID, map[string]interface{}{
					"name": b.Name, "amount": b.Amount.String(), "due": b.DueDate.Format("2006-01-02"),
				})
				return nil
			}
			if !strings.Contains(err.Error(), "UNIQUE constraint") {
				return err
			}
		}
		return fmt.Errorf("failed to generate unique bill ID after %d attempts", maxRetries)
	})
}

const billColumns = `id, name, amount, currency, category, due_date, recurrence, reminder_days, autopay, paid_at, created_at, updated_at`

func scanBill(row rowScanner) (*models.Bill, error) {
	var b models.Bill
	var amount, currency string
	var category sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(&b.ID, &b.Name, &amount, &currency, &category, &b.DueDate, &b.Recurrence, &b.ReminderDays, &b.Autopay, &paidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Amount, err = models.MoneyFromStore(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("bill %s: %w", b.ID, err)
	}
	b.Category = category.String
	if paidAt.Valid {
		b.Paid = true
		b.PaidAt = &paidAt.Time
	}
	return &b, nil
}

// GetBill retrieves a bill by ID
func (db *DB) GetBill(id string) (*models.Bill, error) {
	id = NormalizeID(id, billIDPrefix)
	row := db.conn.QueryRow(`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBills returns bills matching the filter options, soonest due first
func (db *DB) ListBills(opts ListBillsOptions) ([]models.Bill, error) {
	var conditions []string
	var args []interface{}

	if opts.Unpaid {
		conditions = append(conditions, "paid_at IS NULL")
	}
	if opts.Paid {
		conditions = append(conditions, "paid_at IS NOT NULL")
	}
	if opts.Overdue {
		conditions = append(conditions, "paid_at IS NULL AND due_date < ?")
		args = append(args, time.Now())
	}
	if opts.DueWithinDays > 0 {
		conditions = append(conditions, "paid_at IS NULL AND due_date <= ?")
		args = append(args, time.Now().AddDate(0, 0, opts.DueWithinDays))
	}
	if opts.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, opts.Category)
	}

	query := `SELECT ` + billColumns + ` FROM bills`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// UpdateBill updates an existing bill
func (db *DB) UpdateBill(b *models.Bill) error {
	return db.withWriteLock(func() error {
		b.UpdatedAt = time.Now()
		result, err := db.conn.Exec(`
			UPDATE bills SET name = ?, amount = ?, currency = ?, category = ?, due_date = ?, recurrence = ?, reminder_days = ?, autopay = ?, updated_at = ?
			WHERE id = ?
		`, b.Name, b.Amount.StoreAmount(), b.Amount.Currency, b.Category, b.DueDate, b.Recurrence, b.ReminderDays, b.Autopay, b.UpdatedAt, b.ID)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("bill not found: %s", b.ID)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityBill, b.ID, nil)
		return nil
	})
}

// DeleteBill removes a bill
func (db *DB) DeleteBill(id string) error {
	id = NormalizeID(id, billIDPrefix)
	return db.withWriteLock(func() error {
		result, err := db.conn.Exec(`DELETE FROM bills WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("bill not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntityBill, id, nil)
		return nil
	})
}

// PayBill marks a bill paid. For recurring bills the next instance is created
// in the same write, with the due date advanced by one recurrence interval.
// Returns the next instance, or nil for one-off bills.
func (db *DB) PayBill(id string, paidAt time.Time) (*models.Bill, error) {
	id = NormalizeID(id, billIDPrefix)
	var next *models.Bill

	err := db.withWriteLock(func() error {
		bill, err := db.getBillInternal(id)
		if err != nil {
			return err
		}
		if bill.Paid {
			return fmt.Errorf("bill already paid: %s", id)
		}

		if paidAt.IsZero() {
			paidAt = time.Now()
		}
		if _, err := db.conn.Exec(`UPDATE bills SET paid_at = ?, updated_at = ? WHERE id = ?`, paidAt, time.Now(), id); err != nil {
			return err
		}
		_ = db.logActivity(models.ActionPay, models.EntityBill, id, map[string]interface{}{
			"amount": bill.Amount.String(), "paid_at": paidAt.Format("2006-01-02"),
		})

		if bill.Recurrence == models.RecurNone {
			return nil
		}

		nextID, err := generateBillID()
		if err != nil {
			return err
		}
		now := time.Now()
		next = &models.Bill{
			ID:           nextID,
			Name:         bill.Name,
			Amount:       bill.Amount,
			Category:     bill.Category,
			DueDate:      models.NextRecurrence(bill.Recurrence, bill.DueDate),
			Recurrence:   bill.Recurrence,
			ReminderDays: bill.ReminderDays,
			Autopay:      bill.Autopay,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, err = db.conn.Exec(`
			INSERT INTO bills (id, name, amount, currency, category, due_date, recurrence, reminder_days, autopay, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, next.ID, next.Name, next.Amount.StoreAmount(), next.Amount.Currency, next.Category, next.DueDate, next.Recurrence, next.ReminderDays, next.Autopay, next.CreatedAt, next.UpdatedAt)
		if err != nil {
			return err
		}
		_ = db.logActivity(models.ActionCreate, models.EntityBill, next.ID, map[string]interface{}{
			"name": next.Name, "due": next.DueDate.Format("2006-01-02"), "recurred_from": id,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// getBillInternal reads a bill without taking the write lock
func (db *DB) getBillInternal(id string) (*models.Bill, error) {
	row := db.conn.QueryRow(`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill not found: %s", id)
	}
	return b, err
}
