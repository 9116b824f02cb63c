package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// ListTransactionsOptions contains filter options for listing transactions
type ListTransactionsOptions struct {
	Type           models.TransactionType
	Categories     []string
	Source         models.TransactionSource
	Account        string
	Search         string
	From           time.Time
	To             time.Time
	IncludeDeleted bool
	OnlyDeleted    bool
	SortBy         string
	SortDesc       bool
	Limit          int
	IDs            []string
}

// CreateTransaction creates a new transaction
func (db *DB) CreateTransaction(tx *models.Transaction) error {
	return db.withWriteLock(func() error {
		if tx.Type == "" {
			tx.Type = models.TransactionExpense
		}
		if tx.Source == "" {
			tx.Source = models.SourceManual
		}
		if tx.Amount.Currency == "" {
			tx.Amount.Currency = models.DefaultCurrency
		}

		now := time.Now()
		if tx.OccurredAt.IsZero() {
			tx.OccurredAt = now
		}
		tx.CreatedAt = now
		tx.UpdatedAt = now

		// Retry loop for rare ID collisions (6 hex chars = 16.7M keyspace)
		const maxRetries = 3
		for attempt := 0; attempt < maxRetries; attempt++ {
			id, err := generateTransactionID()
			if err != nil {
				return err
			}
			tx.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO transactions (id, type, amount, currency, category, merchant, account, note, source, aa_transaction_id, occurred_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, tx.ID, tx.Type, tx.Amount.StoreAmount(), tx.Amount.Currency, tx.Category, tx.Merchant, tx.Account, tx.Note, tx.Source, tx.AATransactionID, tx.OccurredAt, tx.CreatedAt, tx.UpdatedAt)

			if err == nil {
				_ = db.logActivity(models.ActionCreate, models.EntityTransaction, tx.ID, map[string]interface{}{
					"type": string(tx.Type), "amount": tx.Amount.String(), "category": tx.Category,
				})
				return nil
			}
			// Only retry on UNIQUE constraint violation (ID collision)
			if !strings.Contains(err.Error(), "UNIQUE constraint") {
				return err
			}
			if strings.Contains(err.Error(), "aa_transaction_id") {
				return fmt.Errorf("transaction %s already imported", tx.AATransactionID)
			}
		}
		return fmt.Errorf("failed to generate unique transaction ID after %d attempts", maxRetries)
	})
}

const transactionColumns = `id, type, amount, currency, category, merchant, account, note, source, aa_transaction_id, occurred_at, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var amount, currency string
	var merchant, account, note, aaID sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&tx.ID, &tx.Type, &amount, &currency, &tx.Category, &merchant, &account, &note,
		&tx.Source, &aaID, &tx.OccurredAt, &tx.CreatedAt, &tx.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = models.MoneyFromStore(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Merchant = merchant.String
	tx.Account = account.String
	tx.Note = note.String
	tx.AATransactionID = aaID.String
	if deletedAt.Valid {
		tx.DeletedAt = &deletedAt.Time
	}
	return &tx, nil
}

// GetTransaction retrieves a transaction by ID
// Accepts bare IDs without the tx- prefix (e.g., "a1b2c3" becomes "tx-a1b2c3")
func (db *DB) GetTransaction(id string) (*models.Transaction, error) {
	id = NormalizeID(id, txIDPrefix)
	row := db.conn.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns transactions matching the filter options,
// newest first unless overridden by SortBy
func (db *DB) ListTransactions(opts ListTransactionsOptions) ([]models.Transaction, error) {
	var conditions []string
	var args []interface{}

	if opts.OnlyDeleted {
		conditions = append(conditions, "deleted_at IS NOT NULL")
	} else if !opts.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, opts.Type)
	}
	if len(opts.Categories) > 0 {
		placeholders := make([]string, len(opts.Categories))
		for i, c := range opts.Categories {
			placeholders[i] = "?"
			args = append(args, c)
		}
		conditions = append(conditions, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if opts.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.Account != "" {
		conditions = append(conditions, "account = ?")
		args = append(args, opts.Account)
	}
	if opts.Search != "" {
		conditions = append(conditions, "(note LIKE ? OR merchant LIKE ? OR category LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if !opts.From.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.From)
	}
	if !opts.To.IsZero() {
		conditions = append(conditions, "occurred_at < ?")
		args = append(args, opts.To)
	}
	if len(opts.IDs) > 0 {
		placeholders := make([]string, len(opts.IDs))
		for i, id := range opts.IDs {
			placeholders[i] = "?"
			args = append(args, NormalizeID(id, txIDPrefix))
		}
		conditions = append(conditions, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ",")))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "occurred_at"
	switch opts.SortBy {
	case "created", "created_at":
		sortBy = "created_at"
	case "category":
		sortBy = "category"
	case "amount":
		// amounts are stored as decimal strings; cast for numeric ordering
		sortBy = "CAST(amount AS REAL)"
	}
	direction := "DESC"
	if opts.SortBy != "" && !opts.SortDesc {
		direction = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// UpdateTransaction updates an existing transaction
func (db *DB) UpdateTransaction(tx *models.Transaction) error {
	return db.withWriteLock(func() error {
		tx.UpdatedAt = time.Now()
		result, err := db.conn.Exec(`
			UPDATE transactions
			SET type = ?, amount = ?, currency = ?, category = ?, merchant = ?, account = ?, note = ?, occurred_at = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL
		`, tx.Type, tx.Amount.StoreAmount(), tx.Amount.Currency, tx.Category, tx.Merchant, tx.Account, tx.Note, tx.OccurredAt, tx.UpdatedAt, tx.ID)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("transaction not found: %s", tx.ID)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityTransaction, tx.ID, nil)
		return nil
	})
}

// DeleteTransaction soft-deletes a transaction
func (db *DB) DeleteTransaction(id string) error {
	id = NormalizeID(id, txIDPrefix)
	return db.withWriteLock(func() error {
		result, err := db.conn.Exec(`
			UPDATE transactions SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
		`, time.Now(), time.Now(), id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("transaction not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntityTransaction, id, nil)
		return nil
	})
}

// RestoreTransaction clears the soft-delete marker
func (db *DB) RestoreTransaction(id string) error {
	id = NormalizeID(id, txIDPrefix)
	return db.withWriteLock(func() error {
		result, err := db.conn.Exec(`
			UPDATE transactions SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL
		`, time.Now(), id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("no deleted transaction: %s", id)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityTransaction, id, map[string]interface{}{"restored": true})
		return nil
	})
}

// ImportTransactions inserts fetched gateway transactions, skipping ones
// already present by their aa_transaction_id. Returns (inserted, skipped).
func (db *DB) ImportTransactions(txs []models.Transaction) (int, int, error) {
	inserted, skipped := 0, 0
	err := db.withWriteLock(func() error {
		for i := range txs {
			tx := &txs[i]
			if tx.AATransactionID == "" {
				return fmt.Errorf("imported transaction missing gateway id")
			}
			var exists int
			err := db.conn.QueryRow(`SELECT COUNT(*) FROM transactions WHERE aa_transaction_id = ?`, tx.AATransactionID).Scan(&exists)
			if err != nil {
				return err
			}
			if exists > 0 {
				skipped++
				continue
			}

			if tx.Type == "" {
				tx.Type = models.TransactionExpense
			}
			tx.Source = models.SourceAA
			now := time.Now()
			tx.CreatedAt = now
			tx.UpdatedAt = now

			id, err := generateTransactionID()
			if err != nil {
				return err
			}
			tx.ID = id
			_, err = db.conn.Exec(`
				INSERT INTO transactions (id, type, amount, currency, category, merchant, account, note, source, aa_transaction_id, occurred_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, tx.ID, tx.Type, tx.Amount.StoreAmount(), tx.Amount.Currency, tx.Category, tx.Merchant, tx.Account, tx.Note, tx.Source, tx.AATransactionID, tx.OccurredAt, tx.CreatedAt, tx.UpdatedAt)
			if err != nil {
				return err
			}
			_ = db.logActivity(models.ActionCreate, models.EntityTransaction, tx.ID, map[string]interface{}{
				"source": string(models.SourceAA), "aa_transaction_id": tx.AATransactionID,
			})
			inserted++
		}
		return nil
	})
	return inserted, skipped, err
}

// CategoryTotals sums transaction amounts per category over [from, to).
// Amounts are summed in Go to keep decimal arithmetic exact.
func (db *DB) CategoryTotals(txType models.TransactionType, from, to time.Time) (map[string]models.Money, error) {
	rows, err := db.conn.Query(`
		SELECT category, amount, currency FROM transactions
		WHERE deleted_at IS NULL AND type = ? AND occurred_at >= ? AND occurred_at < ?
	`, txType, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]models.Money)
	for rows.Next() {
		var category, amount, currency string
		if err := rows.Scan(&category, &amount, &currency); err != nil {
			return nil, err
		}
		m, err := models.MoneyFromStore(amount, currency)
		if err != nil {
			return nil, err
		}
		if existing, ok := totals[category]; ok {
			totals[category] = existing.Add(m)
		} else {
			totals[category] = m
		}
	}
	return totals, rows.Err()
}

// SumTransactions returns the exact total of all transactions matching opts.
func (db *DB) SumTransactions(opts ListTransactionsOptions) (models.Money, error) {
	txs, err := db.ListTransactions(opts)
	if err != nil {
		return models.Money{}, err
	}
	total := models.NewMoneyZero(models.DefaultCurrency)
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total, nil
}

// Categories returns the distinct categories used by live transactions,
// sorted alphabetically. Used for typo suggestions on entry.
func (db *DB) Categories() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT category FROM transactions
		WHERE deleted_at IS NULL AND category != ''
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
