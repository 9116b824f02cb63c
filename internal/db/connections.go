package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// SaveConnections persists accounts linked through a completed journey.
// Re-linking an already known account (same account reference) refreshes its
// consent fields instead of duplicating the row.
func (db *DB) SaveConnections(conns []models.Connection) error {
	return db.withWriteLock(func() error {
		now := time.Now()
		for i := range conns {
			c := &conns[i]
			if c.AccountReference == "" {
				return fmt.Errorf("connection missing account reference")
			}
			if c.ConsentStatus == "" {
				c.ConsentStatus = models.ConsentActive
			}
			if c.LinkedAt.IsZero() {
				c.LinkedAt = now
			}

			id, err := generateConnectionID()
			if err != nil {
				return err
			}
			c.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO connections (id, fip_id, fip_name, account_reference, masked_account_number, account_type, fi_type, consent_id, consent_status, consent_expires_at, linked_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(account_reference) DO UPDATE SET
					fip_id = excluded.fip_id,
					fip_name = excluded.fip_name,
					masked_account_number = excluded.masked_account_number,
					consent_id = excluded.consent_id,
					consent_status = excluded.consent_status,
					consent_expires_at = excluded.consent_expires_at,
					linked_at = excluded.linked_at
			`, c.ID, c.FIPID, c.FIPName, c.AccountReference, c.MaskedAccountNumber, c.AccountType, c.FIType, c.ConsentID, c.ConsentStatus, c.ConsentExpiresAt, c.LinkedAt)
			if err != nil {
				return err
			}
			_ = db.logActivity(models.ActionLink, models.EntityConnection, c.ID, map[string]interface{}{
				"fip":     c.FIPName,
				"account": c.MaskedAccountNumber,
			})
		}
		return nil
	})
}

const connectionColumns = `id, fip_id, fip_name, account_reference, masked_account_number, account_type, fi_type, consent_id, consent_status, consent_expires_at, linked_at, last_synced_at`

func scanConnection(row rowScanner) (*models.Connection, error) {
	var c models.Connection
	var accountType, fiType, consentID sql.NullString
	var consentExpires, lastSynced sql.NullTime

	err := row.Scan(&c.ID, &c.FIPID, &c.FIPName, &c.AccountReference, &c.MaskedAccountNumber, &accountType, &fiType, &consentID, &c.ConsentStatus, &consentExpires, &c.LinkedAt, &lastSynced)
	if err != nil {
		return nil, err
	}
	c.AccountType = accountType.String
	c.FIType = fiType.String
	c.ConsentID = consentID.String
	if consentExpires.Valid {
		c.ConsentExpiresAt = &consentExpires.Time
	}
	if lastSynced.Valid {
		c.LastSyncedAt = &lastSynced.Time
	}
	return &c, nil
}

// GetConnection retrieves a connection by ID
func (db *DB) GetConnection(id string) (*models.Connection, error) {
	id = NormalizeID(id, connIDPrefix)
	row := db.conn.QueryRow(`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("connection not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConnections returns all linked accounts, most recently linked first
func (db *DB) ListConnections() ([]models.Connection, error) {
	rows, err := db.conn.Query(`SELECT ` + connectionColumns + ` FROM connections ORDER BY linked_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []models.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, rows.Err()
}

// UpdateConsentStatus moves a connection's consent through its lifecycle
func (db *DB) UpdateConsentStatus(id string, status models.ConsentStatus) error {
	id = NormalizeID(id, connIDPrefix)
	if !models.IsValidConsentStatus(status) {
		return fmt.Errorf("invalid consent status: %s", status)
	}
	return db.withWriteLock(func() error {
		result, err := db.conn.Exec(`UPDATE connections SET consent_status = ? WHERE id = ?`, status, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("connection not found: %s", id)
		}
		action := models.ActionUpdate
		if status == models.ConsentRevoked {
			action = models.ActionUnlink
		}
		_ = db.logActivity(action, models.EntityConnection, id, map[string]interface{}{
			"status": string(status),
		})
		return nil
	})
}

// TouchConnectionSync records a successful data fetch for a connection
func (db *DB) TouchConnectionSync(id string, at time.Time) error {
	id = NormalizeID(id, connIDPrefix)
	return db.withWriteLock(func() error {
		if at.IsZero() {
			at = time.Now()
		}
		result, err := db.conn.Exec(`UPDATE connections SET last_synced_at = ? WHERE id = ?`, at, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("connection not found: %s", id)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityConnection, id, map[string]interface{}{
			"synced_at": at.Format(time.RFC3339),
		})
		return nil
	})
}

// DeleteConnection unlinks an account
func (db *DB) DeleteConnection(id string) error {
	id = NormalizeID(id, connIDPrefix)
	return db.withWriteLock(func() error {
		result, err := db.conn.Exec(`DELETE FROM connections WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("connection not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntityConnection, id, nil)
		return nil
	})
}
