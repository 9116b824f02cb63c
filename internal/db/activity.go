package db

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// ListActivityOptions contains filter options for the activity trail
type ListActivityOptions struct {
	EntityType models.EntityType
	EntityID   string
	Action     models.ActionType
	Since      time.Time
	Limit      int
}

// LogActivity records a mutation in the activity trail. detail is marshalled
// to JSON; a nil detail stores an empty payload. Activity logging must never
// fail a primary write, so callers typically ignore the error.
func (db *DB) LogActivity(action models.ActionType, entityType models.EntityType, entityID string, detail map[string]interface{}) error {
	return db.withWriteLock(func() error {
		return db.logActivity(action, entityType, entityID, detail)
	})
}

// logActivity is the lock-free variant for store methods that already hold
// the write lock. The file lock is not reentrant.
func (db *DB) logActivity(action models.ActionType, entityType models.EntityType, entityID string, detail map[string]interface{}) error {
	payload := ""
	if detail != nil {
		data, err := json.Marshal(detail)
		if err == nil {
			payload = string(data)
		}
	}

	_, err := db.conn.Exec(`
		INSERT INTO activity (action_type, entity_type, entity_id, detail, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, action, entityType, entityID, payload, time.Now())
	return err
}

// ListActivity returns activity entries matching the filter options,
// newest first
func (db *DB) ListActivity(opts ListActivityOptions) ([]models.Activity, error) {
	var conditions []string
	var args []interface{}

	if opts.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, opts.EntityType)
	}
	if opts.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, opts.EntityID)
	}
	if opts.Action != "" {
		conditions = append(conditions, "action_type = ?")
		args = append(args, opts.Action)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, opts.Since)
	}

	query := `SELECT id, action_type, entity_type, entity_id, detail, timestamp FROM activity`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Activity
	for rows.Next() {
		var a models.Activity
		var detail sql.NullString
		if err := rows.Scan(&a.ID, &a.ActionType, &a.EntityType, &a.EntityID, &detail, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Detail = detail.String
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
