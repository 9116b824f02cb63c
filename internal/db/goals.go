package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zmrishh/moneyai/internal/models"
)

// CreateGoal creates a new savings goal
func (db *DB) CreateGoal(g *models.Goal) error {
	return db.withWriteLock(func() error {
		if g.Kind == "" {
			g.Kind = models.GoalSavings
		}
		if !models.IsValidGoalKind(g.Kind) {
			return fmt.Errorf("invalid goal kind: %s", g.Kind)
		}
		if g.Priority == "" {
			g.Priority = models.PriorityMedium
		}
		if !models.IsValidGoalPriority(g.Priority) {
			return fmt.Errorf("invalid priority: %s", g.Priority)
		}
		if !g.Target.IsPositive() {
			return fmt.Errorf("goal target must be positive")
		}
		if g.Target.Currency == "" {
			g.Target.Currency = models.DefaultCurrency
		}
		g.Saved = models.NewMoneyZero(g.Target.Currency)
		g.Completed = false

		now := time.Now()
		g.CreatedAt = now
		g.UpdatedAt = now

		const maxRetries = 3
		for attempt := 0; attempt < maxRetries; attempt++ {
			id, err := generateGoalID()
			if err != nil {
				return err
			}
			g.ID = id

			_, err = db.conn.Exec(`
				INSERT INTO goals (id, name, kind, target, saved, currency, target_date, priority, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, g.ID, g.Name, g.Kind, g.Target.StoreAmount(), g.Saved.StoreAmount(), g.Target.Currency, g.TargetDate, g.Priority, g.CreatedAt, g.UpdatedAt)

			if err == nil {
				_ = db.logActivity(models.ActionCreate, models.EntityGoal, g.ID, map[string]interface{}{
					"name":   g.Name,
					"target": g.Target.String(),
				})
				return nil
			}
			if !strings.Contains(err.Error(), "UNIQUE constraint") {
				return err
			}
		}
		return fmt.Errorf("failed to generate unique goal ID after %d attempts", maxRetries)
	})
}

const goalColumns = `id, name, kind, target, saved, currency, target_date, priority, completed, created_at, updated_at`

func scanGoal(row rowScanner) (*models.Goal, error) {
	var g models.Goal
	var target, saved, currency string
	var targetDate sql.NullTime
	var completed int

	err := row.Scan(&g.ID, &g.Name, &g.Kind, &target, &saved, &currency, &targetDate, &g.Priority, &completed, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Target, err = models.MoneyFromStore(target, currency)
	if err != nil {
		return nil, fmt.Errorf("goal %s: %w", g.ID, err)
	}
	g.Saved, err = models.MoneyFromStore(saved, currency)
	if err != nil {
		return nil, fmt.Errorf("goal %s: %w", g.ID, err)
	}
	if targetDate.Valid {
		g.TargetDate = &targetDate.Time
	}
	g.Completed = completed != 0
	return &g, nil
}

// GetGoal retrieves a goal by ID
func (db *DB) GetGoal(id string) (*models.Goal, error) {
	id = NormalizeID(id, goalIDPrefix)
	row := db.conn.QueryRow(`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListGoals returns goals, highest priority first, completed last
func (db *DB) ListGoals(includeCompleted bool) ([]models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals`
	if !includeCompleted {
		query += ` WHERE completed = 0`
	}
	query += ` ORDER BY completed ASC,
		CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		created_at ASC`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// UpdateGoal updates a goal's descriptive fields. Saved only moves through
// contributions.
func (db *DB) UpdateGoal(g *models.Goal) error {
	return db.withWriteLock(func() error {
		g.UpdatedAt = time.Now()
		result, err := db.conn.Exec(`
			UPDATE goals SET name = ?, kind = ?, target = ?, target_date = ?, priority = ?, updated_at = ? WHERE id = ?
		`, g.Name, g.Kind, g.Target.StoreAmount(), g.TargetDate, g.Priority, g.UpdatedAt, g.ID)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("goal not found: %s", g.ID)
		}
		_ = db.logActivity(models.ActionUpdate, models.EntityGoal, g.ID, nil)
		return nil
	})
}

// DeleteGoal removes a goal and its contribution history
func (db *DB) DeleteGoal(id string) error {
	id = NormalizeID(id, goalIDPrefix)
	return db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`DELETE FROM goal_contributions WHERE goal_id = ?`, id); err != nil {
			return err
		}
		result, err := db.conn.Exec(`DELETE FROM goals WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("goal not found: %s", id)
		}
		_ = db.logActivity(models.ActionDelete, models.EntityGoal, id, nil)
		return nil
	})
}

// ContributeToGoal adds a contribution and returns the updated goal plus any
// milestone percentages (25/50/75/100) crossed by this contribution. The goal
// is completed when saved reaches the target.
func (db *DB) ContributeToGoal(id string, amount models.Money, note string, at time.Time) (*models.Goal, []int, error) {
	id = NormalizeID(id, goalIDPrefix)
	var updated *models.Goal
	var crossed []int

	err := db.withWriteLock(func() error {
		row := db.conn.QueryRow(`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
		goal, err := scanGoal(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("goal not found: %s", id)
		}
		if err != nil {
			return err
		}
		if goal.Completed {
			return fmt.Errorf("goal already achieved: %s", id)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("contribution must be positive")
		}

		if at.IsZero() {
			at = time.Now()
		}
		if _, err := db.conn.Exec(`
			INSERT INTO goal_contributions (goal_id, amount, currency, note, contributed_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, amount.StoreAmount(), amount.Currency, note, at); err != nil {
			return err
		}

		before := goal.Saved.PercentOf(goal.Target)
		saved := goal.Saved.Add(amount)
		after := saved.PercentOf(goal.Target)
		for _, m := range models.GoalMilestones() {
			if before < float64(m) && after >= float64(m) {
				crossed = append(crossed, m)
			}
		}

		completed := saved.Cmp(goal.Target) >= 0
		now := time.Now()
		if _, err := db.conn.Exec(`
			UPDATE goals SET saved = ?, completed = ?, updated_at = ? WHERE id = ?
		`, saved.StoreAmount(), completed, now, id); err != nil {
			return err
		}
		goal.Saved = saved
		goal.Completed = completed
		goal.UpdatedAt = now
		updated = goal
		_ = db.logActivity(models.ActionContribute, models.EntityGoal, id, map[string]interface{}{
			"amount": amount.String(),
			"saved":  saved.String(),
		})
		for _, m := range crossed {
			_ = db.logActivity(models.ActionMilestone, models.EntityGoal, id, map[string]interface{}{
				"pct": m,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, crossed, nil
}

// ListGoalContributions returns contributions toward a goal, newest first
func (db *DB) ListGoalContributions(id string) ([]models.GoalContribution, error) {
	id = NormalizeID(id, goalIDPrefix)
	rows, err := db.conn.Query(`
		SELECT id, goal_id, amount, currency, note, contributed_at FROM goal_contributions
		WHERE goal_id = ? ORDER BY contributed_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []models.GoalContribution
	for rows.Next() {
		var c models.GoalContribution
		var amount, currency string
		var note sql.NullString
		if err := rows.Scan(&c.ID, &c.GoalID, &amount, &currency, &note, &c.ContributedAt); err != nil {
			return nil, err
		}
		c.Amount, err = models.MoneyFromStore(amount, currency)
		if err != nil {
			return nil, err
		}
		c.Note = note.String
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
