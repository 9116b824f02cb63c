package db

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add price change history for subscriptions",
		SQL: `
CREATE TABLE IF NOT EXISTS price_changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subscription_id TEXT NOT NULL,
    old_amount TEXT NOT NULL,
    new_amount TEXT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'INR',
    changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (subscription_id) REFERENCES subscriptions(id)
);
CREATE INDEX IF NOT EXISTS idx_price_changes_subscription ON price_changes(subscription_id);
`,
	},
	{
		Version:     3,
		Description: "Tag imported transactions with their gateway transaction id",
		SQL: `ALTER TABLE transactions ADD COLUMN aa_transaction_id TEXT DEFAULT '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_aa ON transactions(aa_transaction_id) WHERE aa_transaction_id != '';`,
	},
}
