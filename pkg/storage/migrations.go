package storage

import (
	"database/sql"
	"fmt"
)

var sqliteMigrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS categories (
		category_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		supplier_id  INTEGER PRIMARY KEY AUTOINCREMENT,
		name         TEXT NOT NULL,
		contact_info TEXT,
		address      TEXT
	);

	CREATE TABLE IF NOT EXISTS items (
		item_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		category_id   INTEGER REFERENCES categories(category_id) ON DELETE SET NULL,
		supplier_id   INTEGER REFERENCES suppliers(supplier_id) ON DELETE SET NULL,
		quantity      REAL NOT NULL DEFAULT 0 CHECK(quantity >= 0),
		unit          TEXT,
		expiry_date   TEXT,
		reorder_level REAL CHECK(reorder_level IS NULL OR reorder_level >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_items_expiry ON items(expiry_date);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);

	CREATE TABLE IF NOT EXISTS alerts (
		alert_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id     INTEGER NOT NULL REFERENCES items(item_id),
		alert_type  TEXT NOT NULL CHECK(alert_type IN ('expiring', 'low_stock')),
		message     TEXT NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		dedupe_date TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_dedupe ON alerts(item_id, alert_type, dedupe_date);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);

	CREATE TABLE IF NOT EXISTS users (
		user_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'staff'
	);`,

	// Migration 2: Calendar day of every alert, manual ones included
	`ALTER TABLE alerts ADD COLUMN created_on TEXT;

	UPDATE alerts SET created_on = COALESCE(dedupe_date, date(created_at)) WHERE created_on IS NULL;

	CREATE INDEX IF NOT EXISTS idx_alerts_item_day ON alerts(item_id, alert_type, created_on);`,
}

var postgresMigrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS categories (
		category_id BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		supplier_id  BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL,
		contact_info TEXT,
		address      TEXT
	);

	CREATE TABLE IF NOT EXISTS items (
		item_id       BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		category_id   BIGINT REFERENCES categories(category_id) ON DELETE SET NULL,
		supplier_id   BIGINT REFERENCES suppliers(supplier_id) ON DELETE SET NULL,
		quantity      NUMERIC NOT NULL DEFAULT 0 CHECK(quantity >= 0),
		unit          TEXT,
		expiry_date   DATE,
		reorder_level NUMERIC CHECK(reorder_level IS NULL OR reorder_level >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_items_expiry ON items(expiry_date);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);

	CREATE TABLE IF NOT EXISTS alerts (
		alert_id    BIGSERIAL PRIMARY KEY,
		item_id     BIGINT NOT NULL REFERENCES items(item_id),
		alert_type  TEXT NOT NULL CHECK(alert_type IN ('expiring', 'low_stock')),
		message     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		dedupe_date DATE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_dedupe ON alerts(item_id, alert_type, dedupe_date);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);

	CREATE TABLE IF NOT EXISTS users (
		user_id       BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'staff'
	);`,

	// Migration 2: Calendar day of every alert, manual ones included
	`ALTER TABLE alerts ADD COLUMN IF NOT EXISTS created_on DATE;

	UPDATE alerts SET created_on = COALESCE(dedupe_date, created_at::date) WHERE created_on IS NULL;

	CREATE INDEX IF NOT EXISTS idx_alerts_item_day ON alerts(item_id, alert_type, created_on);`,
}

func (d Dialect) migrations() []string {
	if d == DialectPostgres {
		return postgresMigrations
	}
	return sqliteMigrations
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB, d Dialect) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	migrations := d.migrations()
	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(d.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
