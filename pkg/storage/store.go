package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

// Store implements Storage on top of database/sql for SQLite and PostgreSQL.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ Storage = (*Store)(nil)

// Open returns a Store for driver ("sqlite" or "postgres"). For SQLite target is a
// file path, for PostgreSQL a connection string.
func Open(driver, target string) (*Store, error) {
	switch Dialect(driver) {
	case DialectSQLite:
		return NewSQLite(target)
	case DialectPostgres:
		return NewPostgres(target)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// Dialect reports which database the store talks to.
func (s *Store) Dialect() Dialect { return s.dialect }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const itemColumns = "item_id, name, category_id, supplier_id, quantity, unit, expiry_date, reorder_level"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, it *model.Item) error {
	return row.Scan(&it.ID, &it.Name, &it.CategoryID, &it.SupplierID,
		&it.Quantity, &it.Unit, &it.ExpiryDate, &it.ReorderLevel)
}

func (s *Store) queryItems(ctx context.Context, q querier, query string, args ...any) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var it model.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) CreateItem(ctx context.Context, item *model.Item) error {
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO items (name, category_id, supplier_id, quantity, unit, expiry_date, reorder_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING item_id`),
		item.Name, item.CategoryID, item.SupplierID, item.Quantity,
		item.Unit, item.ExpiryDate, item.ReorderLevel,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert item: %w", classify(err))
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	var it model.Item
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		"SELECT "+itemColumns+" FROM items WHERE item_id = ?"), id)
	err := scanItem(row, &it)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (s *Store) ListItems(ctx context.Context) ([]model.Item, error) {
	items, err := s.queryItems(ctx, s.db, "SELECT "+itemColumns+" FROM items ORDER BY item_id")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, item *model.Item) error {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE items
		 SET name = ?, category_id = ?, supplier_id = ?, quantity = ?, unit = ?, expiry_date = ?, reorder_level = ?
		 WHERE item_id = ?`),
		item.Name, item.CategoryID, item.SupplierID, item.Quantity,
		item.Unit, item.ExpiryDate, item.ReorderLevel, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", classify(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item %d: %w", item.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM alerts WHERE item_id = ?"), id); err != nil {
		return fmt.Errorf("delete item alerts: %w", err)
	}

	result, err := tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM items WHERE item_id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete item: %w", err)
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		"INSERT INTO categories (name, description) VALUES (?, ?) RETURNING category_id"),
		c.Name, c.Description,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert category: %w", classify(err))
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category_id, name, description FROM categories ORDER BY category_id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		"INSERT INTO suppliers (name, contact_info, address) VALUES (?, ?, ?) RETURNING supplier_id"),
		sup.Name, sup.ContactInfo, sup.Address,
	).Scan(&sup.ID)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", classify(err))
	}
	return nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT supplier_id, name, contact_info, address FROM suppliers ORDER BY supplier_id")
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []model.Supplier{}
	for rows.Next() {
		var sup model.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.ContactInfo, &sup.Address); err != nil {
			return nil, fmt.Errorf("scan supplier row: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.Role == "" {
		u.Role = "staff"
	}
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		"INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?) RETURNING user_id"),
		u.Name, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		"SELECT user_id, name, email, password_hash, role FROM users WHERE email = ?"), email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.alert_id, a.item_id, i.name, a.alert_type, a.message, a.created_at
		 FROM alerts a
		 JOIN items i ON a.item_id = i.item_id
		 ORDER BY a.created_at DESC, a.alert_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.ItemID, &a.ItemName, &a.Type, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *Store) CreateAlert(ctx context.Context, a *model.Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.CreatedOn.IsZero() {
		a.CreatedOn = model.DateOf(a.CreatedAt)
	}
	a.DedupeDate = nil

	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO alerts (item_id, alert_type, message, created_at, created_on)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING alert_id`),
		a.ItemID, a.Type, a.Message, a.CreatedAt, a.CreatedOn,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert alert: %w", classify(err))
	}
	return nil
}

func (s *Store) ExpiringCandidates(ctx context.Context, horizon model.Date) ([]model.Item, error) {
	items, err := s.queryItems(ctx, s.db,
		"SELECT "+itemColumns+` FROM items
		 WHERE expiry_date IS NOT NULL AND expiry_date <= ?
		 ORDER BY item_id`, horizon)
	if err != nil {
		return nil, fmt.Errorf("query expiring candidates: %w", err)
	}
	return items, nil
}

func (s *Store) LowStockCandidates(ctx context.Context) ([]model.Item, error) {
	items, err := s.queryItems(ctx, s.db,
		"SELECT "+itemColumns+` FROM items
		 WHERE reorder_level IS NOT NULL AND quantity <= reorder_level
		 ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("query low stock candidates: %w", err)
	}
	return items, nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx AlertTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&alertTx{tx: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %w (after %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type alertTx struct {
	tx      *sql.Tx
	dialect Dialect
}

// InsertAlertOnce skips the insert when the item already has an alert of the same
// type on a.CreatedOn, whether raised manually or by an earlier pass. The unique
// dedupe index settles races between concurrent passes.
func (t *alertTx) InsertAlertOnce(ctx context.Context, a *model.Alert) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.CreatedOn.IsZero() {
		if a.DedupeDate != nil {
			a.CreatedOn = *a.DedupeDate
		} else {
			a.CreatedOn = model.DateOf(a.CreatedAt)
		}
	}

	var exists bool
	err := t.tx.QueryRowContext(ctx, t.dialect.rebind(
		`SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE item_id = ? AND alert_type = ? AND created_on = ?
		 )`),
		a.ItemID, a.Type, a.CreatedOn,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s alert for item %d: %w", a.Type, a.ItemID, err)
	}
	if exists {
		return false, nil
	}

	err = t.tx.QueryRowContext(ctx, t.dialect.rebind(
		`INSERT INTO alerts (item_id, alert_type, message, created_at, created_on, dedupe_date)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (item_id, alert_type, dedupe_date) DO NOTHING
		 RETURNING alert_id`),
		a.ItemID, a.Type, a.Message, a.CreatedAt, a.CreatedOn, a.DedupeDate,
	).Scan(&a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert %s alert for item %d: %w", a.Type, a.ItemID, classify(err))
	}
	return true, nil
}

func (s *Store) Stats(ctx context.Context, horizon model.Date) (*model.Stats, error) {
	stats := &model.Stats{}
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT
			(SELECT COUNT(*) FROM items),
			(SELECT COUNT(*) FROM items WHERE expiry_date IS NOT NULL AND expiry_date <= ?),
			(SELECT COUNT(*) FROM items WHERE reorder_level IS NOT NULL AND quantity <= reorder_level)`),
		horizon,
	).Scan(&stats.TotalItems, &stats.ExpiringSoon, &stats.LowStock)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	stats.NextToExpire, err = s.queryItems(ctx, s.db,
		"SELECT "+itemColumns+` FROM items
		 WHERE expiry_date IS NOT NULL
		 ORDER BY expiry_date, item_id
		 LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("query next to expire: %w", err)
	}

	stats.ByCategory, err = s.countByCategory(ctx)
	if err != nil {
		return nil, err
	}

	stats.LowStockList, err = s.queryItems(ctx, s.db,
		"SELECT "+itemColumns+` FROM items
		 WHERE reorder_level IS NOT NULL AND quantity <= reorder_level
		 ORDER BY (quantity - reorder_level), name
		 LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("query low stock list: %w", err)
	}

	return stats, nil
}

func (s *Store) countByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(c.name, 'Uncategorized') AS category, COUNT(*) AS n
		 FROM items i
		 LEFT JOIN categories c ON c.category_id = i.category_id
		 GROUP BY COALESCE(c.name, 'Uncategorized')
		 ORDER BY n DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()

	counts := []model.CategoryCount{}
	for rows.Next() {
		var cc model.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
