package storage

import (
	"context"
	"errors"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

var (
	// ErrNotFound is returned when a row addressed by id or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
	// ErrInvalidReference is returned when a row refers to a missing category,
	// supplier or item.
	ErrInvalidReference = errors.New("invalid reference")
)

// Storage defines the persistence layer for inventory, alerts and users.
type Storage interface {
	// CreateItem inserts an item and sets its ID.
	CreateItem(ctx context.Context, item *model.Item) error

	// GetItem returns the item with the given id.
	GetItem(ctx context.Context, id int64) (*model.Item, error)

	// ListItems returns all items ordered by id.
	ListItems(ctx context.Context) ([]model.Item, error)

	// UpdateItem replaces every field of an existing item.
	UpdateItem(ctx context.Context, item *model.Item) error

	// DeleteItem removes an item together with its alerts in one transaction.
	DeleteItem(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateSupplier(ctx context.Context, s *model.Supplier) error
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)

	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// ListAlerts returns all alerts with their item names, newest first.
	ListAlerts(ctx context.Context) ([]model.Alert, error)

	// CreateAlert inserts an alert unconditionally. Alerts created this way carry no
	// dedupe date and never collide with reconciler alerts.
	CreateAlert(ctx context.Context, a *model.Alert) error

	// ExpiringCandidates returns items with an expiry date on or before horizon.
	ExpiringCandidates(ctx context.Context, horizon model.Date) ([]model.Item, error)

	// LowStockCandidates returns items with a reorder level and quantity at or below it.
	LowStockCandidates(ctx context.Context) ([]model.Item, error)

	// InTx runs fn inside a single transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(tx AlertTx) error) error

	// Stats computes dashboard aggregates using horizon as the expiring-soon bound.
	Stats(ctx context.Context, horizon model.Date) (*model.Stats, error)

	// Close releases resources.
	Close() error
}

// AlertTx is the write surface available inside InTx.
type AlertTx interface {
	// InsertAlertOnce inserts a, unless an alert with the same item, type and dedupe
	// date already exists. It reports whether a row was written.
	InsertAlertOnce(ctx context.Context, a *model.Alert) (bool, error)
}
