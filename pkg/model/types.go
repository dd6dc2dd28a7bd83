package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a perishable stock line.
type Item struct {
	ID           int64               `json:"item_id" db:"item_id"`
	Name         string              `json:"name" db:"name"`
	CategoryID   *int64              `json:"category_id" db:"category_id"`
	SupplierID   *int64              `json:"supplier_id" db:"supplier_id"`
	Quantity     decimal.Decimal     `json:"quantity" db:"quantity"`
	Unit         *string             `json:"unit" db:"unit"`
	ExpiryDate   *Date               `json:"expiry_date" db:"expiry_date"`
	ReorderLevel decimal.NullDecimal `json:"reorder_level" db:"reorder_level"`
}

// Category groups items for display.
type Category struct {
	ID          int64   `json:"category_id" db:"category_id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description" db:"description"`
}

// Supplier is where items are reordered from.
type Supplier struct {
	ID          int64   `json:"supplier_id" db:"supplier_id"`
	Name        string  `json:"name" db:"name"`
	ContactInfo *string `json:"contact_info" db:"contact_info"`
	Address     *string `json:"address" db:"address"`
}

// AlertType is the condition an alert was raised for.
type AlertType string

const (
	AlertExpiring AlertType = "expiring"
	AlertLowStock AlertType = "low_stock"
)

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool {
	switch t {
	case AlertExpiring, AlertLowStock:
		return true
	}
	return false
}

// Alert is a persisted notice about an item. Message is rendered from the item at
// creation time and never updated afterwards.
type Alert struct {
	ID        int64     `json:"alert_id" db:"alert_id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	ItemName  string    `json:"item_name,omitempty" db:"item_name"`
	Type      AlertType `json:"alert_type" db:"alert_type"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	// CreatedOn is the calendar day the alert was raised, taken from the same clock
	// as CreatedAt but in the clock's location. The reconciler skips an item and type
	// that already has an alert, manual or not, on the same day.
	CreatedOn Date `json:"-" db:"created_on"`
	// DedupeDate is set for reconciler alerts only. Alerts sharing item, type and
	// DedupeDate are rejected by the store.
	DedupeDate *Date `json:"-" db:"dedupe_date"`
}

// User is an account allowed to call the API.
type User struct {
	ID           int64  `json:"user_id" db:"user_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
}

// RunSummary is the outcome of one reconciliation pass. The candidate counts include
// items whose alert already existed for the day.
type RunSummary struct {
	ExpiringCandidates int `json:"expiring_candidates"`
	LowStockCandidates int `json:"low_stock_candidates"`
	ExpiringInserted   int `json:"expiring_inserted"`
	LowStockInserted   int `json:"low_stock_inserted"`
}

// CategoryCount is the number of items in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Stats holds dashboard aggregates.
type Stats struct {
	TotalItems   int64           `json:"total_items"`
	ExpiringSoon int64           `json:"expiring_soon"`
	LowStock     int64           `json:"low_stock"`
	NextToExpire []Item          `json:"nextToExpire"`
	ByCategory   []CategoryCount `json:"byCategory"`
	LowStockList []Item          `json:"lowStockList"`
}
