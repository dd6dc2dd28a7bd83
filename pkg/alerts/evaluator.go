package alerts

import "github.com/miiguelriios/WasteLessApp/pkg/model"

// Horizon is the last expiry date that still counts as expiring soon.
func Horizon(today model.Date, windowDays int) model.Date {
	return today.AddDays(windowDays)
}

// ExpiringSoon reports whether item has an expiry date on or before today plus
// windowDays. Already expired items qualify.
func ExpiringSoon(item model.Item, today model.Date, windowDays int) bool {
	if item.ExpiryDate == nil {
		return false
	}
	return !item.ExpiryDate.After(Horizon(today, windowDays))
}

// LowStock reports whether item has a reorder level and its quantity is at or below it.
func LowStock(item model.Item) bool {
	if !item.ReorderLevel.Valid {
		return false
	}
	return item.Quantity.LessThanOrEqual(item.ReorderLevel.Decimal)
}

// Evaluate splits items into the expiring-soon and low-stock candidate sets. An item
// may appear in both.
func Evaluate(items []model.Item, today model.Date, windowDays int) Candidates {
	var c Candidates
	for _, item := range items {
		if ExpiringSoon(item, today, windowDays) {
			c.Expiring = append(c.Expiring, item)
		}
		if LowStock(item) {
			c.LowStock = append(c.LowStock, item)
		}
	}
	return c
}
