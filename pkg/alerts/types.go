// Package alerts classifies inventory items against the two fixed alert conditions
// and renders the message stored with each alert.
package alerts

import (
	"fmt"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

// DefaultWindowDays is the expiring-soon lookahead used when none is configured.
const DefaultWindowDays = 3

// Candidates holds the items qualifying for each alert type in one evaluation.
type Candidates struct {
	Expiring []model.Item `json:"expiring"`
	LowStock []model.Item `json:"low_stock"`
}

// Message renders the text stored on an alert of type t for item. The name is
// inserted verbatim. The result is a snapshot; later edits to the item do not
// change it.
func Message(t model.AlertType, item model.Item) string {
	switch t {
	case model.AlertExpiring:
		expiry := "unknown date"
		if item.ExpiryDate != nil {
			expiry = item.ExpiryDate.String()
		}
		return fmt.Sprintf("Item \"%s\" expiring on %s", item.Name, expiry)
	case model.AlertLowStock:
		reorder := "none"
		if item.ReorderLevel.Valid {
			reorder = item.ReorderLevel.Decimal.String()
		}
		return fmt.Sprintf("Low stock for \"%s\": qty=%s, reorder=%s", item.Name, item.Quantity.String(), reorder)
	default:
		return fmt.Sprintf("Alert %s for \"%s\"", t, item.Name)
	}
}
