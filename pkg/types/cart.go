package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product+size combination the shopper intends to purchase.
// ReservationID and ReservedUntil are only set while a server-side hold is
// believed to be active; both are nil in local-fallback mode.
type CartLine struct {
	ProductID     *int64          `json:"productId,omitempty"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Image         string          `json:"image,omitempty"`
	Size          string          `json:"size"`
	SizeID        *int64          `json:"sizeId,omitempty"`
	Quantity      int             `json:"quantity"`
	ReservationID *string         `json:"reservationId,omitempty"`
	ReservedUntil *time.Time      `json:"reservedUntil,omitempty"`
}

// Key returns the identity of this line within a cart.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Name: l.Name, Size: l.Size}
}

// Reserved reports whether the line references an active server-side hold.
// The expiry is advisory only; a hold is considered active until the backend
// says otherwise.
func (l CartLine) Reserved() bool {
	return l.ReservationID != nil && *l.ReservationID != ""
}

// LineTotal returns unit price multiplied by quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey identifies a cart line by product id plus size, falling back to the
// display name when no product id is known (local-only lines).
type LineKey struct {
	ProductID *int64
	Name      string
	Size      string
}

// Matches reports whether the key identifies the given line.
func (k LineKey) Matches(line CartLine) bool {
	if k.Size != line.Size {
		return false
	}
	if k.ProductID != nil && line.ProductID != nil {
		return *k.ProductID == *line.ProductID
	}
	return k.Name != "" && k.Name == line.Name
}

// CloneLines returns a defensive copy of the given cart lines.
func CloneLines(lines []CartLine) []CartLine {
	cloned := make([]CartLine, len(lines))
	copy(cloned, lines)
	return cloned
}
