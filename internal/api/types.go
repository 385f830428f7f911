package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReserveRequest asks the backend to hold quantity units of a product+size for
// the given session.
type ReserveRequest struct {
	ProductID int64  `json:"product_id"`
	SizeID    *int64 `json:"size_id,omitempty"`
	Quantity  int    `json:"quantity"`
	SessionID string `json:"session_id"`
}

// ReserveResponse carries the hold token and its advisory expiry.
type ReserveResponse struct {
	Success       bool      `json:"success"`
	ReservationID string    `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// failurePayload is the error body shape shared by the reservation endpoints.
type failurePayload struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	Available      *int   `json:"available"`
	TotalStock     *int   `json:"total_stock"`
	RedirectToHome bool   `json:"redirect_to_home"`
}

// StockCheckItem identifies one held line in a bulk validation request.
type StockCheckItem struct {
	ProductID     int64  `json:"product_id"`
	SizeID        *int64 `json:"size_id,omitempty"`
	Quantity      int    `json:"quantity"`
	ReservationID string `json:"reservation_id,omitempty"`
}

// StockCheckRequest is the bulk stock validation payload.
type StockCheckRequest struct {
	Items []StockCheckItem `json:"items"`
}

// ExpiredItem names a reservation the backend reports as lost to another
// shopper.
type ExpiredItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
}

// StockCheckResult carries the per-item availability flag.
type StockCheckResult struct {
	ProductID   int64  `json:"product_id"`
	SizeID      *int64 `json:"size_id,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

// StockCheckResponse is the bulk stock validation result.
type StockCheckResponse struct {
	ExpiredItems []ExpiredItem      `json:"expired_items"`
	Items        []StockCheckResult `json:"items"`
}

// RenewedReservation reports a hold the backend extended during checkout
// validation.
type RenewedReservation struct {
	ProductID     int64     `json:"product_id"`
	SizeID        *int64    `json:"size_id,omitempty"`
	ReservationID string    `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// CheckoutValidationResponse is the stricter pre-order validation result.
type CheckoutValidationResponse struct {
	Success             bool                 `json:"success"`
	RedirectToHome      bool                 `json:"redirect_to_home"`
	Message             string               `json:"message"`
	ExpiredItems        []ExpiredItem        `json:"expired_items"`
	RenewedReservations []RenewedReservation `json:"renewed_reservations"`
}

// OrderItem is one purchased line in an order submission.
type OrderItem struct {
	ProductID     *int64          `json:"product_id,omitempty"`
	SizeID        *int64          `json:"size_id,omitempty"`
	Name          string          `json:"name"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReservationID string          `json:"reservation_id,omitempty"`
}

// OrderRequest is the order creation payload.
type OrderRequest struct {
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email,omitempty"`
	Address      string          `json:"address"`
	Governorate  string          `json:"governorate"`
	SessionID    string          `json:"session_id"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Items        []OrderItem     `json:"items"`
}

// OrderResponse confirms order creation. Some backend versions return a
// numeric id, others an order number; either may be set.
type OrderResponse struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	Created     bool   `json:"created"`
}

// ShippingCostResponse carries the per-governorate delivery fee.
type ShippingCostResponse struct {
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	GovernorateFound bool            `json:"governorate_found"`
}
