package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type reserveRequest struct {
	ProductID int64  `json:"product_id"`
	SizeID    *int64 `json:"size_id"`
	Quantity  int    `json:"quantity"`
	SessionID string `json:"session_id"`
}

type stockCheckItem struct {
	ProductID     int64  `json:"product_id"`
	SizeID        *int64 `json:"size_id"`
	Quantity      int    `json:"quantity"`
	ReservationID string `json:"reservation_id"`
}

type stockCheckRequest struct {
	Items []stockCheckItem `json:"items"`
}

type orderItem struct {
	ProductID     *int64          `json:"product_id"`
	SizeID        *int64          `json:"size_id"`
	Name          string          `json:"name"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReservationID string          `json:"reservation_id"`
}

type orderRequest struct {
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Governorate  string          `json:"governorate"`
	SessionID    string          `json:"session_id"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Items        []orderItem     `json:"items"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if req.Quantity < 1 || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available, total, ok := s.stockFor(req.ProductID, req.SizeID, req.SessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product_not_found"})
		return
	}

	if req.Quantity > available {
		if available == 0 && total > 0 {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":       "item_reserved",
				"message":     "This item is temporarily reserved by another shopper.",
				"available":   0,
				"total_stock": total,
			})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "insufficient_stock",
			"message":     fmt.Sprintf("Only %d left in stock.", available),
			"available":   available,
			"total_stock": total,
		})
		return
	}

	// One active hold per session+product+size: a new reservation replaces
	// the previous one instead of stacking on top of it.
	for id, h := range s.holds {
		if h.SessionID == req.SessionID && h.ProductID == req.ProductID && sameSize(h.SizeID, req.SizeID) {
			delete(s.holds, id)
		}
	}

	h := &hold{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		SizeID:    req.SizeID,
		Quantity:  req.Quantity,
		SessionID: req.SessionID,
		ExpiresAt: s.now().Add(s.holdTTL),
	}
	s.holds[h.ID] = h

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"reservation_id": h.ID,
		"expires_at":     h.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationID")

	s.mu.Lock()
	delete(s.holds, reservationID)
	s.mu.Unlock()

	// Releasing an unknown or already-expired hold succeeds; release is
	// idempotent by contract.
	writeJSON(w, http.StatusOK, map[string]bool{"released": true})
}

func (s *Server) handleValidateStock(w http.ResponseWriter, r *http.Request) {
	var req stockCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]map[string]any, 0)
	results := make([]map[string]any, 0, len(req.Items))
	nowTS := s.now()
	for _, item := range req.Items {
		h, live := s.holds[item.ReservationID]
		if item.ReservationID == "" || !live || !h.ExpiresAt.After(nowTS) {
			name, size := s.describe(item.ProductID, item.SizeID)
			expired = append(expired, map[string]any{
				"product_id": item.ProductID,
				"name":       name,
				"size":       size,
			})
			continue
		}
		available, _, ok := s.stockFor(item.ProductID, item.SizeID, h.SessionID)
		results = append(results, map[string]any{
			"product_id":   item.ProductID,
			"size_id":      item.SizeID,
			"is_available": ok && item.Quantity <= available,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expired_items": expired,
		"items":         results,
	})
}

func (s *Server) handleValidateCheckout(w http.ResponseWriter, r *http.Request) {
	var req stockCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]map[string]any, 0)
	renewed := make([]map[string]any, 0)
	nowTS := s.now()
	for _, item := range req.Items {
		h, live := s.holds[item.ReservationID]
		if live && h.ExpiresAt.After(nowTS) {
			continue
		}

		// The hold lapsed. Try to re-reserve in place; only when the stock
		// is gone does checkout hard-stop.
		available, _, ok := s.stockFor(item.ProductID, item.SizeID, "")
		if ok && item.Quantity <= available {
			nh := &hold{
				ID:        uuid.NewString(),
				ProductID: item.ProductID,
				SizeID:    item.SizeID,
				Quantity:  item.Quantity,
				SessionID: sessionOf(h),
				ExpiresAt: nowTS.Add(s.holdTTL),
			}
			s.holds[nh.ID] = nh
			renewed = append(renewed, map[string]any{
				"product_id":     item.ProductID,
				"size_id":        item.SizeID,
				"reservation_id": nh.ID,
				"expires_at":     nh.ExpiresAt.UTC().Format(time.RFC3339),
			})
			continue
		}

		name, size := s.describe(item.ProductID, item.SizeID)
		expired = append(expired, map[string]any{
			"product_id": item.ProductID,
			"name":       name,
			"size":       size,
		})
	}

	if len(expired) > 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":          false,
			"redirect_to_home": true,
			"message":          "Some items in your cart are no longer available.",
			"expired_items":    expired,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":              true,
		"redirect_to_home":     false,
		"renewed_reservations": renewed,
	})
}

func (s *Server) handleCleanupExpired(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	removed := 0
	nowTS := s.now()
	for id, h := range s.holds {
		if !h.ExpiresAt.After(nowTS) {
			delete(s.holds, id)
			removed++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if req.CustomerName == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nowTS := s.now()
	for _, item := range req.Items {
		if item.ReservationID == "" {
			continue
		}
		h, live := s.holds[item.ReservationID]
		if !live || !h.ExpiresAt.After(nowTS) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   "expired_reservation",
				"message": fmt.Sprintf("Reservation for %s has expired.", item.Name),
			})
			return
		}
	}

	count := 0
	for _, item := range req.Items {
		if item.ProductID != nil {
			s.decrementStock(*item.ProductID, item.SizeID, item.Quantity)
		}
		if item.ReservationID != "" {
			delete(s.holds, item.ReservationID)
		}
		count += item.Quantity
	}

	order := Order{
		ID:           s.nextOrderID,
		OrderNumber:  fmt.Sprintf("ORD-%06d", s.nextOrderID),
		CustomerName: req.CustomerName,
		Governorate:  req.Governorate,
		SessionID:    req.SessionID,
		ShippingCost: req.ShippingCost,
		ItemCount:    count,
	}
	s.nextOrderID++
	s.orders = append(s.orders, order)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           order.ID,
		"order_number": order.OrderNumber,
		"created":      true,
	})
}

func (s *Server) handleShippingCost(w http.ResponseWriter, r *http.Request) {
	governorate := r.URL.Query().Get("governorate")

	s.mu.Lock()
	fee, found := s.shippingFees[governorate]
	s.mu.Unlock()
	if !found {
		fee = s.defaultFee
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"shipping_cost":     fee,
		"governorate_found": found,
	})
}

// describe resolves display metadata for expired-item payloads. Callers hold
// the mutex.
func (s *Server) describe(productID int64, sizeID *int64) (name, size string) {
	p, found := s.products[productID]
	if !found {
		return fmt.Sprintf("product %d", productID), ""
	}
	name = p.Name
	if sizeID != nil {
		for _, sz := range p.Sizes {
			if sz.SizeID == *sizeID {
				size = sz.Label
				break
			}
		}
	}
	return name, size
}

func sessionOf(h *hold) string {
	if h == nil {
		return ""
	}
	return h.SessionID
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
