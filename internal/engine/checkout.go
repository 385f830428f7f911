package engine

import (
	"context"

	"github.com/angelmondragon/storefront-client/pkg/types"
)

// CheckoutResult tells the caller whether order submission may proceed.
type CheckoutResult struct {
	// OK permits order submission when true.
	OK bool
	// RedirectHome is the hard stop: the caller must abort checkout and
	// navigate to the landing page. Never retryable in place.
	RedirectHome bool
	// Message is the user-facing explanation for a refused checkout.
	Message string
}

// ValidateCheckout runs the stricter pre-order validation, awaited once
// before order submission. In local-fallback mode there are no server holds
// to check and validation trivially succeeds.
func (e *Engine) ValidateCheckout(ctx context.Context) (*CheckoutResult, error) {
	e.mu.Lock()
	if e.mode != ModeAPIBacked {
		e.mu.Unlock()
		return &CheckoutResult{OK: true}, nil
	}
	items := stockCheckItems(e.lines)
	e.mu.Unlock()

	resp, err := e.apiCli.ValidateCheckout(ctx, items)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if resp.RedirectToHome {
		for _, expired := range resp.ExpiredItems {
			productID := expired.ProductID
			idx := e.findLocked(types.LineKey{ProductID: &productID, Name: expired.Name, Size: expired.Size})
			if idx < 0 {
				continue
			}
			e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
		}
		e.mirrorLocked(ctx)
		message := resp.Message
		if message == "" {
			message = "Some items in your cart are no longer available."
		}
		return &CheckoutResult{OK: false, RedirectHome: true, Message: message}, nil
	}

	if len(resp.RenewedReservations) > 0 {
		for _, renewed := range resp.RenewedReservations {
			for i := range e.lines {
				line := e.lines[i]
				if line.ProductID == nil || *line.ProductID != renewed.ProductID {
					continue
				}
				if renewed.SizeID != nil && line.SizeID != nil && *renewed.SizeID != *line.SizeID {
					continue
				}
				reservationID := renewed.ReservationID
				expiry := renewed.ExpiresAt
				e.lines[i].ReservationID = &reservationID
				e.lines[i].ReservedUntil = &expiry
			}
		}
		e.mirrorLocked(ctx)
	}

	return &CheckoutResult{OK: true, Message: resp.Message}, nil
}
