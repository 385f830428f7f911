package engine

import (
	"context"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/notify"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

// Revalidate submits every held line to the bulk stock-validation endpoint
// and reconciles the local cart with the backend's answer. Lines whose
// reservations were lost to other shoppers are removed and announced through
// the notification surface; lines merely flagged unavailable become advisory
// stock warnings and stay in the cart.
func (e *Engine) Revalidate(ctx context.Context) error {
	e.mu.Lock()
	if e.mode != ModeAPIBacked || len(e.lines) == 0 {
		e.mu.Unlock()
		return nil
	}
	items := stockCheckItems(e.lines)
	e.mu.Unlock()
	if len(items) == 0 {
		return nil
	}

	resp, err := e.apiCli.ValidateStock(ctx, items)
	if err != nil {
		return err
	}

	e.mu.Lock()
	var removed []notify.ExpiredLine
	for _, expired := range resp.ExpiredItems {
		productID := expired.ProductID
		idx := e.findLocked(types.LineKey{ProductID: &productID, Name: expired.Name, Size: expired.Size})
		if idx < 0 {
			continue
		}
		name := e.lines[idx].Name
		if expired.Name != "" {
			name = expired.Name
		}
		removed = append(removed, notify.ExpiredLine{Name: name, Size: e.lines[idx].Size})
		e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	}

	e.warnings = map[string]types.LineKey{}
	for _, result := range resp.Items {
		if result.IsAvailable {
			continue
		}
		for _, line := range e.lines {
			if line.ProductID == nil || *line.ProductID != result.ProductID {
				continue
			}
			if result.SizeID != nil && line.SizeID != nil && *result.SizeID != *line.SizeID {
				continue
			}
			e.warnings[warningKey(*line.ProductID, line.Size)] = line.Key()
		}
	}

	if len(removed) > 0 {
		e.mirrorLocked(ctx)
	}
	e.mu.Unlock()

	if len(removed) > 0 {
		e.notifier.PublishExpired(removed)
	}
	return nil
}

func stockCheckItems(lines []types.CartLine) []api.StockCheckItem {
	items := make([]api.StockCheckItem, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == nil {
			continue
		}
		item := api.StockCheckItem{
			ProductID: *line.ProductID,
			SizeID:    line.SizeID,
			Quantity:  line.Quantity,
		}
		if line.ReservationID != nil {
			item.ReservationID = *line.ReservationID
		}
		items = append(items, item)
	}
	return items
}
