package engine

import (
	"context"

	"github.com/angelmondragon/storefront-client/internal/api"
)

// lineStore is the per-mode mutation strategy. The engine selects one
// implementation when the mode is decided and each operation delegates to it
// instead of re-checking the mode inline.
type lineStore interface {
	add(ctx context.Context, e *Engine, input AddItemInput) error
	updateQuantity(ctx context.Context, e *Engine, idx int, quantity int) error
}

// remoteReservingStore backs every mutation with a server-side hold. Lines
// without a product id cannot be reserved and take the local-sum path even in
// API-backed mode.
type remoteReservingStore struct{}

func (remoteReservingStore) add(ctx context.Context, e *Engine, input AddItemInput) error {
	if input.ProductID == nil {
		e.upsertSum(input)
		return nil
	}

	sessionID, err := e.sessions.SessionID(ctx)
	if err != nil {
		return err
	}
	reserved, err := e.apiCli.Reserve(ctx, api.ReserveRequest{
		ProductID: *input.ProductID,
		SizeID:    input.SizeID,
		Quantity:  input.Quantity,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}

	line := input.line()
	line.ReservationID = &reserved.ReservationID
	expiry := reserved.ExpiresAt
	line.ReservedUntil = &expiry
	// A fresh reservation fully supersedes any prior hold for the same
	// product+size; quantities are never summed on this path.
	e.upsertReplace(line)
	return nil
}

func (remoteReservingStore) updateQuantity(ctx context.Context, e *Engine, idx int, quantity int) error {
	line := e.lines[idx]
	if !line.Reserved() || line.ProductID == nil {
		e.lines[idx].Quantity = quantity
		return nil
	}

	e.releaseDetached(ctx, *line.ReservationID)

	sessionID, err := e.sessions.SessionID(ctx)
	if err != nil {
		return err
	}
	reserved, err := e.apiCli.Reserve(ctx, api.ReserveRequest{
		ProductID: *line.ProductID,
		SizeID:    line.SizeID,
		Quantity:  quantity,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}

	expiry := reserved.ExpiresAt
	e.lines[idx].Quantity = quantity
	e.lines[idx].ReservationID = &reserved.ReservationID
	e.lines[idx].ReservedUntil = &expiry
	return nil
}

// localOnlyStore manages the cart purely client-side. Adding an existing
// product+size sums quantities instead of replacing.
type localOnlyStore struct{}

func (localOnlyStore) add(ctx context.Context, e *Engine, input AddItemInput) error {
	e.upsertSum(input)
	return nil
}

func (localOnlyStore) updateQuantity(ctx context.Context, e *Engine, idx int, quantity int) error {
	e.lines[idx].Quantity = quantity
	e.lines[idx].ReservationID = nil
	e.lines[idx].ReservedUntil = nil
	return nil
}
