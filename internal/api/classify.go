package api

import (
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// classifyStockFailure decides whether a rejected reserve call means the stock
// genuinely does not exist (INSUFFICIENT_STOCK) or exists but is currently
// held by other shoppers (TEMPORARILY_UNAVAILABLE).
//
// The backend does not always return an unambiguous discriminant, so the
// heuristic is, in order:
//  1. an item_reserved error, or reservation language in the message, means
//     the stock is held by others;
//  2. an available count greater than zero but below the requested quantity
//     means the stock genuinely falls short;
//  3. with no usable availability signal, multi-unit requests default to
//     insufficient stock and single-unit requests to temporarily held.
func classifyStockFailure(requested int, payload failurePayload) *pkgerrors.Error {
	details := pkgerrors.StockDetails{
		Requested:  requested,
		Available:  payload.Available,
		TotalStock: payload.TotalStock,
	}

	if payload.Error == errItemReserved || hasReservationLanguage(payload.Message) {
		return temporarilyUnavailable(payload, details)
	}
	if payload.Available != nil && *payload.Available > 0 && *payload.Available < requested {
		return insufficientStock(payload, details)
	}
	if requested > 1 {
		return insufficientStock(payload, details)
	}
	return temporarilyUnavailable(payload, details)
}

func hasReservationLanguage(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "reserved") || strings.Contains(lowered, "temporarily unavailable")
}

func insufficientStock(payload failurePayload, details pkgerrors.StockDetails) *pkgerrors.Error {
	message := payload.Message
	if message == "" {
		message = "not enough stock for the requested quantity"
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, message).WithDetails(details)
}

func temporarilyUnavailable(payload failurePayload, details pkgerrors.StockDetails) *pkgerrors.Error {
	message := payload.Message
	if message == "" {
		message = "stock is temporarily held by other shoppers"
	}
	return pkgerrors.New(pkgerrors.CodeTemporarilyUnavailable, message).WithDetails(details)
}
