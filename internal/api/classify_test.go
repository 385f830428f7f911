package api

import (
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

func ptrInt(v int) *int { return &v }

func TestClassifyStockFailure(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		payload   failurePayload
		wantCode  pkgerrors.Code
	}{
		{
			name:      "explicit item_reserved error",
			requested: 2,
			payload:   failurePayload{Error: errItemReserved},
			wantCode:  pkgerrors.CodeTemporarilyUnavailable,
		},
		{
			name:      "reservation language in message",
			requested: 3,
			payload:   failurePayload{Error: errInsufficientStock, Message: "All units are currently reserved"},
			wantCode:  pkgerrors.CodeTemporarilyUnavailable,
		},
		{
			name:      "temporarily unavailable language in message",
			requested: 2,
			payload:   failurePayload{Error: errInsufficientStock, Message: "Item temporarily unavailable"},
			wantCode:  pkgerrors.CodeTemporarilyUnavailable,
		},
		{
			name:      "partial availability below requested",
			requested: 4,
			payload:   failurePayload{Error: errInsufficientStock, Available: ptrInt(2), TotalStock: ptrInt(10)},
			wantCode:  pkgerrors.CodeInsufficientStock,
		},
		{
			name:      "no signal multi-unit defaults to insufficient",
			requested: 3,
			payload:   failurePayload{Error: errInsufficientStock},
			wantCode:  pkgerrors.CodeInsufficientStock,
		},
		{
			name:      "no signal single-unit defaults to temporarily held",
			requested: 1,
			payload:   failurePayload{Error: errInsufficientStock},
			wantCode:  pkgerrors.CodeTemporarilyUnavailable,
		},
		{
			// available=0 with stock on the shelf means every unit is held
			// by someone else right now, not that the product ran out.
			name:      "zero available with positive total stock single unit",
			requested: 1,
			payload:   failurePayload{Error: errInsufficientStock, Available: ptrInt(0), TotalStock: ptrInt(3)},
			wantCode:  pkgerrors.CodeTemporarilyUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStockFailure(tc.requested, tc.payload)
			if err.Code() != tc.wantCode {
				t.Fatalf("expected %s, got %s", tc.wantCode, err.Code())
			}
			if !pkgerrors.IsBusiness(err) {
				t.Fatalf("stock failures must be business rejections")
			}
		})
	}
}

func TestClassifyStockFailureAttachesDetails(t *testing.T) {
	err := classifyStockFailure(4, failurePayload{
		Error:      errInsufficientStock,
		Available:  ptrInt(2),
		TotalStock: ptrInt(10),
	})
	details := err.StockDetails()
	if details == nil {
		t.Fatalf("expected stock details attached")
	}
	if details.Requested != 4 || *details.Available != 2 || *details.TotalStock != 10 {
		t.Fatalf("unexpected details %+v", details)
	}
}
