package engine

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

var validate = validator.New()

// AddItemInput is the payload for adding a product+size to the cart. Either
// ProductID or Name must be set; Quantity defaults to 1 when omitted.
type AddItemInput struct {
	ProductID *int64          `json:"productId" validate:"required_without=Name"`
	Name      string          `json:"name" validate:"required_without=ProductID"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image"`
	Size      string          `json:"size"`
	SizeID    *int64          `json:"sizeId"`
	Quantity  int             `json:"quantity" validate:"omitempty,min=1"`
}

func (in *AddItemInput) normalize() error {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := validate.Struct(in); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item").WithDetails(map[string]any{"error": err.Error()})
	}
	if in.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}
	return nil
}

func (in AddItemInput) key() types.LineKey {
	return types.LineKey{ProductID: in.ProductID, Name: in.Name, Size: in.Size}
}

func (in AddItemInput) line() types.CartLine {
	return types.CartLine{
		ProductID: in.ProductID,
		Name:      in.Name,
		UnitPrice: in.UnitPrice,
		Image:     in.Image,
		Size:      in.Size,
		SizeID:    in.SizeID,
		Quantity:  in.Quantity,
	}
}
