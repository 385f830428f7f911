package orders

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/engine"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

var validate = validator.New()

type gatewayAPI interface {
	CreateOrder(ctx context.Context, req api.OrderRequest) (*api.OrderResponse, error)
	ShippingCost(ctx context.Context, governorate string) (*api.ShippingCostResponse, error)
}

type cartEngine interface {
	Lines() []types.CartLine
	ValidateCheckout(ctx context.Context) (*engine.CheckoutResult, error)
	Clear(ctx context.Context) error
}

type sessionSource interface {
	SessionID(ctx context.Context) (string, error)
}

// Service submits orders on top of the reservation engine.
type Service interface {
	Submit(ctx context.Context, input OrderInput) (*OrderResult, error)
	ShippingCost(ctx context.Context, governorate string) decimal.Decimal
}

// Params configure the orders service.
type Params struct {
	Logger             *logger.Logger
	API                gatewayAPI
	Engine             cartEngine
	Sessions           sessionSource
	DefaultShippingFee decimal.Decimal
}

type service struct {
	logg       *logger.Logger
	apiCli     gatewayAPI
	engine     cartEngine
	sessions   sessionSource
	defaultFee decimal.Decimal
}

// NewService wires the orders dependencies.
func NewService(params Params) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("cart engine required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session provider required")
	}
	return &service{
		logg:       params.Logger,
		apiCli:     params.API,
		engine:     params.Engine,
		sessions:   params.Sessions,
		defaultFee: params.DefaultShippingFee,
	}, nil
}

// OrderInput captures the shopper's delivery details.
type OrderInput struct {
	CustomerName string `json:"customerName" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Address      string `json:"address" validate:"required"`
	Governorate  string `json:"governorate" validate:"required"`
}

// OrderResult confirms a submitted order.
type OrderResult struct {
	OrderNumber  string
	ItemsTotal   decimal.Decimal
	ShippingCost decimal.Decimal
}

// Submit validates the cart against the backend, builds the order payload
// with each line's reservation token, and clears the cart once the backend
// confirms creation. A checkout hard stop aborts before any order call.
func (s *service) Submit(ctx context.Context, input OrderInput) (*OrderResult, error) {
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order details")
	}

	checkout, err := s.engine.ValidateCheckout(ctx)
	if err != nil {
		return nil, err
	}
	if !checkout.OK {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutAborted, checkout.Message)
	}

	lines := s.engine.Lines()
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	sessionID, err := s.sessions.SessionID(ctx)
	if err != nil {
		return nil, err
	}

	shipping := s.ShippingCost(ctx, input.Governorate)

	items := make([]api.OrderItem, 0, len(lines))
	itemsTotal := decimal.Zero
	for _, line := range lines {
		item := api.OrderItem{
			ProductID: line.ProductID,
			SizeID:    line.SizeID,
			Name:      line.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if line.ReservationID != nil {
			item.ReservationID = *line.ReservationID
		}
		items = append(items, item)
		itemsTotal = itemsTotal.Add(line.LineTotal())
	}

	created, err := s.apiCli.CreateOrder(ctx, api.OrderRequest{
		CustomerName: input.CustomerName,
		Phone:        input.Phone,
		Email:        input.Email,
		Address:      input.Address,
		Governorate:  input.Governorate,
		SessionID:    sessionID,
		ShippingCost: shipping,
		Items:        items,
	})
	if err != nil {
		return nil, err
	}

	if err := s.engine.Clear(ctx); err != nil {
		s.logg.Error(ctx, "failed to clear cart after order creation", err)
	}

	orderNumber := created.OrderNumber
	if orderNumber == "" && created.ID != 0 {
		orderNumber = fmt.Sprintf("%d", created.ID)
	}
	return &OrderResult{
		OrderNumber:  orderNumber,
		ItemsTotal:   itemsTotal,
		ShippingCost: shipping,
	}, nil
}

// ShippingCost looks up the delivery fee for the governorate, falling back to
// the configured flat fee on any lookup error.
func (s *service) ShippingCost(ctx context.Context, governorate string) decimal.Decimal {
	resp, err := s.apiCli.ShippingCost(ctx, governorate)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "governorate", governorate), "shipping cost lookup failed, using default fee")
		return s.defaultFee
	}
	return resp.ShippingCost
}
