package stub

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cartstore"
	"github.com/angelmondragon/storefront-client/internal/engine"
	"github.com/angelmondragon/storefront-client/internal/notify"
	"github.com/angelmondragon/storefront-client/internal/orders"
	"github.com/angelmondragon/storefront-client/internal/session"
	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

type harness struct {
	backend  *Server
	client   *api.Client
	eng      *engine.Engine
	orders   orders.Service
	notices  *[]notify.Notice
	shutdown func()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "stub-test"})

	backend := NewServer(Options{Logger: logg, DefaultShippingFee: decimal.NewFromInt(50)})
	backend.SeedProduct(Product{
		ID:    1,
		Name:  "Classic Jeans",
		Price: decimal.NewFromInt(450),
		Sizes: []SizeStock{
			{SizeID: 10, Label: "30", Stock: 12},
			{SizeID: 11, Label: "32", Stock: 8},
		},
	})
	backend.SeedShippingFee("Cairo", decimal.NewFromInt(40))

	httpServer := httptest.NewServer(backend.Handler())

	client, err := api.NewClient(config.APIConfig{BaseURL: httpServer.URL}, nil, logg, nil)
	require.NoError(t, err)

	mirror := cartstore.NewMemory()
	sessions, err := session.NewProvider(mirror)
	require.NoError(t, err)

	notices := &[]notify.Notice{}
	notifier := notify.NewSurface(notify.Options{
		OnNotice: func(n notify.Notice) { *notices = append(*notices, n) },
	})

	eng, err := engine.New(engine.Params{
		Logger:   logg,
		API:      client,
		Mirror:   mirror,
		Sessions: sessions,
		Notifier: notifier,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))

	orderSvc, err := orders.NewService(orders.Params{
		Logger:             logg,
		API:                client,
		Engine:             eng,
		Sessions:           sessions,
		DefaultShippingFee: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	h := &harness{
		backend: backend,
		client:  client,
		eng:     eng,
		orders:  orderSvc,
		notices: notices,
		shutdown: func() {
			eng.Close()
			httpServer.Close()
		},
	}
	t.Cleanup(h.shutdown)
	return h
}

func jeans32(quantity int) engine.AddItemInput {
	productID := int64(1)
	sizeID := int64(11)
	return engine.AddItemInput{
		ProductID: &productID,
		Name:      "Classic Jeans",
		UnitPrice: decimal.NewFromInt(450),
		Size:      "32",
		SizeID:    &sizeID,
		Quantity:  quantity,
	}
}

func TestEngineReservesThroughBackend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.AddItem(ctx, jeans32(2)))

	lines := h.eng.Lines()
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].ReservationID)
	assert.Equal(t, 1, h.backend.ActiveHoldCount())
	assert.Equal(t, engine.ModeAPIBacked, h.eng.Mode())

	// Re-adding replaces the hold server-side too; holds never stack for a
	// session.
	firstID := *lines[0].ReservationID
	require.NoError(t, h.eng.AddItem(ctx, jeans32(5)))
	lines = h.eng.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.NotEqual(t, firstID, *lines[0].ReservationID)
	assert.Equal(t, 1, h.backend.ActiveHoldCount())
}

func TestReserveConflictIsBusinessRejection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Another shopper grabs all 8 units of size 32.
	_, err := h.client.Reserve(ctx, api.ReserveRequest{ProductID: 1, SizeID: ptr(int64(11)), Quantity: 8, SessionID: "rival"})
	require.NoError(t, err)

	err = h.eng.AddItem(ctx, jeans32(1))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeTemporarilyUnavailable, typed.Code())

	// A business rejection never downgrades the engine.
	assert.Equal(t, engine.ModeAPIBacked, h.eng.Mode())
	assert.Empty(t, h.eng.Lines())
}

func TestReservePartialStockIsInsufficient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.Reserve(ctx, api.ReserveRequest{ProductID: 1, SizeID: ptr(int64(11)), Quantity: 6, SessionID: "rival"})
	require.NoError(t, err)

	err = h.eng.AddItem(ctx, jeans32(5))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	require.NotNil(t, typed.StockDetails())
	assert.Equal(t, 2, *typed.StockDetails().Available)
}

func TestRevalidateDropsExpiredHoldAndNotifies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.AddItem(ctx, jeans32(2)))
	reservationID := *h.eng.Lines()[0].ReservationID

	h.backend.ExpireHold(reservationID)
	// Someone else takes the freed stock before revalidation runs.
	_, err := h.client.Reserve(ctx, api.ReserveRequest{ProductID: 1, SizeID: ptr(int64(11)), Quantity: 8, SessionID: "rival"})
	require.NoError(t, err)

	require.NoError(t, h.eng.Revalidate(ctx))

	assert.Empty(t, h.eng.Lines())
	require.Len(t, *h.notices, 1)
	message := (*h.notices)[0].Message
	assert.True(t, strings.Contains(message, "Classic Jeans"), "notice should name the product: %s", message)
	assert.True(t, strings.Contains(message, "32"), "notice should name the size: %s", message)
}

func TestCheckoutRenewsLapsedHoldWhenStockRemains(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.AddItem(ctx, jeans32(2)))
	oldID := *h.eng.Lines()[0].ReservationID
	h.backend.ExpireHold(oldID)

	result, err := h.eng.ValidateCheckout(ctx)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.False(t, result.RedirectHome)

	lines := h.eng.Lines()
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].ReservationID)
	assert.NotEqual(t, oldID, *lines[0].ReservationID)
}

func TestCheckoutHardStopsWhenStockIsGone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.AddItem(ctx, jeans32(2)))
	h.backend.ExpireHold(*h.eng.Lines()[0].ReservationID)
	_, err := h.client.Reserve(ctx, api.ReserveRequest{ProductID: 1, SizeID: ptr(int64(11)), Quantity: 8, SessionID: "rival"})
	require.NoError(t, err)

	result, err := h.eng.ValidateCheckout(ctx)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.True(t, result.RedirectHome)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, h.eng.Lines())
}

func TestOrderSubmissionEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.AddItem(ctx, jeans32(2)))

	result, err := h.orders.Submit(ctx, orders.OrderInput{
		CustomerName: "Nour Hassan",
		Phone:        "+20100000000",
		Address:      "1 Tahrir Sq",
		Governorate:  "Cairo",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-000001", result.OrderNumber)
	assert.Equal(t, "900.00", result.ItemsTotal.StringFixed(2))
	assert.Equal(t, "40", result.ShippingCost.String())

	created := h.backend.Orders()
	require.Len(t, created, 1)
	assert.Equal(t, "Nour Hassan", created[0].CustomerName)
	assert.Equal(t, 2, created[0].ItemCount)

	// The order consumed the hold and the engine cleared the cart.
	assert.Empty(t, h.eng.Lines())
	assert.Equal(t, 0, h.backend.ActiveHoldCount())
}

func TestShippingCostUnknownGovernorateUsesDefault(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.ShippingCost(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.False(t, resp.GovernorateFound)
	assert.Equal(t, "50", resp.ShippingCost.String())
}

func TestCleanupExpiredPurgesLapsedHolds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.AddItem(ctx, jeans32(1)))
	h.backend.ExpireHold(*h.eng.Lines()[0].ReservationID)

	require.NoError(t, h.client.CleanupExpired(ctx))
	assert.Equal(t, 0, h.backend.ActiveHoldCount())
}

func TestBearerAuthWithRefreshRetry(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "stub-test"})
	backend := NewServer(Options{Logger: logg, AuthToken: "tok-good"})
	httpServer := httptest.NewServer(backend.Handler())
	defer httpServer.Close()

	client, err := api.NewClient(config.APIConfig{
		BaseURL:      httpServer.URL,
		AuthToken:    "tok-stale",
		RefreshToken: "tok-good",
	}, nil, logg, nil)
	require.NoError(t, err)

	require.NoError(t, client.Health(context.Background()))
}

func ptr[T any](v T) *T { return &v }
