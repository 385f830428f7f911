package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cartstore"
	"github.com/angelmondragon/storefront-client/internal/notify"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

func newNotifyingEngine(t *testing.T, apiCli *fakeAPI, notices *[]notify.Notice) *Engine {
	t.Helper()
	notifier := notify.NewSurface(notify.Options{
		OnNotice: func(n notify.Notice) { *notices = append(*notices, n) },
	})
	eng, err := New(Params{
		Logger:   logger.New(logger.Options{ServiceName: "engine-test"}),
		API:      apiCli,
		Mirror:   cartstore.NewMemory(),
		Sessions: fakeSessions{},
		Notifier: notifier,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Close)
	return eng
}

func TestRevalidateRemovesExpiredLinesAndNotifies(t *testing.T) {
	apiCli := &fakeAPI{}
	var notices []notify.Notice
	eng := newNotifyingEngine(t, apiCli, &notices)
	ctx := context.Background()

	require.NoError(t, eng.AddItem(ctx, jeansInput(2)))
	shirt := AddItemInput{Name: "Linen Shirt", UnitPrice: jeansInput(1).UnitPrice, Size: "M", Quantity: 1}
	require.NoError(t, eng.AddItem(ctx, shirt))

	apiCli.stockResp = &api.StockCheckResponse{
		ExpiredItems: []api.ExpiredItem{{ProductID: 7, Name: "Jeans", Size: "32"}},
	}
	require.NoError(t, eng.Revalidate(ctx))

	lines := eng.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Linen Shirt", lines[0].Name)

	require.Len(t, notices, 1)
	assert.Equal(t, notify.KindExpiredItems, notices[0].Kind)
	assert.True(t, strings.Contains(notices[0].Message, "Jeans"), "message should name the product: %s", notices[0].Message)
	assert.True(t, strings.Contains(notices[0].Message, "32"), "message should name the size: %s", notices[0].Message)
	assert.True(t, strings.Contains(notices[0].Message, "no longer available"), "unexpected message: %s", notices[0].Message)
}

func TestRevalidateFlagsUnavailableLinesAsWarnings(t *testing.T) {
	apiCli := &fakeAPI{}
	var notices []notify.Notice
	eng := newNotifyingEngine(t, apiCli, &notices)
	ctx := context.Background()

	require.NoError(t, eng.AddItem(ctx, jeansInput(2)))

	sizeID := int64(11)
	apiCli.stockResp = &api.StockCheckResponse{
		Items: []api.StockCheckResult{{ProductID: 7, SizeID: &sizeID, IsAvailable: false}},
	}
	require.NoError(t, eng.Revalidate(ctx))

	// Warnings are advisory: the line stays in the cart and no banner is
	// raised.
	assert.Len(t, eng.Lines(), 1)
	warnings := eng.StockWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Jeans", warnings[0].Name)
	assert.Empty(t, notices)

	// A later pass that finds everything available clears the warning.
	apiCli.stockResp = &api.StockCheckResponse{
		Items: []api.StockCheckResult{{ProductID: 7, SizeID: &sizeID, IsAvailable: true}},
	}
	require.NoError(t, eng.Revalidate(ctx))
	assert.Empty(t, eng.StockWarnings())
}

func TestRevalidateNoOpWhenCartEmptyOrLocal(t *testing.T) {
	apiCli := &fakeAPI{stockErr: assert.AnError}
	eng, _ := newTestEngine(t, apiCli)
	ctx := context.Background()

	// Empty cart: the validate call is skipped entirely, so the stubbed
	// error never surfaces.
	require.NoError(t, eng.Revalidate(ctx))

	require.NoError(t, eng.AddItem(ctx, AddItemInput{Name: "Tee", UnitPrice: jeansInput(1).UnitPrice, Size: "M"}))
	// Only local-only lines (no product id): nothing to validate.
	require.NoError(t, eng.Revalidate(ctx))
}

func TestRevalidateSurfacesTransportErrorToScheduler(t *testing.T) {
	apiCli := &fakeAPI{}
	eng, _ := newTestEngine(t, apiCli)
	ctx := context.Background()

	require.NoError(t, eng.AddItem(ctx, jeansInput(1)))

	apiCli.stockErr = assert.AnError
	err := eng.Revalidate(ctx)
	require.Error(t, err)

	// The cart itself is untouched by a failed validation pass.
	assert.Len(t, eng.Lines(), 1)
}
