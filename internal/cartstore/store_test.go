package cartstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

func sampleLines(t *testing.T) []types.CartLine {
	t.Helper()
	productID := int64(7)
	sizeID := int64(11)
	reservationID := "res-1"
	reservedUntil := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)
	return []types.CartLine{
		{
			ProductID:     &productID,
			Name:          "Jeans",
			UnitPrice:     decimal.RequireFromString("450.75"),
			Image:         "https://cdn.example/jeans.jpg",
			Size:          "32",
			SizeID:        &sizeID,
			Quantity:      2,
			ReservationID: &reservationID,
			ReservedUntil: &reservedUntil,
		},
		{
			Name:      "Custom Tee",
			UnitPrice: decimal.NewFromInt(100),
			Size:      "M",
			Quantity:  1,
		},
	}
}

func assertRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	loaded, err := store.LoadLines(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded, "fresh store must start empty")

	want := sampleLines(t)
	require.NoError(t, store.SaveLines(ctx, want))

	loaded, err = store.LoadLines(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Jeans", loaded[0].Name)
	assert.Equal(t, "32", loaded[0].Size)
	assert.Equal(t, 2, loaded[0].Quantity)
	require.NotNil(t, loaded[0].ProductID)
	assert.Equal(t, int64(7), *loaded[0].ProductID)
	require.NotNil(t, loaded[0].ReservationID)
	assert.Equal(t, "res-1", *loaded[0].ReservationID)
	require.NotNil(t, loaded[0].ReservedUntil)
	assert.True(t, loaded[0].ReservedUntil.Equal(*want[0].ReservedUntil))
	assert.True(t, loaded[0].UnitPrice.Equal(decimal.RequireFromString("450.75")))
	assert.Nil(t, loaded[1].ProductID)
	assert.Nil(t, loaded[1].ReservationID)

	// Save replaces wholesale, including truncation to empty.
	require.NoError(t, store.SaveLines(ctx, nil))
	loaded, err = store.LoadLines(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	sessionID, err := store.LoadSessionID(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessionID)

	require.NoError(t, store.SaveSessionID(ctx, "sess-abc"))
	sessionID, err = store.LoadSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", sessionID)

	require.NoError(t, store.SaveSessionID(ctx, "sess-def"))
	sessionID, err = store.LoadSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-def", sessionID)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemory()
	defer store.Close()
	assertRoundTrip(t, store)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLite(filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	defer store.Close()
	assertRoundTrip(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	ctx := context.Background()

	store, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveLines(ctx, sampleLines(t)))
	require.NoError(t, store.SaveSessionID(ctx, "sess-abc"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	lines, err := reopened.LoadLines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	sessionID, err := reopened.LoadSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", sessionID)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite("")
	require.Error(t, err)
}

func TestMemoryStoreReturnsDefensiveCopies(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.SaveLines(ctx, sampleLines(t)))

	first, err := store.LoadLines(ctx)
	require.NoError(t, err)
	first[0].Quantity = 99

	second, err := store.LoadLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second[0].Quantity)
}

func TestNewSelectsBackendFromConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cartstore-test"})
	ctx := context.Background()

	memStore, err := New(ctx, &config.Config{Mirror: config.MirrorConfig{Backend: "memory"}}, logg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, memStore)

	sqliteStore, err := New(ctx, &config.Config{Mirror: config.MirrorConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "mirror.db"),
	}}, logg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	require.NoError(t, sqliteStore.Close())

	_, err = New(ctx, nil, logg)
	require.Error(t, err)
}
