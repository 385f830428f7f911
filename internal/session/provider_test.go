package session

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-client/internal/cartstore"
)

func TestSessionIDMintedOnceAndPersisted(t *testing.T) {
	store := cartstore.NewMemory()
	provider, err := NewProvider(store)
	if err != nil {
		t.Fatalf("construct provider: %v", err)
	}
	ctx := context.Background()

	first, err := provider.SessionID(ctx)
	if err != nil {
		t.Fatalf("mint session id: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected uuid session id, got %q", first)
	}

	second, err := provider.SessionID(ctx)
	if err != nil {
		t.Fatalf("reload session id: %v", err)
	}
	if second != first {
		t.Fatalf("session id changed between calls: %q vs %q", first, second)
	}

	stored, err := store.LoadSessionID(ctx)
	if err != nil {
		t.Fatalf("load persisted id: %v", err)
	}
	if stored != first {
		t.Fatalf("persisted id %q does not match minted %q", stored, first)
	}
}

func TestSessionIDSurvivesRestart(t *testing.T) {
	store := cartstore.NewMemory()
	ctx := context.Background()

	provider, err := NewProvider(store)
	if err != nil {
		t.Fatalf("construct provider: %v", err)
	}
	original, err := provider.SessionID(ctx)
	if err != nil {
		t.Fatalf("mint session id: %v", err)
	}

	// A fresh provider over the same store models a process restart.
	reborn, err := NewProvider(store)
	if err != nil {
		t.Fatalf("construct second provider: %v", err)
	}
	reloaded, err := reborn.SessionID(ctx)
	if err != nil {
		t.Fatalf("reload session id: %v", err)
	}
	if reloaded != original {
		t.Fatalf("expected session id to survive restart: %q vs %q", reloaded, original)
	}
}

func TestNewProviderRequiresStore(t *testing.T) {
	if _, err := NewProvider(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
