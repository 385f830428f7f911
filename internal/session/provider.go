package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/cartstore"
	"github.com/google/uuid"
)

// Provider hands out the anonymous session identifier that scopes server-side
// reservations to this shopper instance. The identifier is generated once and
// persisted through the cart mirror.
type Provider struct {
	store cartstore.Store

	mu     sync.Mutex
	cached string
}

// NewProvider builds a session provider on top of the mirror store.
func NewProvider(store cartstore.Store) (*Provider, error) {
	if store == nil {
		return nil, fmt.Errorf("mirror store required")
	}
	return &Provider{store: store}, nil
}

// SessionID returns the persisted identifier, minting and storing a fresh one
// on first use.
func (p *Provider) SessionID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" {
		return p.cached, nil
	}

	stored, err := p.store.LoadSessionID(ctx)
	if err != nil {
		return "", fmt.Errorf("load session id: %w", err)
	}
	if stored != "" {
		p.cached = stored
		return stored, nil
	}

	minted := uuid.NewString()
	if err := p.store.SaveSessionID(ctx, minted); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	p.cached = minted
	return minted, nil
}
