package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cartstore"
	"github.com/angelmondragon/storefront-client/internal/notify"
	"github.com/angelmondragon/storefront-client/internal/sched"
	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

// Mode selects whether cart mutations attempt server-side reservations.
type Mode string

const (
	ModeAPIBacked     Mode = "api-backed"
	ModeLocalFallback Mode = "local-fallback"
)

type reservationAPI interface {
	Health(ctx context.Context) error
	Reserve(ctx context.Context, req api.ReserveRequest) (*api.ReserveResponse, error)
	Release(ctx context.Context, reservationID string) error
	ValidateStock(ctx context.Context, items []api.StockCheckItem) (*api.StockCheckResponse, error)
	ValidateCheckout(ctx context.Context, items []api.StockCheckItem) (*api.CheckoutValidationResponse, error)
	CleanupExpired(ctx context.Context) error
}

type sessionSource interface {
	SessionID(ctx context.Context) (string, error)
}

// Params configure the cart reservation engine.
type Params struct {
	Logger   *logger.Logger
	API      reservationAPI
	Mirror   cartstore.Store
	Sessions sessionSource
	Notifier *notify.Surface
	Metrics  *metrics.JobMetrics
	Config   config.EngineConfig
}

// Engine owns the authoritative local view of the cart. Every mutation is
// serialized through its mutex and mirrored to durable storage after it
// settles; the backend's reservation table remains the tie-breaker for
// whether an optimistic local write is honored.
type Engine struct {
	logg     *logger.Logger
	apiCli   reservationAPI
	mirror   cartstore.Store
	sessions sessionSource
	notifier *notify.Surface
	sched    *sched.Service
	cfg      config.EngineConfig

	mu       sync.Mutex
	lines    []types.CartLine
	mode     Mode
	store    lineStore
	warnings map[string]types.LineKey
}

// New builds the engine. Start must be called before use.
func New(params Params) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Mirror == nil {
		return nil, fmt.Errorf("mirror store required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session provider required")
	}
	if params.Notifier == nil {
		params.Notifier = notify.NewSurface(notify.Options{NoticeTTL: params.Config.NoticeTTL})
	}
	cfg := params.Config
	if cfg.RevalidateInterval <= 0 {
		cfg.RevalidateInterval = 30 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * time.Minute
	}

	e := &Engine{
		logg:     params.Logger,
		apiCli:   params.API,
		mirror:   params.Mirror,
		sessions: params.Sessions,
		notifier: params.Notifier,
		cfg:      cfg,
		mode:     ModeAPIBacked,
		store:    remoteReservingStore{},
		warnings: map[string]types.LineKey{},
	}

	scheduler, err := sched.NewService(sched.ServiceParams{
		Logger:  params.Logger,
		Metrics: params.Metrics,
		Entries: []sched.Entry{
			{Job: &revalidateJob{engine: e}, Every: cfg.RevalidateInterval},
			{Job: &cleanupJob{engine: e}, Every: cfg.CleanupInterval},
		},
	})
	if err != nil {
		return nil, err
	}
	e.sched = scheduler
	return e, nil
}

// Start probes backend reachability, seeds the cart from the durable mirror,
// and launches the background schedulers. Items loaded from a previous
// session may reference stale holds; the revalidation job reconciles them.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.apiCli.Health(ctx); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "backend unreachable, starting in local-fallback mode")
		e.mu.Lock()
		e.downgradeLocked()
		e.mu.Unlock()
	}

	lines, err := e.mirror.LoadLines(ctx)
	if err != nil {
		return fmt.Errorf("seed cart from mirror: %w", err)
	}

	e.mu.Lock()
	e.lines = lines
	e.mu.Unlock()

	if _, err := e.sessions.SessionID(ctx); err != nil {
		return err
	}

	e.sched.Start(ctx)
	return nil
}

// Close stops the background schedulers. The mirror remains owned by the
// caller.
func (e *Engine) Close() {
	e.sched.Stop()
}

// AddItem reserves and upserts one product+size line. Business rejections
// (insufficient stock, temporarily held) surface to the caller unchanged; an
// unexpected reservation failure downgrades the engine to local-fallback mode
// permanently and retries the add client-side so the shopper's action still
// completes.
func (e *Engine) AddItem(ctx context.Context, input AddItemInput) error {
	if err := input.normalize(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.store.add(ctx, e, input)
	if err != nil {
		if pkgerrors.IsBusiness(err) {
			return err
		}
		e.logg.Error(ctx, "reservation call failed, downgrading to local-fallback mode", err)
		e.downgradeLocked()
		if localErr := e.store.add(ctx, e, input); localErr != nil {
			return localErr
		}
	}

	e.mirrorLocked(ctx)
	return nil
}

// RemoveItem drops the matched line. An active hold is released best-effort
// in the background; removal never waits on (or fails with) the release.
func (e *Engine) RemoveItem(ctx context.Context, key types.LineKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findLocked(key)
	if idx < 0 {
		return nil
	}
	line := e.lines[idx]
	if line.Reserved() {
		e.releaseDetached(ctx, *line.ReservationID)
	}
	e.lines = append(e.lines[:idx], e.lines[idx+1:]...)
	e.mirrorLocked(ctx)
	return nil
}

// UpdateQuantity changes the held quantity for a line. Values below 1 are a
// no-op. On the API-backed path the old hold is released and a new one is
// requested; if re-reserving fails the quantity change is still applied
// without a hold (degraded best-effort behavior).
func (e *Engine) UpdateQuantity(ctx context.Context, key types.LineKey, quantity int) error {
	if quantity < 1 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findLocked(key)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	err := e.store.updateQuantity(ctx, e, idx, quantity)
	if err != nil {
		if !pkgerrors.IsBusiness(err) {
			e.logg.Error(ctx, "re-reserve failed, downgrading to local-fallback mode", err)
			e.downgradeLocked()
		} else {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "re-reserve rejected, applying quantity without a hold")
		}
		e.lines[idx].Quantity = quantity
		e.lines[idx].ReservationID = nil
		e.lines[idx].ReservedUntil = nil
	}

	e.mirrorLocked(ctx)
	return nil
}

// Clear empties the cart unconditionally, releasing every active hold in
// parallel on a best-effort basis.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var releaseErrs []error
	for _, line := range e.lines {
		if !line.Reserved() {
			continue
		}
		reservationID := *line.ReservationID
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.apiCli.Release(context.WithoutCancel(ctx), reservationID); err != nil {
				errMu.Lock()
				releaseErrs = append(releaseErrs, err)
				errMu.Unlock()
			}
		}()
	}
	wg.Wait()
	if combined := multierr.Combine(releaseErrs...); combined != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", combined.Error()), "best-effort releases failed during clear")
	}

	e.lines = nil
	e.warnings = map[string]types.LineKey{}
	e.mirrorLocked(ctx)
	return nil
}

// TotalPrice sums unit price times quantity over all lines. Recomputed fresh
// on every call.
func (e *Engine) TotalPrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := decimal.Zero
	for _, line := range e.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// TotalItems sums the quantities over all lines.
func (e *Engine) TotalItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, line := range e.lines {
		total += line.Quantity
	}
	return total
}

// Lines returns a snapshot of the current cart.
func (e *Engine) Lines() []types.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.CloneLines(e.lines)
}

// Mode reports the current operating mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// StockWarnings lists lines the last revalidation flagged as unavailable.
// Advisory only; flagged lines stay in the cart.
func (e *Engine) StockWarnings() []types.LineKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]types.LineKey, 0, len(e.warnings))
	for _, key := range e.warnings {
		keys = append(keys, key)
	}
	return keys
}

// Notifier exposes the notification surface for consumers.
func (e *Engine) Notifier() *notify.Surface {
	return e.notifier
}

// downgradeLocked switches to local-fallback mode for the remainder of the
// session. There is no path back to API-backed mode.
func (e *Engine) downgradeLocked() {
	e.mode = ModeLocalFallback
	e.store = localOnlyStore{}
}

func (e *Engine) findLocked(key types.LineKey) int {
	for i, line := range e.lines {
		if key.Matches(line) {
			return i
		}
	}
	return -1
}

func (e *Engine) upsertReplace(line types.CartLine) {
	if idx := e.findLocked(line.Key()); idx >= 0 {
		e.lines[idx] = line
		return
	}
	e.lines = append(e.lines, line)
}

func (e *Engine) upsertSum(input AddItemInput) {
	if idx := e.findLocked(input.key()); idx >= 0 {
		e.lines[idx].Quantity += input.Quantity
		return
	}
	e.lines = append(e.lines, input.line())
}

// mirrorLocked writes the in-memory cart to durable storage. The mirror is
// advisory: failures are logged, never surfaced, and never roll back the
// mutation.
func (e *Engine) mirrorLocked(ctx context.Context) {
	if err := e.mirror.SaveLines(ctx, e.lines); err != nil {
		e.logg.Error(ctx, "failed to mirror cart to durable storage", err)
	}
}

// releaseDetached frees a hold without blocking the caller's critical path.
func (e *Engine) releaseDetached(ctx context.Context, reservationID string) {
	go func() {
		if err := e.apiCli.Release(context.WithoutCancel(ctx), reservationID); err != nil {
			e.logg.Warn(e.logg.WithReservationID(ctx, reservationID), "best-effort reservation release failed")
		}
	}()
}

func warningKey(productID int64, size string) string {
	return fmt.Sprintf("%d|%s", productID, size)
}
