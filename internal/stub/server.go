// Package stub hosts an in-memory implementation of the storefront backend
// contract. It backs local development and the integration tests; it is not a
// production server.
package stub

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-client/pkg/logger"
)

const defaultHoldTTL = 10 * time.Minute

// Product is one sellable item with per-size stock.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Sizes []SizeStock
}

// SizeStock tracks remaining units for one size of a product.
type SizeStock struct {
	SizeID int64
	Label  string
	Stock  int
}

type hold struct {
	ID        string
	ProductID int64
	SizeID    *int64
	Quantity  int
	SessionID string
	ExpiresAt time.Time
}

// Order is a stored order submission.
type Order struct {
	ID           int64
	OrderNumber  string
	CustomerName string
	Governorate  string
	SessionID    string
	ShippingCost decimal.Decimal
	ItemCount    int
}

// Options configure the stub server.
type Options struct {
	Logger *logger.Logger
	// AuthToken, when set, requires a matching bearer token on every request.
	AuthToken string
	// HoldTTL bounds reservation lifetimes. Defaults to ten minutes.
	HoldTTL time.Duration
	// DefaultShippingFee answers shipping-cost lookups for unknown
	// governorates.
	DefaultShippingFee decimal.Decimal
	// Now overrides the clock.
	Now func() time.Time
}

// Server is the in-memory backend. Safe for concurrent use.
type Server struct {
	logg       *logger.Logger
	authToken  string
	holdTTL    time.Duration
	defaultFee decimal.Decimal
	now        func() time.Time

	mu           sync.Mutex
	products     map[int64]*Product
	holds        map[string]*hold
	orders       []Order
	shippingFees map[string]decimal.Decimal
	nextOrderID  int64
}

// NewServer builds an empty stub backend. Seed inventory with SeedProduct
// before serving traffic.
func NewServer(opts Options) *Server {
	ttl := opts.HoldTTL
	if ttl <= 0 {
		ttl = defaultHoldTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fee := opts.DefaultShippingFee
	if fee.IsZero() {
		fee = decimal.NewFromInt(50)
	}
	return &Server{
		logg:         opts.Logger,
		authToken:    opts.AuthToken,
		holdTTL:      ttl,
		defaultFee:   fee,
		now:          now,
		products:     map[int64]*Product{},
		holds:        map[string]*hold{},
		shippingFees: map[string]decimal.Decimal{},
		nextOrderID:  1,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if s.authToken != "" {
		r.Use(s.requireBearer)
	}

	r.Get("/health/", s.handleHealth)
	r.Route("/cart", func(r chi.Router) {
		r.Post("/reserve/", s.handleReserve)
		r.Delete("/release/{reservationID}/", s.handleRelease)
		r.Post("/validate-stock/", s.handleValidateStock)
		r.Post("/validate-checkout/", s.handleValidateCheckout)
		r.Post("/cleanup-expired/", s.handleCleanupExpired)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Post("/create/", s.handleCreateOrder)
		r.Get("/shipping-cost/", s.handleShippingCost)
	})
	return r
}

// SeedProduct registers or replaces a product and its stock.
func (s *Server) SeedProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	cp.Sizes = append([]SizeStock(nil), p.Sizes...)
	s.products[p.ID] = &cp
}

// SeedShippingFee sets the delivery fee for a governorate.
func (s *Server) SeedShippingFee(governorate string, fee decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shippingFees[governorate] = fee
}

// ExpireHold force-expires a reservation, simulating a hold lost to time.
func (s *Server) ExpireHold(reservationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.holds[reservationID]; ok {
		h.ExpiresAt = s.now().Add(-time.Second)
	}
}

// ActiveHoldCount reports how many unexpired holds exist.
func (s *Server) ActiveHoldCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, h := range s.holds {
		if h.ExpiresAt.After(s.now()) {
			count++
		}
	}
	return count
}

// Orders snapshots the orders created so far.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.authToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// stockFor returns remaining stock for a product+size after subtracting every
// active hold, optionally excluding one session's own holds. Callers hold the
// mutex.
func (s *Server) stockFor(productID int64, sizeID *int64, excludeSession string) (available, total int, ok bool) {
	p, found := s.products[productID]
	if !found {
		return 0, 0, false
	}
	total = -1
	if sizeID != nil {
		for _, size := range p.Sizes {
			if size.SizeID == *sizeID {
				total = size.Stock
				break
			}
		}
	} else if len(p.Sizes) > 0 {
		total = p.Sizes[0].Stock
	}
	if total < 0 {
		return 0, 0, false
	}

	held := 0
	nowTS := s.now()
	for _, h := range s.holds {
		if h.ProductID != productID || !h.ExpiresAt.After(nowTS) {
			continue
		}
		if !sameSize(h.SizeID, sizeID) {
			continue
		}
		if excludeSession != "" && h.SessionID == excludeSession {
			continue
		}
		held += h.Quantity
	}
	available = total - held
	if available < 0 {
		available = 0
	}
	return available, total, true
}

// decrementStock permanently removes units after an order. Callers hold the
// mutex.
func (s *Server) decrementStock(productID int64, sizeID *int64, quantity int) {
	p, found := s.products[productID]
	if !found {
		return
	}
	for i := range p.Sizes {
		if sizeID != nil && p.Sizes[i].SizeID != *sizeID {
			continue
		}
		p.Sizes[i].Stock -= quantity
		if p.Sizes[i].Stock < 0 {
			p.Sizes[i].Stock = 0
		}
		return
	}
}

func sameSize(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
