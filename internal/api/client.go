package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
)

const (
	pathHealth           = "/health/"
	pathReserve          = "/cart/reserve/"
	pathRelease          = "/cart/release/"
	pathValidateStock    = "/cart/validate-stock/"
	pathValidateCheckout = "/cart/validate-checkout/"
	pathCleanupExpired   = "/cart/cleanup-expired/"
	pathCreateOrder      = "/orders/create/"
	pathShippingCost     = "/orders/shipping-cost/"

	refreshWindow = 30 * time.Second
)

const (
	errInsufficientStock = "insufficient_stock"
	errItemReserved      = "item_reserved"
)

// Client wraps the remote storefront REST contract with centralized auth,
// logging, and error mapping.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logg    *logger.Logger
	metrics *metrics.ReservationMetrics
	now     func() time.Time
}

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.APIConfig, tokens TokenSource, logg *logger.Logger, m *metrics.ReservationMetrics) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base url required")
	}
	if tokens == nil {
		tokens = &StaticTokenSource{AccessToken: cfg.AuthToken, RefreshToken: cfg.RefreshToken}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Health probes backend reachability.
func (c *Client) Health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, pathHealth, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("health probe returned status %d", status))
	}
	return nil
}

// Reserve requests a time-boxed hold on product stock. Business rejections
// come back as INSUFFICIENT_STOCK or TEMPORARILY_UNAVAILABLE with stock
// details attached; anything else maps to a transport failure.
func (c *Client) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathReserve, req)
	if err != nil {
		c.metrics.IncCall("reserve", "failure")
		return nil, err
	}
	if status >= 200 && status < 300 {
		var out ReserveResponse
		if err := json.Unmarshal(body, &out); err != nil {
			c.metrics.IncCall("reserve", "failure")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed reserve response")
		}
		if !out.Success || out.ReservationID == "" {
			c.metrics.IncCall("reserve", "failure")
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "reserve response missing reservation")
		}
		c.metrics.IncCall("reserve", "success")
		return &out, nil
	}

	var payload failurePayload
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr == nil && isStockFailure(payload) {
		c.metrics.IncCall("reserve", "business_reject")
		return nil, classifyStockFailure(req.Quantity, payload)
	}
	c.metrics.IncCall("reserve", "failure")
	return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("reserve returned status %d", status))
}

// Release frees a hold. Callers treat failures as best-effort.
func (c *Client) Release(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	path := pathRelease + url.PathEscape(reservationID) + "/"
	status, _, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		c.metrics.IncCall("release", "failure")
		return err
	}
	if status < 200 || status >= 300 {
		c.metrics.IncCall("release", "failure")
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("release returned status %d", status))
	}
	c.metrics.IncCall("release", "success")
	return nil
}

// ValidateStock submits every held line for bulk revalidation.
func (c *Client) ValidateStock(ctx context.Context, items []StockCheckItem) (*StockCheckResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathValidateStock, StockCheckRequest{Items: items})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("validate-stock returned status %d", status))
	}
	var out StockCheckResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed validate-stock response")
	}
	return &out, nil
}

// ValidateCheckout runs the stricter pre-order validation.
func (c *Client) ValidateCheckout(ctx context.Context, items []StockCheckItem) (*CheckoutValidationResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathValidateCheckout, StockCheckRequest{Items: items})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("validate-checkout returned status %d", status))
	}
	var out CheckoutValidationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed validate-checkout response")
	}
	return &out, nil
}

// CleanupExpired asks the backend to purge expired holds. Fire-and-forget on
// the caller side; the error is returned for logging only.
func (c *Client) CleanupExpired(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodPost, pathCleanupExpired, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("cleanup-expired returned status %d", status))
	}
	return nil
}

// CreateOrder submits the order with per-item reservation tokens.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathCreateOrder, req)
	if err != nil {
		return nil, err
	}
	if status >= 200 && status < 300 {
		var out OrderResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed order response")
		}
		return &out, nil
	}

	var payload failurePayload
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr == nil {
		switch {
		case payload.RedirectToHome:
			return nil, pkgerrors.New(pkgerrors.CodeCheckoutAborted, orderFailureMessage(payload))
		case strings.EqualFold(payload.Error, "expired_reservation"):
			return nil, pkgerrors.New(pkgerrors.CodeReservationExpired, orderFailureMessage(payload))
		case strings.EqualFold(payload.Error, "insufficient stock"), payload.Error == errInsufficientStock:
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, orderFailureMessage(payload))
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("create order returned status %d", status))
}

// ShippingCost looks up the delivery fee for a governorate. Callers fall back
// to the configured flat fee on any error.
func (c *Client) ShippingCost(ctx context.Context, governorate string) (*ShippingCostResponse, error) {
	path := pathShippingCost + "?governorate=" + url.QueryEscape(governorate)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shipping cost returned status %d", status))
	}
	var out ShippingCostResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed shipping cost response")
	}
	return &out, nil
}

// do executes one request, attaching the bearer token when present and
// retrying exactly once after a 401 triggers a token refresh. Transport
// failures come back as DEPENDENCY_ERROR.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve auth token")
	}
	if token != "" && tokenExpiresWithin(token, refreshWindow, c.now()) {
		if refreshed, refreshErr := c.tokens.Refresh(ctx); refreshErr == nil && refreshed != "" {
			token = refreshed
		}
	}

	status, respBody, err := c.execute(ctx, method, path, encoded, token)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized || token == "" {
		return status, respBody, nil
	}

	refreshed, refreshErr := c.tokens.Refresh(ctx)
	if refreshErr != nil || refreshed == "" || refreshed == token {
		return status, respBody, nil
	}
	c.logg.Info(ctx, "retrying request after token refresh")
	return c.execute(ctx, method, path, encoded, refreshed)
}

func (c *Client) execute(ctx context.Context, method, path string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response body")
	}
	return resp.StatusCode, respBody, nil
}

func isStockFailure(payload failurePayload) bool {
	return payload.Error == errInsufficientStock || payload.Error == errItemReserved
}

func orderFailureMessage(payload failurePayload) string {
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	return "order was rejected"
}
