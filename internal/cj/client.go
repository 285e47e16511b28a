package cj

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
)

const (
	providerName = "cj"

	// maxResponseSize caps response bodies to keep a misbehaving upstream
	// from exhausting memory.
	maxResponseSize = 10 * 1024 * 1024

	// defaultMinInterval is the minimum gap CJ tolerates between calls.
	defaultMinInterval = 1100 * time.Millisecond

	// tokenSkew refreshes the token slightly before its stated expiry.
	tokenSkew = 5 * time.Minute
)

var (
	ErrAuthFailed  = errors.New("cj: failed to authenticate")
	ErrUnavailable = errors.New("cj: upstream unavailable")
)

// Config carries the client's connection settings.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MinInterval time.Duration

	// Credentials returns the CJ account email and API key. Wired to the
	// settings store with an env fallback so credential changes don't
	// require a rebuild.
	Credentials func() (email, apiKey string, err error)
}

// Client talks to the CJ dropshipping API. It owns every piece of state
// that used to be ambient: the cached bearer token, the request throttle
// stamp, and the persisted token row. Two Clients never share state, so
// tests can run side by side.
type Client struct {
	base   string
	creds  func() (string, string, error)
	http   *http.Client
	tokens *repos.TokenRepo

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	lastRequest time.Time
	minInterval time.Duration
}

func NewClient(cfg Config, tokens *repos.TokenRepo) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	return &Client{
		base:        cfg.BaseURL,
		creds:       cfg.Credentials,
		http:        &http.Client{Timeout: cfg.Timeout},
		tokens:      tokens,
		minInterval: cfg.MinInterval,
	}
}

// throttle enforces the minimum gap between outbound calls. Process-local:
// in a multi-instance deployment each instance throttles independently,
// which is accepted for the single-process deployment model.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AccessToken returns a valid bearer token, authenticating or refreshing
// transparently. Callers never see raw credentials.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && time.Now().Add(tokenSkew).Before(c.tokenExpiry) {
		tok := c.accessToken
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	// Try the persisted row before re-authenticating; another start of the
	// same process may have stored a still-valid token, or at least a
	// refresh token that spares a full login.
	if c.tokens != nil {
		row, err := c.tokens.Get(providerName)
		switch {
		case err == nil && !row.Expired(tokenSkew):
			c.cacheToken(row.AccessToken, row.AccessExpiry)
			return row.AccessToken, nil
		case err == nil && row.RefreshToken != "":
			if tok, rerr := c.refresh(ctx, row.RefreshToken); rerr == nil {
				return tok, nil
			}
		case err != nil && err != sql.ErrNoRows:
			return "", err
		}
	}

	return c.authenticate(ctx)
}

// refresh exchanges the stored refresh token for a new access token.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	var data authData
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.post(ctx, "/authentication/refreshAccessToken", "", body, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", ErrAuthFailed
	}
	c.cacheToken(data.AccessToken, data.AccessTokenExpiryDate)
	if c.tokens != nil {
		_ = c.tokens.Put(repos.IntegrationToken{
			Provider:      providerName,
			AccessToken:   data.AccessToken,
			AccessExpiry:  data.AccessTokenExpiryDate,
			RefreshToken:  data.RefreshToken,
			RefreshExpiry: data.RefreshTokenExpiryDate,
		})
	}
	return data.AccessToken, nil
}

func (c *Client) cacheToken(token, expiry string) {
	exp, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		exp = time.Now().Add(tokenSkew * 2)
	}
	c.mu.Lock()
	c.accessToken = token
	c.tokenExpiry = exp
	c.mu.Unlock()
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	email, apiKey, err := c.creds()
	if err != nil || email == "" || apiKey == "" {
		return "", ErrAuthFailed
	}

	body := map[string]string{"email": email, "password": apiKey}
	var data authData
	if err := c.post(ctx, "/authentication/getAccessToken", "", body, &data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if data.AccessToken == "" {
		return "", ErrAuthFailed
	}

	c.cacheToken(data.AccessToken, data.AccessTokenExpiryDate)
	if c.tokens != nil {
		_ = c.tokens.Put(repos.IntegrationToken{
			Provider:      providerName,
			AccessToken:   data.AccessToken,
			AccessExpiry:  data.AccessTokenExpiryDate,
			RefreshToken:  data.RefreshToken,
			RefreshExpiry: data.RefreshTokenExpiryDate,
		})
	}
	return data.AccessToken, nil
}

// ---------- API operations ----------

// SearchProducts fetches one page of the catalog search endpoint.
func (c *Client) SearchProducts(ctx context.Context, keyword string, page, pageSize int) (*SearchPage, error) {
	tok, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("productNameEn", keyword)
	q.Set("pageNum", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var data productListData
	if err := c.get(ctx, "/product/list?"+q.Encode(), tok, &data); err != nil {
		return nil, err
	}
	return &SearchPage{
		Items:   data.List,
		Total:   data.Total,
		HasMore: data.PageNum*data.PageSize < data.Total,
	}, nil
}

// QueryProduct fetches one item with full details (variants included).
func (c *Client) QueryProduct(ctx context.Context, pid string) (*RawItem, error) {
	tok, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	var item RawItem
	if err := c.get(ctx, "/product/query?pid="+url.QueryEscape(pid), tok, &item); err != nil {
		return nil, err
	}
	if item.Pid == "" && item.ProductID == "" && item.ID == "" {
		return nil, fmt.Errorf("cj: product %s not found", pid)
	}
	return &item, nil
}

// CreateOrder places one supplier order. CJ treats OrderNumber as unique,
// so the local order id doubles as the upstream idempotency key.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	tok, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	var data orderCreateData
	if err := c.post(ctx, "/shopping/order/createOrderV2", tok, req, &data); err != nil {
		return "", err
	}
	if data.OrderID == "" {
		return "", fmt.Errorf("cj: order create returned no order id")
	}
	return data.OrderID, nil
}

// QueryOrder fetches supplier-side status and tracking for an order.
func (c *Client) QueryOrder(ctx context.Context, cjOrderID string) (*OrderStatus, error) {
	tok, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	var st OrderStatus
	if err := c.get(ctx, "/shopping/order/getOrderDetail?orderId="+url.QueryEscape(cjOrderID), tok, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ---------- transport ----------

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, token, raw, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte, out any) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("CJ-Access-Token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("cj: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("cj: malformed response: %w", err)
	}
	if !env.ok() {
		return fmt.Errorf("cj: %d - %s", env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("cj: malformed data: %w", err)
		}
	}
	return nil
}
