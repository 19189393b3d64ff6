// Package sui reads wallet holdings from a Sui full node over JSON-RPC.
package sui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

const (
	sourceName  = "sui"
	breakerName = "sui-rpc"
	opOwned     = "owned_objects"

	defaultTimeout         = 10 * time.Second
	defaultRPS             = 10
	defaultBurst           = 20
	defaultPageLimit       = 10
	defaultMaxPages        = 20
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	maxResponseBytes       = 8 << 20
)

// Client is a Sui JSON-RPC client. Build one at startup and share it.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration

	rps   float64
	burst int

	pageLimit int
	maxPages  int

	breakerFailures uint32
	breakerTimeout  time.Duration

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*ownedObjectsPage]
	log     logger.Logger
	ids     atomic.Uint64
}

var _ sources.OwnershipSource = (*Client)(nil)

// New returns a client for the node at endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:        endpoint,
		timeout:         defaultTimeout,
		rps:             defaultRPS,
		burst:           defaultBurst,
		pageLimit:       defaultPageLimit,
		maxPages:        defaultMaxPages,
		breakerFailures: defaultBreakerFailures,
		breakerTimeout:  defaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get()
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	c.limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)

	metrics.UpdateBreakerState(breakerName, breakerStateValue(gobreaker.StateClosed))
	threshold := c.breakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[*ownedObjectsPage](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not a node failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateBreakerState(name, breakerStateValue(to))
		},
	})
	return c
}

// Endpoint returns the node URL.
func (c *Client) Endpoint() string { return c.endpoint }

// OwnedAssets lists NFT-like Move objects owned by holderID, following
// pagination up to the configured page cap.
func (c *Client) OwnedAssets(ctx context.Context, holderID string) ([]model.Asset, error) {
	holderID = strings.TrimSpace(holderID)
	if holderID == "" {
		return nil, fmt.Errorf("%w: %w", sources.ErrOwnershipLookup, sources.ErrInvalidHolder)
	}

	start := time.Now()
	assets := make([]model.Asset, 0)
	var cursor *string

	for page := 0; page < c.maxPages; page++ {
		res, err := c.ownedObjectsPage(ctx, holderID, cursor)
		if err != nil {
			metrics.RecordSourceError(sourceName, opOwned)
			c.log.Error(ctx, "owned objects lookup failed",
				logger.Wallet(holderID),
				logger.Int("page", page),
				logger.Error(err))
			return nil, fmt.Errorf("%w: %w", sources.ErrOwnershipLookup, err)
		}

		for _, obj := range res.Data {
			if a, ok := toAsset(obj); ok {
				assets = append(assets, a)
			}
		}

		if !res.HasNextPage || res.NextCursor == nil {
			break
		}
		cursor = res.NextCursor
		if page == c.maxPages-1 {
			c.log.Warn(ctx, "owned objects truncated at page cap",
				logger.Wallet(holderID),
				logger.Int("max_pages", c.maxPages))
		}
	}

	metrics.RecordSourceLatency(sourceName, opOwned, float64(time.Since(start).Milliseconds()))
	c.log.Debug(ctx, "owned objects fetched",
		logger.Wallet(holderID),
		logger.Int("assets", len(assets)))
	return assets, nil
}

func (c *Client) ownedObjectsPage(ctx context.Context, owner string, cursor *string) (*ownedObjectsPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return c.breaker.Execute(func() (*ownedObjectsPage, error) {
		params := []any{
			owner,
			objectQuery{Options: objectOptions{ShowType: true, ShowContent: true}},
			cursor,
			c.pageLimit,
		}
		var page ownedObjectsPage
		if err := c.call(ctx, methodGetOwnedObjects, params, &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      c.ids.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// toAsset maps one owned object. Only Move objects whose type looks like an
// NFT are kept.
func toAsset(obj objectResponse) (model.Asset, bool) {
	d := obj.Data
	if d == nil || d.Content == nil || d.Content.DataType != dataTypeMoveObject {
		return model.Asset{}, false
	}
	typ := d.Type
	if typ == "" {
		typ = d.Content.Type
	}
	if !isNFTType(typ) {
		return model.Asset{}, false
	}

	fields := d.Content.Fields
	a := model.Asset{
		ID:          d.ObjectID,
		Name:        stringField(fields, "name"),
		Description: stringField(fields, "description"),
		ImageURL:    stringField(fields, "image_url"),
		Collection:  typ,
	}

	for k, v := range fields {
		switch k {
		case "id", "name", "description", "image_url":
			continue
		}
		switch v.(type) {
		case string, bool, float64:
			if a.Metadata == nil {
				a.Metadata = make(map[string]any)
			}
			a.Metadata[k] = v
		}
	}
	return a, true
}

func isNFTType(typ string) bool {
	return strings.Contains(typ, "NFT") || strings.Contains(typ, "nft") || strings.Contains(typ, "0x")
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
