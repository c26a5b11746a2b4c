package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrEmptyChainID = errors.New("chain id endpoint returned an empty id")

// BaseClient is a small JSON-over-HTTP client for endpoints outside the RPC
// service, like the chain id lookup.
type BaseClient struct {
	client  *http.Client
	headers map[string]string
}

func NewBaseClient() *BaseClient {
	return &BaseClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *BaseClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

type chainIDResponse struct {
	ChainID string `json:"chainId"`
}

// ResolveChainID fetches the roulette contract's chain id from url.
func (c *BaseClient) ResolveChainID(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("resolve chain id: %w", err)
	}
	var res chainIDResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("resolve chain id: decode: %w", err)
	}
	id := strings.TrimSpace(res.ChainID)
	if id == "" {
		return "", ErrEmptyChainID
	}
	return id, nil
}
