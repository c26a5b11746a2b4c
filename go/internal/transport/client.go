package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	BaseURL string
	ChainID string
	// H2C speaks HTTP/2 over cleartext, matching a gateway served through h2c.
	H2C     bool
	Timeout time.Duration
}

// Client is the outbound side of the roulette contract and faucet.
type Client struct {
	mu      sync.RWMutex
	chainID string

	roundStatus       *connect.Client[ChainRequest, GetRoundStatusResponse]
	roundNumber       *connect.Client[ChainRequest, GetRoundNumberResponse]
	lastWinningNumber *connect.Client[ChainRequest, GetLastWinningNumberResponse]
	placeBet          *connect.Client[PlaceBetRequest, PlaceBetResponse]
	faucetChallenge   *connect.Client[GetFaucetChallengeRequest, FaucetChallenge]
	faucetRequest     *connect.Client[FaucetRequest, SendFaucetRequestResponse]
	balance           *connect.Client[GetBalanceRequest, GetBalanceResponse]
}

func NewClient(cfg Config, opts ...connect.ClientOption) *Client {
	return NewClientWithHTTP(newHTTPClient(cfg), cfg, opts...)
}

// NewClientWithHTTP lets tests pass the client of an httptest server.
func NewClientWithHTTP(httpClient connect.HTTPClient, cfg Config, opts ...connect.ClientOption) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	opts = append([]connect.ClientOption{WithJSONCodec()}, opts...)

	return &Client{
		chainID:           cfg.ChainID,
		roundStatus:       connect.NewClient[ChainRequest, GetRoundStatusResponse](httpClient, baseURL+GetRoundStatusProcedure, opts...),
		roundNumber:       connect.NewClient[ChainRequest, GetRoundNumberResponse](httpClient, baseURL+GetRoundNumberProcedure, opts...),
		lastWinningNumber: connect.NewClient[ChainRequest, GetLastWinningNumberResponse](httpClient, baseURL+GetLastWinningNumberProcedure, opts...),
		placeBet:          connect.NewClient[PlaceBetRequest, PlaceBetResponse](httpClient, baseURL+PlaceBetProcedure, opts...),
		faucetChallenge:   connect.NewClient[GetFaucetChallengeRequest, FaucetChallenge](httpClient, baseURL+GetFaucetChallengeProcedure, opts...),
		faucetRequest:     connect.NewClient[FaucetRequest, SendFaucetRequestResponse](httpClient, baseURL+SendFaucetRequestProcedure, opts...),
		balance:           connect.NewClient[GetBalanceRequest, GetBalanceResponse](httpClient, baseURL+GetBalanceProcedure, opts...),
	}
}

func newHTTPClient(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if !cfg.H2C {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

// SetChainID is used once the chain id has been resolved after construction.
func (c *Client) SetChainID(chainID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainID = chainID
}

func (c *Client) ChainID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chainID
}

func (c *Client) GetRoundStatus(ctx context.Context) (bool, error) {
	res, err := c.roundStatus.CallUnary(ctx, connect.NewRequest(&ChainRequest{ChainID: c.ChainID()}))
	if err != nil {
		return false, fmt.Errorf("get round status: %w", err)
	}
	return res.Msg.Active, nil
}

func (c *Client) GetRoundNumber(ctx context.Context) (uint64, error) {
	res, err := c.roundNumber.CallUnary(ctx, connect.NewRequest(&ChainRequest{ChainID: c.ChainID()}))
	if err != nil {
		return 0, fmt.Errorf("get round number: %w", err)
	}
	return res.Msg.Number, nil
}

// GetLastWinningNumber returns nil when no round has settled yet.
func (c *Client) GetLastWinningNumber(ctx context.Context) (*int64, error) {
	res, err := c.lastWinningNumber.CallUnary(ctx, connect.NewRequest(&ChainRequest{ChainID: c.ChainID()}))
	if err != nil {
		return nil, fmt.Errorf("get last winning number: %w", err)
	}
	return res.Msg.Number, nil
}

// PlaceBet signs and submits a bet. The returned transaction id only means
// the request was accepted; the bet itself is confirmed by a betPlaced event.
func (c *Client) PlaceBet(ctx context.Context, keyPair wallet.KeyPair, address wallet.Address, selection int64, amount uint64) (string, error) {
	req := &PlaceBetRequest{
		ChainID:   c.ChainID(),
		RequestID: uuid.NewString(),
		Address:   address,
		PublicKey: append([]byte(nil), keyPair.PublicKey...),
		Number:    selection,
		Amount:    amount,
	}
	req.Signature = keyPair.Sign(req.SigningMessage())

	res, err := c.placeBet.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return "", fmt.Errorf("place bet: %w", err)
	}
	return res.Msg.TransactionID, nil
}

func (c *Client) GetFaucetChallenge(ctx context.Context, address wallet.Address) (FaucetChallenge, error) {
	res, err := c.faucetChallenge.CallUnary(ctx, connect.NewRequest(&GetFaucetChallengeRequest{Address: address}))
	if err != nil {
		return FaucetChallenge{}, fmt.Errorf("get faucet challenge: %w", err)
	}
	return *res.Msg, nil
}

func (c *Client) SendFaucetRequest(ctx context.Context, req FaucetRequest) (string, error) {
	res, err := c.faucetRequest.CallUnary(ctx, connect.NewRequest(&req))
	if err != nil {
		return "", fmt.Errorf("send faucet request: %w", err)
	}
	return res.Msg.ID, nil
}

func (c *Client) GetBalance(ctx context.Context, address wallet.Address, assetID string) (uint64, error) {
	res, err := c.balance.CallUnary(ctx, connect.NewRequest(&GetBalanceRequest{Address: address, AssetID: assetID}))
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return res.Msg.Amount, nil
}

// SigningMessage is the byte string covered by Signature.
func (r *PlaceBetRequest) SigningMessage() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%d|%d", r.ChainID, r.RequestID, r.Address, r.Number, r.Amount))
}
