// Package jupiter talks to the Jupiter aggregator: swap quotes, swap
// transaction building, and historical candles. Adapted from the teacher's
// HTTP/2 pooled client with API key rotation; the simulation interceptor
// the teacher built into GetQuote/GetSwapTransaction is removed — dry-run
// short-circuiting now lives in internal/swap, which still calls Quote,
// Build, Sign and Simulate for real and only skips the final submit.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"

	"solswap-engine/internal/market"
	"solswap-engine/internal/model"
)

// MetisSwapURL is the Jupiter Metis swap API endpoint.
const MetisSwapURL = "https://api.jup.ag/swap/v1"

// ChartsURL is the candle history endpoint, grounded on
// async_jupiter_client.py's get_candles (datapi.jup.ag/v2/charts/{mint}).
const ChartsURL = "https://datapi.jup.ag/v2/charts"

// PriceURL is the spot price endpoint used by GetPrice.
const PriceURL = "https://lite-api.jup.ag/price/v2"

// SOLMint is the wrapped SOL mint address.
const SOLMint = "So11111111111111111111111111111111111111112"

// Client handles Jupiter API calls with HTTP/2 pooling and API key rotation.
type Client struct {
	baseURL     string
	chartsURL   string
	priceURL    string
	clientPool  *HTTPClientPool
	apiKeys     []string
	keyIdx      atomic.Uint32
	maxLamports uint64
}

// DefaultAPIKeys returns fallback API keys (should use env vars in production).
func DefaultAPIKeys() []string {
	return []string{
		"public-key", // Fallback - use JUPITER_API_KEYS env var
	}
}

// HTTPClientPool provides HTTP/2 connection pooling.
type HTTPClientPool struct {
	clients []*http.Client
	mu      sync.Mutex
	idx     uint32
}

// NewHTTPClientPool creates an HTTP/2 optimized client pool.
func NewHTTPClientPool(size int, timeout time.Duration) *HTTPClientPool {
	pool := &HTTPClientPool{
		clients: make([]*http.Client, size),
	}

	for i := 0; i < size; i++ {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}

		http2.ConfigureTransport(transport)

		pool.clients[i] = &http.Client{
			Transport: transport,
			Timeout:   timeout,
		}
	}

	log.Info().Int("poolSize", size).Msg("HTTP/2 client pool initialized")
	return pool
}

func (p *HTTPClientPool) Get() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	client := p.clients[p.idx%uint32(len(p.clients))]
	p.idx++
	return client
}

// NewClient creates a Jupiter Metis API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithKeys(baseURL, timeout, nil)
}

// NewClientWithKeys creates a Jupiter client with custom API keys.
func NewClientWithKeys(baseURL string, timeout time.Duration, apiKeys []string) *Client {
	if len(apiKeys) == 0 {
		if envKeys := os.Getenv("JUPITER_API_KEYS"); envKeys != "" {
			apiKeys = strings.Split(envKeys, ",")
		} else {
			apiKeys = DefaultAPIKeys()
		}
	}

	return &Client{
		baseURL:     MetisSwapURL,
		chartsURL:   ChartsURL,
		priceURL:    PriceURL,
		clientPool:  NewHTTPClientPool(4, timeout),
		apiKeys:     apiKeys,
		maxLamports: 1_250_000,
	}
}

func (c *Client) getAPIKey() string {
	idx := c.keyIdx.Add(1) % uint32(len(c.apiKeys))
	return c.apiKeys[idx]
}

// QuoteResponse from Jupiter.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`
	TimeTaken            float64         `json:"timeTaken"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// SwapResponse from Jupiter Metis.
type SwapResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// PriorityLevelWithMaxLamports for dynamic fee estimation.
type PriorityLevelWithMaxLamports struct {
	PriorityLevelWithMaxLamports struct {
		PriorityLevel string `json:"priorityLevel"`
		MaxLamports   uint64 `json:"maxLamports"`
		Global        bool   `json:"global,omitempty"`
	} `json:"priorityLevelWithMaxLamports"`
}

// ErrNoRoute means Jupiter returned a quote with an empty route plan.
// Grounded on async_jupiter_svc.py's _get_quote_with_route, which raises
// when quote.routePlan is empty.
var ErrNoRoute = fmt.Errorf("jupiter: no route found")

// GetQuote fetches a swap quote from Jupiter for slippageBps basis points
// of slippage tolerance. The swap pipeline calls this once per attempt with
// the attempt's slippage from its [50, 50, 75] progression.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amountLamports uint64, slippageBps int) (*QuoteResponse, error) {
	start := time.Now()

	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d",
		c.baseURL, inputMint, outputMint, amountLamports, slippageBps)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.getAPIKey())

	client := c.clientPool.Get()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote failed (%d): %s", resp.StatusCode, string(body))
	}

	var quote QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	if len(quote.RoutePlan) == 0 {
		return nil, ErrNoRoute
	}

	log.Debug().
		Dur("latency", time.Since(start)).
		Str("outAmount", quote.OutAmount).
		Msg("jupiter quote")

	return &quote, nil
}

// GetSwapTransaction builds the unsigned, base64 swap transaction for an
// already-fetched quote. Kept as a separate step from GetQuote (unlike the
// teacher's version, which re-quoted internally) so the pipeline's Quote
// and Build steps observe the exact same quote.
func (c *Client) GetSwapTransaction(ctx context.Context, quote *QuoteResponse, userPubkey string) (string, error) {
	start := time.Now()

	reqBody := struct {
		QuoteResponse             *QuoteResponse                `json:"quoteResponse"`
		UserPublicKey             string                        `json:"userPublicKey"`
		WrapAndUnwrapSol          bool                          `json:"wrapAndUnwrapSol"`
		DynamicComputeUnitLimit   bool                          `json:"dynamicComputeUnitLimit"`
		SkipUserAccountsRpcCalls  bool                          `json:"skipUserAccountsRpcCalls"`
		PrioritizationFeeLamports *PriorityLevelWithMaxLamports `json:"prioritizationFeeLamports"`
	}{
		QuoteResponse:            quote,
		UserPublicKey:            userPubkey,
		WrapAndUnwrapSol:         true,
		DynamicComputeUnitLimit:  true,
		SkipUserAccountsRpcCalls: true,
		PrioritizationFeeLamports: &PriorityLevelWithMaxLamports{
			PriorityLevelWithMaxLamports: struct {
				PriorityLevel string `json:"priorityLevel"`
				MaxLamports   uint64 `json:"maxLamports"`
				Global        bool   `json:"global,omitempty"`
			}{
				PriorityLevel: "veryHigh",
				MaxLamports:   c.maxLamports,
				Global:        false,
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/swap", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.getAPIKey())

	client := c.clientPool.Get()
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("swap failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var swapResp SwapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}

	log.Info().
		Dur("latency", time.Since(start)).
		Uint64("priorityFee", swapResp.PrioritizationFeeLamports).
		Msg("jupiter swap tx built")

	return swapResp.SwapTransaction, nil
}

// SetMaxPriorityFee sets the max priority fee cap in lamports.
func (c *Client) SetMaxPriorityFee(lamports uint64) {
	c.maxLamports = lamports
}

type candleResponse struct {
	Candles []struct {
		Time  int64   `json:"time"`
		Open  float64 `json:"open"`
		High  float64 `json:"high"`
		Low   float64 `json:"low"`
		Close float64 `json:"close"`
		Vol   float64 `json:"volume"`
	} `json:"candles"`
}

// GetCandles fetches historical OHLCV candles, grounded on
// async_jupiter_client.py's get_candles against datapi.jup.ag/v2/charts.
// Satisfies market.Source.
func (c *Client) GetCandles(ctx context.Context, mintAddr string, interval market.Interval, count int) ([]model.TickerData, error) {
	endTime := time.Now().UnixMilli()
	url := fmt.Sprintf("%s/%s?interval=%s&to=%d&candles=%d&type=price&quote=usd",
		c.chartsURL, mintAddr, interval, endTime, count)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Origin", "https://jup.ag")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := c.clientPool.Get()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("candles failed (%d): %s", resp.StatusCode, string(body))
	}

	var parsed candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	out := make([]model.TickerData, 0, len(parsed.Candles))
	for _, c := range parsed.Candles {
		out = append(out, model.TickerData{
			Pair:      mintAddr,
			Timestamp: time.UnixMilli(c.Time),
			Open:      decimal.NewFromFloat(c.Open),
			High:      decimal.NewFromFloat(c.High),
			Low:       decimal.NewFromFloat(c.Low),
			Last:      decimal.NewFromFloat(c.Close),
			Buy:       decimal.NewFromFloat(c.Close),
			Sell:      decimal.NewFromFloat(c.Close),
			Vol:       decimal.NewFromFloat(c.Vol),
		})
	}
	return out, nil
}

type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// GetPrice polls the Jupiter price API once and returns the current spot
// price immediately. It satisfies market.Source's signature but does not
// wait for a new price update: consecutive calls may return the same
// price. cmd/engine uses it as the engine's price source.
func (c *Client) GetPrice(ctx context.Context, mintAddr string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s?ids=%s", c.priceURL, mintAddr)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.clientPool.Get()
	resp, err := client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Decimal{}, fmt.Errorf("price failed (%d): %s", resp.StatusCode, string(body))
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode price: %w", err)
	}

	entry, ok := parsed.Data[mintAddr]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("jupiter: no price entry for %s", mintAddr)
	}
	return decimal.NewFromString(entry.Price)
}
