/*

This file contains the live node client. It implements every external
collaborator capability the vault core consumes (token custody, staking
target, swap router, derivative converter, price feeds) over the node's
JSON-RPC endpoint. Deterministic fakes cover these same interfaces in tests;
this client is the production wiring.

*/

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/gammaworks/yvm/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidEndpoint  = errors.New("RPC endpoint is invalid")
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
)

var chainLogger = logger.GetForComponent("chain_client")

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Client is a thin JSON-RPC client bound to one node endpoint. It carries no
// vault accounting state; every method is a single remote call with
// validation on both sides.
type Client struct {
	endpoint string
	vaultID  string
	http     *http.Client
}

// NewClient creates a node client for the given endpoint and vault identity.
func NewClient(endpoint, vaultID string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.Join(ErrInvalidEndpoint, errors.New("endpoint cannot be empty"))
	}
	if vaultID == "" {
		return nil, errors.New("vault identity cannot be empty")
	}
	return &Client{
		endpoint: endpoint,
		vaultID:  vaultID,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// call executes one JSON-RPC request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	reqBody, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		chainLogger.Error().Err(err).Str("method", method).Str("endpoint", c.endpoint).Msg("RPC call failed")
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to execute HTTP request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Join(ErrRPCRequestFailed,
			fmt.Errorf("HTTP request failed with status: %d %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to read response body: %w", err))
	}
	if len(body) == 0 {
		return errors.Join(ErrInvalidResponse, errors.New("response body is empty"))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		chainLogger.Error().Err(err).Str("body", string(body)).Msg("Failed to unmarshal JSON-RPC response")
		return errors.Join(ErrInvalidResponse, fmt.Errorf("failed to unmarshal JSON-RPC response: %w", err))
	}
	if rpcResp.Error != nil {
		return errors.Join(ErrRPCRequestFailed,
			fmt.Errorf("RPC error (code %d): %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}
	if len(rpcResp.Result) == 0 {
		return errors.Join(ErrInvalidResponse, errors.New("response result is empty"))
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("failed to decode result: %w", err))
	}
	return nil
}

// parseAmount validates and parses an integer amount string from the node.
func parseAmount(raw string) (sdkmath.Int, error) {
	if raw == "" {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse, errors.New("amount string is empty"))
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse,
			fmt.Errorf("amount %q is not a valid integer", raw))
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse,
			fmt.Errorf("amount %s is negative", amount))
	}
	return amount, nil
}

// transferParams is the wire shape for custody transfer calls.
type transferParams struct {
	Token  string `json:"token"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
}

// amountResult is the wire shape for calls returning a single amount.
type amountResult struct {
	Amount string `json:"amount"`
}

// TransferIn pulls amount of token from the holder into vault custody.
func (c *Client) TransferIn(ctx context.Context, token, from string, amount sdkmath.Int) error {
	var res amountResult
	return c.call(ctx, "custody_transferIn", transferParams{
		Token: token, From: from, To: c.vaultID, Amount: amount.String(),
	}, &res)
}

// TransferOut pushes amount of token from vault custody to the holder.
func (c *Client) TransferOut(ctx context.Context, token, to string, amount sdkmath.Int) error {
	var res amountResult
	return c.call(ctx, "custody_transferOut", transferParams{
		Token: token, From: c.vaultID, To: to, Amount: amount.String(),
	}, &res)
}

// BalanceOf reports the holder's balance of token.
func (c *Client) BalanceOf(ctx context.Context, token, holder string) (sdkmath.Int, error) {
	var res amountResult
	if err := c.call(ctx, "custody_balanceOf", transferParams{Token: token, From: holder}, &res); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return parseAmount(res.Amount)
}

// stakeParams is the wire shape for gauge stake/unstake calls.
type stakeParams struct {
	Vault  string `json:"vault"`
	Amount string `json:"amount,omitempty"`
}

// Stake deposits amount of the pooled asset into the staking gauge.
func (c *Client) Stake(ctx context.Context, amount sdkmath.Int) error {
	var res amountResult
	return c.call(ctx, "gauge_stake", stakeParams{Vault: c.vaultID, Amount: amount.String()}, &res)
}

// Unstake withdraws amount of the pooled asset back to vault custody.
func (c *Client) Unstake(ctx context.Context, amount sdkmath.Int) error {
	var res amountResult
	return c.call(ctx, "gauge_unstake", stakeParams{Vault: c.vaultID, Amount: amount.String()}, &res)
}

// ClaimableRewards reports reward tokens accrued but not yet claimed.
func (c *Client) ClaimableRewards(ctx context.Context) (sdkmath.Int, error) {
	var res amountResult
	if err := c.call(ctx, "gauge_claimableRewards", stakeParams{Vault: c.vaultID}, &res); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return parseAmount(res.Amount)
}

// ClaimRewards settles reward accrual and returns the newly credited amount.
func (c *Client) ClaimRewards(ctx context.Context) (sdkmath.Int, error) {
	var res amountResult
	if err := c.call(ctx, "gauge_claimRewards", stakeParams{Vault: c.vaultID}, &res); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return parseAmount(res.Amount)
}

// swapParams is the wire shape for router calls.
type swapParams struct {
	Vault        string `json:"vault"`
	TokenIn      string `json:"token_in"`
	TokenOut     string `json:"token_out"`
	AmountIn     string `json:"amount_in"`
	MinAmountOut string `json:"min_amount_out"`
}

// SwapExactIn swaps amountIn of tokenIn for tokenOut, enforcing minAmountOut.
func (c *Client) SwapExactIn(ctx context.Context, tokenIn, tokenOut string, amountIn, minAmountOut sdkmath.Int) (sdkmath.Int, error) {
	var res amountResult
	err := c.call(ctx, "router_swapExactIn", swapParams{
		Vault:        c.vaultID,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn.String(),
		MinAmountOut: minAmountOut.String(),
	}, &res)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	out, err := parseAmount(res.Amount)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	chainLogger.Debug().
		Str("tokenIn", tokenIn).
		Str("tokenOut", tokenOut).
		Str("amountIn", amountIn.String()).
		Str("amountOut", out.String()).
		Msg("Router swap executed")
	return out, nil
}

// liquidityParams is the wire shape for pool liquidity calls.
type liquidityParams struct {
	Vault  string `json:"vault"`
	Amount string `json:"amount"`
}

// AddLiquidity converts a derivative-asset amount into the pooled asset
// through the pool's own liquidity-provision path.
func (c *Client) AddLiquidity(ctx context.Context, derivativeAmount sdkmath.Int) (sdkmath.Int, error) {
	var res amountResult
	if err := c.call(ctx, "pool_addLiquidity", liquidityParams{Vault: c.vaultID, Amount: derivativeAmount.String()}, &res); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return parseAmount(res.Amount)
}

// RemoveLiquidity converts a pooled-asset amount back into the derivative
// asset through the pool.
func (c *Client) RemoveLiquidity(ctx context.Context, assetAmount sdkmath.Int) (sdkmath.Int, error) {
	var res amountResult
	if err := c.call(ctx, "pool_removeLiquidity", liquidityParams{Vault: c.vaultID, Amount: assetAmount.String()}, &res); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return parseAmount(res.Amount)
}

// priceResult is the wire shape for oracle price queries.
type priceResult struct {
	Price     string `json:"price"`
	UpdatedAt int64  `json:"updated_at"` // Unix seconds
}

// PriceFeed adapts one named oracle feed on the node to the adapter's
// PriceSource capability.
type PriceFeed struct {
	client *Client
	feed   string
}

// Feed returns a PriceSource for the named oracle feed.
func (c *Client) Feed(name string) *PriceFeed {
	return &PriceFeed{client: c, feed: name}
}

// Price returns the feed's raw integer price and last update time.
func (f *PriceFeed) Price(ctx context.Context) (sdkmath.Int, time.Time, error) {
	var res priceResult
	if err := f.client.call(ctx, "oracle_price", map[string]string{"feed": f.feed}, &res); err != nil {
		return sdkmath.ZeroInt(), time.Time{}, err
	}
	price, err := parseAmount(res.Price)
	if err != nil {
		return sdkmath.ZeroInt(), time.Time{}, err
	}
	if res.UpdatedAt <= 0 {
		return sdkmath.ZeroInt(), time.Time{}, errors.Join(ErrInvalidResponse,
			fmt.Errorf("feed %s reported invalid update time %d", f.feed, res.UpdatedAt))
	}
	return price, time.Unix(res.UpdatedAt, 0), nil
}
