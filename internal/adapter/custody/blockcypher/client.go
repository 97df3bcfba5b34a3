package blockcypher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"tipvault/config"
	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/pkg/apperror"

	"github.com/rs/zerolog"
)

// Client implements ports.CustodyClient against a BlockCypher-style custody
// API. The provider owns the on-chain keys; this client only allocates
// deposit addresses, reads confirmed balances, and submits payouts. Provider
// amounts are base units (satoshi scale), which is also the ledger's internal
// representation, so no conversion happens here beyond the type.
type Client struct {
	baseURL    string
	token      string
	coin       string
	network    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a custody client from configuration.
func NewClient(cfg config.CustodyConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		coin:    cfg.Coin,
		network: cfg.Network,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: log,
	}
}

type addressResponse struct {
	Address string `json:"address"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"` // confirmed funds, base units
}

type microTxRequest struct {
	ToAddress     string `json:"to_address"`
	ValueSatoshis int64  `json:"value_satoshis"`
}

type microTxResponse struct {
	Hash string `json:"hash"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AllocateAddress requests a new receive address from the provider. Failures
// surface directly; the caller must not retry within the same request, or a
// lost response could orphan an allocated address.
func (c *Client) AllocateAddress(ctx context.Context) (string, error) {
	var out addressResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("addrs"), nil, &out); err != nil {
		return "", err
	}
	if out.Address == "" {
		return "", apperror.ErrProviderRejected("provider returned an empty address")
	}
	return out.Address, nil
}

// ConfirmedBalance returns the provider's view of confirmed (not pending)
// funds held at the address, in base units.
func (c *Client) ConfirmedBalance(ctx context.Context, address string) (domain.Amount, error) {
	var out balanceResponse
	path := c.endpoint("addrs/" + url.PathEscape(address) + "/balance")
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return domain.Amount(out.Balance), nil
}

// SubmitPayment asks the provider to pay amount to destination from the
// pooled custody balance. A provider-side refusal comes back as a Rejected
// result, not an error; only transport failures are errors.
func (c *Client) SubmitPayment(ctx context.Context, destination string, amount domain.Amount) (*ports.PaymentResult, error) {
	body := microTxRequest{
		ToAddress:     destination,
		ValueSatoshis: int64(amount),
	}

	var out microTxResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("txs/micro"), body, &out)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "PRV_003" {
			return &ports.PaymentResult{Accepted: false, Message: appErr.Message}, nil
		}
		return nil, err
	}

	return &ports.PaymentResult{Accepted: true, ProviderRef: out.Hash}, nil
}

// endpoint builds a provider URL with the access token attached.
func (c *Client) endpoint(path string) string {
	u := fmt.Sprintf("%s/v1/%s/%s/%s", c.baseURL, c.coin, c.network, path)
	if c.token != "" {
		u += "?token=" + url.QueryEscape(c.token)
	}
	return u
}

// do executes one provider request and maps failures onto the provider error
// taxonomy: transport/connection problems are unavailable, deadline overruns
// are timeouts, and provider-reported errors are rejections with the
// provider's message preserved.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("marshal provider request: %w", err))
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build provider request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperror.ErrProviderTimeout(err)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return apperror.ErrProviderTimeout(err)
		}
		return apperror.ErrProviderUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.ErrProviderUnavailable(fmt.Errorf("read provider response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var provErr errorResponse
		if json.Unmarshal(raw, &provErr) == nil && provErr.Error != "" {
			c.log.Warn().Int("status", resp.StatusCode).Str("provider_error", provErr.Error).Msg("custody provider rejected request")
			return apperror.ErrProviderRejected(provErr.Error)
		}
		c.log.Warn().Int("status", resp.StatusCode).Msg("custody provider rejected request")
		return apperror.ErrProviderRejected(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperror.ErrProviderUnavailable(fmt.Errorf("decode provider response: %w", err))
		}
	}
	return nil
}
