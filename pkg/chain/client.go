package chain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/substack-protocol/keeper/pkg/stacks"
	"github.com/substack-protocol/keeper/pkg/types"
)

var (
	ErrNodeRequest      = fmt.Errorf("node request failed")
	ErrUnexpectedStatus = fmt.Errorf("unexpected response status")
	ErrEmptyBlockList   = fmt.Errorf("node returned no blocks")
	ErrReadOnlyCall     = fmt.Errorf("read-only call rejected")
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 10

	maxResponseBytes = 4 << 20
)

// Config configures the node client.
type Config struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// BroadcastError is returned when the node rejects a transaction.
type BroadcastError struct {
	Status int
	Err    string `json:"error"`
	Reason string `json:"reason"`
	TxID   string `json:"txid"`
}

func (e *BroadcastError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("transaction rejected (%d): %s: %s", e.Status, e.Err, e.Reason)
	}

	return fmt.Sprintf("transaction rejected (%d): %s", e.Status, e.Err)
}

// NonceRejected reports whether the node refused the transaction because of
// its nonce.
func (e *BroadcastError) NonceRejected() bool {
	return strings.Contains(strings.ToLower(e.Reason), "nonce")
}

// Client talks to a Stacks node over its HTTP API. All requests share one
// rate limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ types.StacksNode = (*Client)(nil)

// NewClient is the constructor of Client
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: node URL required", ErrNodeRequest)
	}

	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrapf(err, "invalid node URL %q", base)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

type blockListResponse struct {
	Results []struct {
		Height uint64 `json:"height"`
	} `json:"results"`
}

// LatestBlockHeight returns the height of the chain tip.
func (c *Client) LatestBlockHeight(ctx context.Context) (uint64, error) {
	var resp blockListResponse
	if err := c.getJSON(ctx, "/extended/v1/block?limit=1", &resp); err != nil {
		return 0, errors.Wrap(err, "latest block")
	}

	if len(resp.Results) == 0 {
		return 0, ErrEmptyBlockList
	}

	return resp.Results[0].Height, nil
}

type readOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type readOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// CallReadOnly evaluates a read-only contract function and decodes the
// returned Clarity value.
func (c *Client) CallReadOnly(ctx context.Context, contract stacks.ContractID, function string, sender string, args ...stacks.Value) (stacks.Value, error) {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		h, err := stacks.SerializeHex(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "encode argument for %s", function)
		}

		encoded = append(encoded, h)
	}

	body, err := json.Marshal(readOnlyRequest{Sender: sender, Arguments: encoded})
	if err != nil {
		return nil, errors.Wrap(err, "marshal read-only request")
	}

	path := fmt.Sprintf("/v2/contracts/call-read/%s/%s/%s",
		url.PathEscape(contract.Address), url.PathEscape(contract.Name), url.PathEscape(function))

	raw, status, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s.%s", contract, function)
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: call %s.%s: %d: %s", ErrUnexpectedStatus, contract, function, status, truncate(raw))
	}

	var resp readOnlyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrapf(err, "decode %s.%s response", contract, function)
	}

	if !resp.Okay {
		return nil, fmt.Errorf("%w: %s.%s: %s", ErrReadOnlyCall, contract, function, resp.Cause)
	}

	v, err := stacks.DeserializeHex(resp.Result)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s.%s result", contract, function)
	}

	return v, nil
}

type nonceResponse struct {
	PossibleNextNonce uint64 `json:"possible_next_nonce"`
}

// AccountNonce returns the next nonce the node expects from the account,
// counting transactions already in the mempool.
func (c *Client) AccountNonce(ctx context.Context, principal string) (uint64, error) {
	var resp nonceResponse
	path := fmt.Sprintf("/extended/v1/address/%s/nonces", url.PathEscape(principal))

	if err := c.getJSON(ctx, path, &resp); err != nil {
		return 0, errors.Wrapf(err, "nonce for %s", principal)
	}

	return resp.PossibleNextNonce, nil
}

// BroadcastTransaction submits a serialized transaction. A rejection is
// returned as *BroadcastError.
func (c *Client) BroadcastTransaction(ctx context.Context, raw []byte) (types.TxID, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/v2/transactions", "application/octet-stream", raw)
	if err != nil {
		return "", errors.Wrap(err, "broadcast")
	}

	if status != http.StatusOK {
		rejection := &BroadcastError{Status: status}
		if jerr := json.Unmarshal(body, rejection); jerr != nil || rejection.Err == "" {
			rejection.Err = truncate(body)
		}

		return "", rejection
	}

	var txid string
	if err := json.Unmarshal(body, &txid); err != nil {
		// some nodes answer with the bare id
		txid = strings.Trim(strings.TrimSpace(string(body)), `"`)
	}

	if txid == "" {
		return "", fmt.Errorf("%w: empty txid in broadcast response", ErrNodeRequest)
	}

	return types.TxID(strings.TrimPrefix(txid, "0x")), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, status, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return fmt.Errorf("%w: GET %s: %d: %s", ErrUnexpectedStatus, path, status, truncate(body))
	}

	return errors.Wrapf(json.Unmarshal(body, out), "decode %s", path)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, errors.Wrap(err, "rate limit")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, errors.Wrap(err, "create request")
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNodeRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "read response")
	}

	return respBody, resp.StatusCode, nil
}

func truncate(b []byte) string {
	const max = 256

	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}

	return s
}
