package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/credentials"
	"github.com/leadaxle/leadaxle/internal/pkg/webhooksign"
)

// Bid failure codes.
const (
	FailTimeout         = "TIMEOUT"
	FailNetwork         = "NETWORK_ERROR"
	FailHTTP            = "HTTP_ERROR"
	FailInvalidResponse = "INVALID_RESPONSE_SHAPE"
)

const maxResponseBytes = 1 << 20 // 1 MiB

// BidResponse is the parsed buyer reply to a PING. Both fields are required;
// a reply missing either is invalid and excluded from bid consideration.
type BidResponse struct {
	BidAmount *float64 `json:"bidAmount"`
	Accepted  *bool    `json:"accepted"`
}

// CallResult captures one outbound request end to end for the ledger.
type CallResult struct {
	StatusCode   int
	Body         []byte
	Bid          *BidResponse
	ResponseTime time.Duration
	FailCode     string
	Err          error
}

// OK reports whether the call produced a usable response.
func (r *CallResult) OK() bool {
	return r.FailCode == "" && r.Err == nil
}

// BidClient performs the outbound PING and POST requests. Timeouts are
// enforced per request through the context; the shared transport keeps
// connection pooling across auctions.
type BidClient struct {
	httpClient *http.Client
}

func NewBidClient() *BidClient {
	return &BidClient{
		httpClient: &http.Client{
			// Per-request deadlines come from the context; this is the
			// absolute ceiling against runaway requests.
			Timeout: 60 * time.Second,
		},
	}
}

// Ping solicits a bid from one buyer. The returned CallResult always carries
// timing and the raw body for the ledger, whatever the outcome.
func (c *BidClient) Ping(ctx context.Context, buyer *models.Buyer, url string, timeout time.Duration, payload map[string]interface{}) *CallResult {
	result := c.send(ctx, buyer, url, timeout, payload)
	if !result.OK() {
		return result
	}

	var bid BidResponse
	if err := json.Unmarshal(result.Body, &bid); err != nil || bid.BidAmount == nil || bid.Accepted == nil {
		result.FailCode = FailInvalidResponse
		result.Err = fmt.Errorf("response lacks required {bidAmount, accepted} shape")
		return result
	}
	result.Bid = &bid
	return result
}

// Post delivers the full lead to the winning buyer.
func (c *BidClient) Post(ctx context.Context, buyer *models.Buyer, url string, timeout time.Duration, payload map[string]interface{}) *CallResult {
	return c.send(ctx, buyer, url, timeout, payload)
}

func (c *BidClient) send(ctx context.Context, buyer *models.Buyer, url string, timeout time.Duration, payload map[string]interface{}) *CallResult {
	result := &CallResult{}

	body, err := json.Marshal(payload)
	if err != nil {
		result.FailCode = FailNetwork
		result.Err = fmt.Errorf("marshal payload: %w", err)
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.FailCode = FailNetwork
		result.Err = err
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	authHeaders, err := credentials.AuthHeaders(buyer)
	if err != nil {
		result.FailCode = FailNetwork
		result.Err = err
		return result
	}
	for name, value := range authHeaders {
		req.Header.Set(name, value)
	}

	if buyer.RequiresSignature {
		secret, err := credentials.Decrypt(buyer.SigningSecret)
		if err != nil {
			// Failed signing is a hard send rejection, not an auction failure.
			result.FailCode = FailNetwork
			result.Err = fmt.Errorf("signing secret for buyer %d: %w", buyer.ID, err)
			return result
		}
		for name, value := range webhooksign.Headers(body, secret) {
			req.Header.Set(name, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		if reqCtx.Err() != nil {
			result.FailCode = FailTimeout
		} else {
			result.FailCode = FailNetwork
		}
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result.FailCode = FailNetwork
		result.Err = err
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.FailCode = FailHTTP
		result.Err = fmt.Errorf("buyer returned HTTP %d", resp.StatusCode)
	}
	return result
}
