package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InternalSecretHeader carries the shared secret of internal endpoints.
const InternalSecretHeader = "X-Internal-Secret"

// RefundPath is the route of the internal refund endpoint.
const RefundPath = "/stripe/refund"

// Client calls the internal refund endpoint over HTTP.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient returns a Client for the endpoint at baseURL. A zero timeout
// falls back to 30 seconds.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

type refundResponse struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
	Error    string `json:"error"`
}

// Refund posts req to the internal endpoint. Transport failures, non-2xx
// answers and success=false bodies are all returned as errors.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal refund request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RefundPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build refund request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(InternalSecretHeader, c.secret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call refund endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read refund response: %w", err)
	}
	var out refundResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("refund endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode/100 != 2 || !out.Success {
		if out.Error == "" {
			out.Error = http.StatusText(resp.StatusCode)
		}
		return nil, rejected(fmt.Sprint(resp.StatusCode), out.Error)
	}
	return &RefundResult{RefundID: out.RefundID, Status: out.Status}, nil
}
