package execservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient implements Client over a plain JSON/HTTP execution endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient targeting baseURL, with the 5s
// per-call timeout the forwarder contract requires.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// ExecuteSignal posts req to the execution endpoint and classifies the
// response into ErrUnavailable (transient) or ErrInvalidArgument /
// ErrFailedPrecondition (permanent) so the forwarder's retry policy can
// apply the right treatment.
func (c *HTTPClient) ExecuteSignal(ctx context.Context, req OrderRequest) (OrderStatus, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return OrderStatus{}, fmt.Errorf("%w: marshal request: %v", ErrInvalidArgument, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/execute", bytes.NewReader(body))
	if err != nil {
		return OrderStatus{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return OrderStatus{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var status OrderStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return OrderStatus{}, fmt.Errorf("decode order status: %w", err)
		}
		return status, nil
	case resp.StatusCode == http.StatusBadRequest:
		msg, _ := io.ReadAll(resp.Body)
		return OrderStatus{}, fmt.Errorf("%w: %s", ErrInvalidArgument, string(msg))
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		msg, _ := io.ReadAll(resp.Body)
		return OrderStatus{}, fmt.Errorf("%w: %s", ErrFailedPrecondition, string(msg))
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode >= 500:
		msg, _ := io.ReadAll(resp.Body)
		return OrderStatus{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(msg))
	default:
		msg, _ := io.ReadAll(resp.Body)
		return OrderStatus{}, fmt.Errorf("execservice: unexpected status %d: %s", resp.StatusCode, string(msg))
	}
}
