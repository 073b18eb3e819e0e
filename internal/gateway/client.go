// Package gateway is the HTTP client for the external payment
// gateway.  The platform never talks money itself: it creates an
// order reference at booking time, the guest pays at the gateway, and
// this client fetches the authoritative order status when the guest
// polls for confirmation.
package gateway

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "time"
)

// ErrGatewayUnavailable is returned when the gateway cannot be
// reached or answers with a server error.  It is transient: callers
// report "payment not yet confirmed, try again later" and must never
// fail a booking because of it: the money may well have been
// captured and only the confirmation delayed.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrOrderNotFound is returned when the gateway has no record of the
// order reference.
var ErrOrderNotFound = errors.New("order not found at gateway")

// Order states as reported by the gateway.
const (
    StatePaid    = "PAID"
    StateFailed  = "FAILED"
    StatePending = "PENDING"
)

// OrderStatus is the gateway's authoritative view of an order.
type OrderStatus struct {
    OrderRef      string `json:"order_ref"`
    State         string `json:"status"`
    PaidCents     uint32 `json:"paid_amount_cents"`
    DueCents      uint32 `json:"due_amount_cents"`
    SettlementRef string `json:"settlement_ref"`
}

// Client calls the gateway's order-status endpoint.  Every request
// carries a bounded timeout so a stalled gateway cannot hold a
// request handler (and with it the booking row, logically) forever.
type Client struct {
    baseURL string
    apiKey  string
    http    *http.Client
}

// New builds a Client.  timeout bounds each status fetch; it defaults
// to five seconds when zero.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    return &Client{
        baseURL: baseURL,
        apiKey:  apiKey,
        http:    &http.Client{Timeout: timeout},
    }
}

// FetchOrderStatus retrieves the current status of an order.  A
// transport failure or a gateway-side 5xx maps to
// ErrGatewayUnavailable; an unknown order maps to ErrOrderNotFound.
func (c *Client) FetchOrderStatus(ctx context.Context, orderRef string) (OrderStatus, error) {
    endpoint := fmt.Sprintf("%s/v1/orders/%s", c.baseURL, url.PathEscape(orderRef))
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
    if err != nil {
        return OrderStatus{}, err
    }
    req.Header.Set("Authorization", "Bearer "+c.apiKey)
    req.Header.Set("Accept", "application/json")

    resp, err := c.http.Do(req)
    if err != nil {
        return OrderStatus{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
    }
    defer resp.Body.Close()

    switch {
    case resp.StatusCode == http.StatusNotFound:
        return OrderStatus{}, ErrOrderNotFound
    case resp.StatusCode >= 500:
        return OrderStatus{}, fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode)
    case resp.StatusCode != http.StatusOK:
        return OrderStatus{}, fmt.Errorf("gateway returned unexpected status %d", resp.StatusCode)
    }

    var st OrderStatus
    if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
        return OrderStatus{}, fmt.Errorf("decode gateway response: %w", err)
    }
    if st.OrderRef == "" {
        st.OrderRef = orderRef
    }
    return st, nil
}
