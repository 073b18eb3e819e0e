package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/orders/ord-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"order_ref":"ord-1","status":"PAID","paid_amount_cents":20000,"due_amount_cents":0,"settlement_ref":"stl-9"}`))
		case "/v1/orders/ord-missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	st, err := c.FetchOrderStatus(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", st.OrderRef)
	assert.Equal(t, StatePaid, st.State)
	assert.Equal(t, uint32(20000), st.PaidCents)
	assert.Equal(t, uint32(0), st.DueCents)
	assert.Equal(t, "stl-9", st.SettlementRef)

	_, err = c.FetchOrderStatus(context.Background(), "ord-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = c.FetchOrderStatus(context.Background(), "ord-boom")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestFetchOrderStatusTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	c := New(srv.URL, "test-key", 200*time.Millisecond)
	_, err := c.FetchOrderStatus(context.Background(), "ord-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
