package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "the-code", r.Form.Get("code"))
			assert.Equal(t, "client-id", r.Form.Get("client_id"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "access-1", "refresh_token": "refresh-1", "expires_in": 3600, "token_type": "bearer",
			})
		case "refresh_token":
			if r.Form.Get("refresh_token") == "revoked" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "access-2", "expires_in": 3600, "token_type": "bearer",
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/1/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"expired"}`))
			return
		}
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("start_ordered"))
		assert.Equal(t, "2024-03-11", r.URL.Query().Get("end_ordered"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "200", r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orders":[{"unique_key":"A1","ordered":1710088200},{"unique_key":"A2","ordered":1710091800}]}`))
	})

	mux.HandleFunc("/1/orders/detail/A1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order":{"unique_key":"A1","ordered":1710088200,"order_items":[{"item_id":9,"title":"Cheki","variation":"Mika","amount":2,"price":1500,"total":3000}]}}`))
	})

	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/callback",
		AuthURL:      srv.URL + "/1/oauth/authorize",
		TokenURL:     srv.URL + "/1/oauth/token",
		APIBaseURL:   srv.URL,
		Timeout:      5 * time.Second,
	})
}

func TestClient_ExchangeCode(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	tok, err := newTestClient(srv).ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)
}

func TestClient_RefreshToken_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	tok, err := newTestClient(srv).RefreshToken(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestClient_RefreshToken_Rejected(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	_, err := newTestClient(srv).RefreshToken(context.Background(), "revoked")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_grant", apiErr.ErrorCode)
}

func TestClient_ListOrders(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	orders, err := newTestClient(srv).ListOrders(context.Background(), "good", ListOrdersParams{
		StartOrdered: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndOrdered:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Limit:        100,
		Offset:       200,
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "A1", orders[0].UniqueKey)
}

func TestClient_ListOrders_APIError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	_, err := newTestClient(srv).ListOrders(context.Background(), "stale", ListOrdersParams{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid_token", apiErr.ErrorCode)
	assert.Equal(t, "expired", apiErr.Message)
}

func TestClient_GetOrderDetail(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	detail, err := newTestClient(srv).GetOrderDetail(context.Background(), "good", "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", detail.UniqueKey)
	require.Len(t, detail.OrderItems, 1)
	assert.Equal(t, "Mika", detail.OrderItems[0].Variation)
	assert.Equal(t, 2, detail.OrderItems[0].Amount)
	assert.Equal(t, time.Unix(1710088200, 0), detail.OrderedAt())
}
