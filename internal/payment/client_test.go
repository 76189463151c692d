package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

func TestClient_CreateCheckoutSession(t *testing.T) {
	bookingID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/checkout-sessions", r.URL.Path)

		var req checkoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, bookingID, req.BookingID)
		assert.Equal(t, int64(67080), req.Amount)
		assert.Equal(t, "XOF", req.Currency)
		assert.Equal(t, "LK-ABC123", req.Metadata["booking_number"])

		_ = json.NewEncoder(w).Encode(CheckoutSession{SessionID: "cs_1", URL: "https://pay.example.com/cs_1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	session, err := c.CreateCheckoutSession(context.Background(), bookingID, 67080, "XOF", map[string]string{"booking_number": "LK-ABC123"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_1", session.URL)
}

func TestClient_GetPaymentStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Status
	}{
		{"paid", `{"status":"PAID"}`, StatusPaid},
		{"pending", `{"status":"pending"}`, StatusPending},
		{"failed", `{"status":"failed"}`, StatusFailed},
		{"unknown", `{"status":"refunded"}`, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewClient(srv.URL, time.Second, zap.NewNop()).GetPaymentStatus(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL, time.Second, zap.NewNop()).GetPaymentStatus(context.Background(), uuid.New())
	assert.Equal(t, StatusUnknown, status)
	assert.True(t, domain.IsKind(err, domain.KindTransient))
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 200*time.Millisecond, zap.NewNop()).CreateCheckoutSession(context.Background(), uuid.New(), 1, "XOF", nil)
	assert.True(t, domain.IsKind(err, domain.KindTransient))
}

func TestClient_ClientErrorIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "amount must be positive", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).CreateCheckoutSession(context.Background(), uuid.New(), 0, "XOF", nil)
	require.Error(t, err)
	assert.False(t, domain.IsKind(err, domain.KindTransient))
	assert.Contains(t, err.Error(), "amount must be positive")
}
