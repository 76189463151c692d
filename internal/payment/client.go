// Package payment talks to the payment service that owns checkout and
// settlement. This service never moves money itself.
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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/platform/domain"
)

// Status is the payment state the gateway reports for a booking.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown"
)

// CheckoutSession is the hosted payment page created for a booking.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Gateway is what the booking flow needs from the payment service.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, bookingID uuid.UUID, amount int64, currency string, metadata map[string]string) (*CheckoutSession, error)
	GetPaymentStatus(ctx context.Context, bookingID uuid.UUID) (Status, error)
}

// Client is an HTTP implementation of Gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. Requests time out after timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type checkoutRequest struct {
	BookingID uuid.UUID         `json:"booking_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type statusResponse struct {
	BookingID uuid.UUID `json:"booking_id"`
	Status    string    `json:"status"`
}

// CreateCheckoutSession asks the payment service for a hosted checkout page.
func (c *Client) CreateCheckoutSession(ctx context.Context, bookingID uuid.UUID, amount int64, currency string, metadata map[string]string) (*CheckoutSession, error) {
	body, err := json.Marshal(checkoutRequest{
		BookingID: bookingID,
		Amount:    amount,
		Currency:  currency,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout request: %w", err)
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/api/v1/checkout-sessions", body, &session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, fmt.Errorf("payment service returned a checkout session without url")
	}
	return &session, nil
}

// GetPaymentStatus returns the payment state of a booking. Unrecognised
// states are reported as StatusUnknown.
func (c *Client) GetPaymentStatus(ctx context.Context, bookingID uuid.UUID) (Status, error) {
	var resp statusResponse
	path := fmt.Sprintf("/api/v1/payments/bookings/%s/status", bookingID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return StatusUnknown, err
	}

	switch s := Status(strings.ToLower(resp.Status)); s {
	case StatusPaid, StatusPending, StatusFailed:
		return s, nil
	default:
		c.logger.Warn("unrecognised payment status",
			zap.String("booking_id", bookingID.String()),
			zap.String("status", resp.Status),
		)
		return StatusUnknown, nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewTransientError("payment service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.NewTransientError("payment service unavailable",
			fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("payment service rejected %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode payment response: %w", err)
	}
	return nil
}
