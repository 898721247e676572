package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/env"
)

const defaultRazorpayAPIBaseURL = "https://api.razorpay.com/v1"

// Client talks to the Razorpay Orders API with basic auth. Webhook
// verification does not go through here; it happens over the raw request
// body in the webhook handler.
type Client struct {
	KeyID     string
	KeySecret string

	APIBaseURL string

	HTTPClient *http.Client
}

// OrderInput describes one credit-plan purchase to open with the gateway.
// UserID and Plan travel in the order notes so the capture webhook can be
// attributed without any local lookup.
type OrderInput struct {
	Amount   int64
	Currency string
	UserID   uint
	Plan     string
}

// Order is the gateway's created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func NewClientFromEnv() *Client {
	return &Client{
		KeyID:      strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_ID", "")),
		KeySecret:  strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_SECRET", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("RAZORPAY_API_BASE_URL", defaultRazorpayAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateOrder opens an order with the gateway. The receipt is a fresh UUID
// so retries on our side never collide.
func (c *Client) CreateOrder(ctx context.Context, input OrderInput) (*Order, error) {
	if strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.KeySecret) == "" {
		return nil, errors.New("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET are not configured")
	}
	if input.Amount <= 0 {
		return nil, errors.New("order amount must be positive")
	}
	if input.UserID == 0 {
		return nil, errors.New("user id is required")
	}

	payload := map[string]interface{}{
		"amount":   input.Amount,
		"currency": input.Currency,
		"receipt":  uuid.New().String(),
		"notes": map[string]string{
			"user_id": strconv.FormatUint(uint64(input.UserID), 10),
			"plan":    strings.ToLower(strings.TrimSpace(input.Plan)),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.APIBaseURL, "/") + "/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay order creation failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out Order
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("razorpay order creation returned empty order id")
	}
	return &out, nil
}
