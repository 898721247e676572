package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return &Client{
		KeyID:      "rzp_test_key",
		KeySecret:  "rzp_test_secret",
		APIBaseURL: baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateOrderSendsAttributionNotes(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Mk9XYZ123","amount":19900,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	order, err := testClient(srv.URL).CreateOrder(context.Background(), OrderInput{
		Amount:   19900,
		Currency: "INR",
		UserID:   42,
		Plan:     "Basic",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != "order_Mk9XYZ123" {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if gotPath != "/orders" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "rzp_test_key" || gotPass != "rzp_test_secret" {
		t.Fatalf("basic auth not sent")
	}

	notes, ok := gotBody["notes"].(map[string]interface{})
	if !ok {
		t.Fatalf("order body has no notes: %v", gotBody)
	}
	if notes["user_id"] != "42" {
		t.Fatalf("user_id note = %v, want 42", notes["user_id"])
	}
	if notes["plan"] != "basic" {
		t.Fatalf("plan note = %v, want basic", notes["plan"])
	}
	if gotBody["receipt"] == "" {
		t.Fatalf("expected a generated receipt")
	}
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"Amount exceeds maximum"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateOrder(context.Background(), OrderInput{
		Amount:   1,
		Currency: "INR",
		UserID:   1,
		Plan:     "basic",
	})
	if err == nil {
		t.Fatalf("expected error on gateway 400")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	c := testClient("http://localhost:1")

	if _, err := c.CreateOrder(context.Background(), OrderInput{Amount: 0, UserID: 1}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := c.CreateOrder(context.Background(), OrderInput{Amount: 100, UserID: 0}); err == nil {
		t.Fatalf("expected error for missing user id")
	}

	c.KeyID = ""
	if _, err := c.CreateOrder(context.Background(), OrderInput{Amount: 100, UserID: 1}); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}
