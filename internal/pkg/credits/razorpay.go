package credits

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Razorpay webhook event names handled by the settlement processor.
const (
	RazorpayEventPaymentCaptured = "payment.captured"
	RazorpayEventPaymentFailed   = "payment.failed"
	RazorpayEventRefundProcessed = "refund.processed"
)

// RazorpayWebhookEvent is the parsed, provider-shaped webhook notification.
type RazorpayWebhookEvent struct {
	Event            string
	GatewayPaymentID string
	GatewayOrderID   string
	Signature        string
	UserID           uint
	Plan             string
	Amount           int64
	Currency         string
	Method           string
	FailureReason    string
}

type razorpayPaymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Method           string            `json:"method"`
	Status           string            `json:"status"`
	ErrorDescription string            `json:"error_description"`
	Notes            map[string]string `json:"notes"`
}

type razorpayWebhookPayload struct {
	Entity  string `json:"entity"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPaymentEntity `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// IsHandledRazorpayEvent reports whether the settlement processor consumes
// this event type. Everything else is acknowledged and skipped.
func IsHandledRazorpayEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case RazorpayEventPaymentCaptured, RazorpayEventPaymentFailed, RazorpayEventRefundProcessed:
		return true
	default:
		return false
	}
}

// ParseRazorpayWebhookEvent decodes the raw webhook body into the fields the
// settlement processor needs. User attribution and the purchased plan travel
// in the order notes set at order creation.
func ParseRazorpayWebhookEvent(raw []byte) (*RazorpayWebhookEvent, error) {
	var payload razorpayWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode razorpay webhook: %w", err)
	}
	event := strings.ToLower(strings.TrimSpace(payload.Event))
	if event == "" {
		return nil, errors.New("razorpay webhook has no event type")
	}

	if event == RazorpayEventRefundProcessed {
		paymentID := strings.TrimSpace(payload.Payload.Refund.Entity.PaymentID)
		if paymentID == "" {
			return nil, errors.New("refund event has no payment id")
		}
		return &RazorpayWebhookEvent{Event: event, GatewayPaymentID: paymentID}, nil
	}

	entity := payload.Payload.Payment.Entity
	if strings.TrimSpace(entity.ID) == "" {
		return nil, errors.New("payment event has no payment id")
	}

	userID, err := parseUserIDNote(entity.Notes)
	if err != nil {
		return nil, err
	}

	return &RazorpayWebhookEvent{
		Event:            event,
		GatewayPaymentID: strings.TrimSpace(entity.ID),
		GatewayOrderID:   strings.TrimSpace(entity.OrderID),
		UserID:           userID,
		Plan:             strings.TrimSpace(entity.Notes["plan"]),
		Amount:           entity.Amount,
		Currency:         strings.TrimSpace(entity.Currency),
		Method:           strings.ToLower(strings.TrimSpace(entity.Method)),
		FailureReason:    strings.TrimSpace(entity.ErrorDescription),
	}, nil
}

func parseUserIDNote(notes map[string]string) (uint, error) {
	raw := strings.TrimSpace(notes["user_id"])
	if raw == "" {
		return 0, errors.New("payment notes carry no user_id")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("payment notes carry invalid user_id %q", raw)
	}
	return uint(id), nil
}
