package models

import "time"

// Payment status values as reported by the gateway.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment method values. Anything the gateway reports outside this set is
// normalized to "unknown".
const (
	PaymentMethodUPI        = "upi"
	PaymentMethodCard       = "card"
	PaymentMethodNetbanking = "netbanking"
	PaymentMethodWallet     = "wallet"
	PaymentMethodUnknown    = "unknown"
)

// Payment records one gateway payment attempt. The unique index on
// GatewayPaymentID is the backstop against concurrent duplicate webhook
// deliveries; CreditsApplied transitions false -> true exactly once inside
// the settlement transaction and never back.
type Payment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	GatewayPaymentID string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"gateway_payment_id"`
	GatewayOrderID   string    `gorm:"type:varchar(100);default:'';index" json:"gateway_order_id"`
	Signature        string    `gorm:"type:varchar(191);default:''" json:"-"`
	Amount           int64     `gorm:"not null;default:0" json:"amount"`
	Currency         string    `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`
	Status           string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Method           string    `gorm:"type:varchar(20);not null;default:'unknown'" json:"method"`
	Plan             string    `gorm:"type:varchar(50);default:''" json:"plan"`
	CreditsGranted   int64     `gorm:"not null;default:0" json:"credits_granted"`
	CreditsApplied   bool      `gorm:"not null;default:false;index" json:"credits_applied"`
	FailureReason    string    `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizePaymentMethod maps a gateway-reported method onto the known set.
func NormalizePaymentMethod(method string) string {
	switch method {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetbanking, PaymentMethodWallet:
		return method
	default:
		return PaymentMethodUnknown
	}
}
